package converter

import (
	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Doctor and patient views are attached only when their user records resolved.
func AppointmentToResponse(appt *entity.Appointment) *dto.AppointmentResponse {
	if appt == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:        appt.ID,
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		Date:      appt.ScheduledAt,
		Status:    string(appt.Status),
		CreatedAt: appt.CreatedAt,
		UpdatedAt: appt.UpdatedAt,
	}

	if appt.Doctor.User.ID != uuid.Nil {
		response.Doctor = DoctorProfileToResponse(&appt.Doctor)
	}

	if appt.Patient.User.ID != uuid.Nil {
		response.Patient = &dto.PatientResponse{
			ID:          appt.Patient.UserID,
			Email:       appt.Patient.User.Email,
			FullName:    appt.Patient.User.FullName,
			NIK:         appt.Patient.NIK,
			PhoneNumber: appt.Patient.PhoneNumber,
			IsActive:    appt.Patient.User.IsActive,
			CreatedAt:   appt.Patient.User.CreatedAt,
			UpdatedAt:   appt.Patient.User.UpdatedAt,
		}
	}

	return response
}

// AppointmentsToResponses converts appointments, dropping records whose
// referenced doctor or patient can no longer be resolved. This filtering is
// deliberate: a listing never surfaces broken references.
func AppointmentsToResponses(appts []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		if appts[i].Doctor.User.ID == uuid.Nil || appts[i].Patient.User.ID == uuid.Nil {
			continue
		}
		responses = append(responses, *AppointmentToResponse(&appts[i]))
	}
	return responses
}
