package handler

import (
	"encoding/json"
	"net/http"

	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/usecase"
	"telemed-appointment-api/pkg/response"
	"telemed-appointment-api/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SlotHandler covers the provider side of scheduling: publishing and
// withdrawing availability, and acting on incoming appointment requests.
type SlotHandler struct {
	slotUsecase       usecase.DoctorSlotUsecase
	doctorApptUsecase usecase.DoctorAppointmentUsecase
	validator         *validator.CustomValidator
}

func NewSlotHandler(
	slotUsecase usecase.DoctorSlotUsecase,
	doctorApptUsecase usecase.DoctorAppointmentUsecase,
	validator *validator.CustomValidator,
) *SlotHandler {
	return &SlotHandler{
		slotUsecase:       slotUsecase,
		doctorApptUsecase: doctorApptUsecase,
		validator:         validator,
	}
}

// AddSlots handles publishing open slots
// @Summary Publish open slots
// @Description Publish availability slots for the authenticated doctor
// @Tags Slots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AddSlotsRequest true "Add Slots Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /doctors/slots [post]
func (h *SlotHandler) AddSlots(w http.ResponseWriter, r *http.Request) {
	var req dto.AddSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.slotUsecase.AddSlots(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidDate:
			response.Error(w, http.StatusBadRequest, "Invalid slot format, use RFC 3339", nil)
		default:
			response.InternalServerError(w, "Failed to add slots")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Slots published successfully", result)
}

// RemoveSlot handles withdrawing an open slot
// @Summary Withdraw a slot
// @Description Remove an open slot from the authenticated doctor's schedule
// @Tags Slots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.RemoveSlotRequest true "Remove Slot Request"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctors/slots [delete]
func (h *SlotHandler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	var req dto.RemoveSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	err := h.slotUsecase.RemoveSlot(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidDate:
			response.Error(w, http.StatusBadRequest, "Invalid slot format, use RFC 3339", nil)
		case usecase.ErrSlotNotFound:
			response.NotFound(w, "Slot not found")
		default:
			response.InternalServerError(w, "Failed to remove slot")
		}
		return
	}

	response.Success(w, http.StatusOK, "Slot removed successfully", nil)
}

// GetMySlots handles listing the authenticated doctor's open slots
// @Summary Get my open slots
// @Tags Slots
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /doctors/slots [get]
func (h *SlotHandler) GetMySlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slotUsecase.GetMySlots(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", slots)
}

// GetDoctorSlots handles the public open-slot listing for one doctor
// @Summary Get a doctor's open slots
// @Tags Slots
// @Produce json
// @Success 200 {object} response.Response
// @Router /doctors/{id}/slots [get]
func (h *SlotHandler) GetDoctorSlots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	slots, err := h.slotUsecase.GetOpenSlots(r.Context(), doctorID)
	if err != nil {
		response.InternalServerError(w, "Failed to get slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", slots)
}

// GetDoctorAppointments handles listing the authenticated doctor's appointments
// @Summary Get appointments for the authenticated doctor
// @Tags Slots
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /doctors/appointments [get]
func (h *SlotHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.doctorApptUsecase.GetDoctorAppointments(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appts)
}

// UpdateAppointmentStatus handles confirming or rejecting an appointment
// @Summary Update appointment status
// @Description Confirm or reject an appointment owned by the authenticated doctor
// @Tags Slots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateAppointmentStatusRequest true "Update Status Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /doctors/appointments/{id} [put]
func (h *SlotHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.UpdateAppointmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appt, err := h.doctorApptUsecase.UpdateStatus(r.Context(), appointmentID, &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidStatus:
			response.Error(w, http.StatusBadRequest, "Invalid appointment status", nil)
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotAppointmentOwner:
			response.Forbidden(w, "Appointment belongs to another doctor")
		case usecase.ErrAppointmentDecided:
			response.Conflict(w, "Appointment has already been decided")
		default:
			response.InternalServerError(w, "Failed to update appointment status")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment status updated successfully", appt)
}
