package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type BookAppointmentRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" validate:"required"`
	Date     string    `json:"date" validate:"required"` // RFC 3339 timestamp
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed rejected"`
}

// Response DTOs

type AppointmentResponse struct {
	ID        uuid.UUID        `json:"id"`
	PatientID uuid.UUID        `json:"patient_id"`
	DoctorID  uuid.UUID        `json:"doctor_id"`
	Date      time.Time        `json:"date"`
	Status    string           `json:"status"`
	Doctor    *DoctorResponse  `json:"doctor,omitempty"`
	Patient   *PatientResponse `json:"patient,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
