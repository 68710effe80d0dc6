package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type AddSlotsRequest struct {
	Slots []string `json:"slots" validate:"required,min=1,dive,required"` // RFC 3339 timestamps
}

type RemoveSlotRequest struct {
	SlotAt string `json:"slot_at" validate:"required"` // RFC 3339 timestamp
}

// Response DTOs

type SlotListResponse struct {
	DoctorID uuid.UUID   `json:"doctor_id"`
	Slots    []time.Time `json:"slots"`
	Total    int         `json:"total"`
}

type AddSlotsResponse struct {
	Added   int         `json:"added"`
	Skipped []time.Time `json:"skipped,omitempty"`
}
