package repository

import (
	"context"
	"time"

	"telemed-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
)

// BookingStore groups the two collections a booking or cancellation spans:
// the doctor's open-slot set and the appointment ledger. Mutations of
// either inside a booking flow must go through a store handed out by
// UnitOfWork so both commit or neither does.
type BookingStore interface {
	// TakeSlot removes the exact (doctorID, at) slot row. false means the
	// slot is not open — either the doctor does not exist or the slot was
	// never there or already consumed; callers treat these identically.
	TakeSlot(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error)

	// RestoreSlot re-adds a slot to the doctor's open set. Re-adding an
	// already-present slot is a no-op, not an error.
	RestoreSlot(ctx context.Context, doctorID uuid.UUID, at time.Time) error

	// HasActiveAppointment reports whether an appointment with status
	// pending or confirmed exists for (doctorID, at).
	HasActiveAppointment(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error)

	// CreateAppointment inserts a new ledger record.
	CreateAppointment(ctx context.Context, appt *entity.Appointment) error

	// FindOwnedActiveAppointment loads an appointment for update when it
	// exists, belongs to patientID and is still active. nil, nil when any
	// of those fail — the caller cannot tell which.
	FindOwnedActiveAppointment(ctx context.Context, id, patientID uuid.UUID) (*entity.Appointment, error)

	// DeleteAppointment removes a ledger record outright.
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

// UnitOfWork runs fn against a BookingStore inside one atomic,
// all-or-nothing transaction. Any error from fn aborts every mutation made
// through the store; no partial state is observable afterwards.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(store BookingStore) error) error
}
