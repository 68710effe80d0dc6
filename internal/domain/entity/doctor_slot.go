package entity

import (
	"time"

	"github.com/google/uuid"
)

// DoctorSlot is a single open (unbooked) instant on a doctor's calendar.
// A slot has no identity beyond (doctor_id, slot_at); booking consumes the
// row, a qualifying cancellation re-inserts it.
type DoctorSlot struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_doctor_slot_at" json:"doctor_id"`
	SlotAt    time.Time `gorm:"type:timestamptz;not null;uniqueIndex:idx_doctor_slot_at" json:"slot_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Doctor DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (DoctorSlot) TableName() string {
	return "doctor_slots"
}

// CanonicalSlotTime normalizes a client-supplied timestamp at the store
// boundary. Slot matching is exact equality, so every timestamp entering
// the slot store or the appointment ledger goes through this first.
func CanonicalSlotTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
