package repository

import (
	"time"

	"telemed-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorSlotRepository interface {
	// Add inserts open slots, silently skipping timestamps already present.
	// Returns the number of rows actually inserted.
	Add(db *gorm.DB, slots []entity.DoctorSlot) (int64, error)
	// Remove deletes one open slot. Returns affected rows: 0 means the
	// slot was not open.
	Remove(db *gorm.DB, doctorID uuid.UUID, at time.Time) (int64, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, from time.Time) ([]entity.DoctorSlot, error)
	// DeleteExpired purges open slots whose instant has already passed.
	DeleteExpired(db *gorm.DB, now time.Time) (int64, error)
}
