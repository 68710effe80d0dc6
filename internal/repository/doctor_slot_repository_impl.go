package repository

import (
	"time"

	"telemed-appointment-api/internal/domain/entity"
	domainRepo "telemed-appointment-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type doctorSlotRepository struct{}

func NewDoctorSlotRepository() domainRepo.DoctorSlotRepository {
	return &doctorSlotRepository{}
}

// Add relies on the (doctor_id, slot_at) unique index: duplicates are
// skipped via ON CONFLICT DO NOTHING, keeping the open set a set.
func (r *doctorSlotRepository) Add(db *gorm.DB, slots []entity.DoctorSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&slots)
	return result.RowsAffected, result.Error
}

func (r *doctorSlotRepository) Remove(db *gorm.DB, doctorID uuid.UUID, at time.Time) (int64, error) {
	result := db.Where("doctor_id = ? AND slot_at = ?", doctorID, at).Delete(&entity.DoctorSlot{})
	return result.RowsAffected, result.Error
}

func (r *doctorSlotRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, from time.Time) ([]entity.DoctorSlot, error) {
	var slots []entity.DoctorSlot
	err := db.Where("doctor_id = ? AND slot_at >= ?", doctorID, from).
		Order("slot_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *doctorSlotRepository) DeleteExpired(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("slot_at < ?", now).Delete(&entity.DoctorSlot{})
	return result.RowsAffected, result.Error
}
