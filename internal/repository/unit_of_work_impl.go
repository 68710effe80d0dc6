package repository

import (
	"context"
	"errors"
	"time"

	"telemed-appointment-api/internal/domain/entity"
	domainRepo "telemed-appointment-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormUnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) domainRepo.UnitOfWork {
	return &gormUnitOfWork{db: db}
}

// Within wraps fn in a database transaction. The transaction boundary
// starts before the first store access and ends after commit; an error
// anywhere inside aborts the whole thing with no partial writes visible
// to other transactions.
func (u *gormUnitOfWork) Within(ctx context.Context, fn func(store domainRepo.BookingStore) error) error {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	if err := fn(&gormBookingStore{tx: tx}); err != nil {
		return err
	}

	return tx.Commit().Error
}

// gormBookingStore binds BookingStore operations to one transaction.
type gormBookingStore struct {
	tx *gorm.DB
}

// TakeSlot deletes the slot row. Under concurrent bookings of the same
// slot the row-level lock serializes the two deletes; the loser sees zero
// affected rows and reports the slot as gone.
func (s *gormBookingStore) TakeSlot(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	result := s.tx.WithContext(ctx).
		Where("doctor_id = ? AND slot_at = ?", doctorID, at).
		Delete(&entity.DoctorSlot{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *gormBookingStore) RestoreSlot(ctx context.Context, doctorID uuid.UUID, at time.Time) error {
	slot := entity.DoctorSlot{DoctorID: doctorID, SlotAt: at}
	return s.tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slot).Error
}

func (s *gormBookingStore) HasActiveAppointment(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	var count int64
	err := s.tx.WithContext(ctx).Model(&entity.Appointment{}).
		Where("doctor_id = ? AND scheduled_at = ? AND status IN ?",
			doctorID, at, []entity.AppointmentStatus{entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormBookingStore) CreateAppointment(ctx context.Context, appt *entity.Appointment) error {
	return s.tx.WithContext(ctx).Create(appt).Error
}

// FindOwnedActiveAppointment locks the row for the remainder of the
// transaction so a concurrent cancellation of the same appointment waits
// and then finds nothing.
func (s *gormBookingStore) FindOwnedActiveAppointment(ctx context.Context, id, patientID uuid.UUID) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND patient_id = ? AND status IN ?",
			id, patientID, []entity.AppointmentStatus{entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed}).
		First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appt, nil
}

func (s *gormBookingStore) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithContext(ctx).Where("id = ?", id).Delete(&entity.Appointment{}).Error
}
