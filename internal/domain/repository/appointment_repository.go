package repository

import (
	"time"

	"telemed-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentRepository covers the read and status-update side of the
// appointment ledger. Creation and deletion happen only inside a
// UnitOfWork so they stay atomic with the slot store.
type AppointmentRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	ActiveExists(db *gorm.DB, doctorID uuid.UUID, at time.Time) (bool, error)
	UpdateStatus(db *gorm.DB, id uuid.UUID, status entity.AppointmentStatus) (int64, error)
}
