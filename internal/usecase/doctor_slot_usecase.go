package usecase

import (
	"context"
	"errors"
	"time"

	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/delivery/http/middleware"
	"telemed-appointment-api/internal/domain/entity"
	"telemed-appointment-api/internal/domain/repository"
	"telemed-appointment-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrSlotNotFound = errors.New("slot not found")

type DoctorSlotUsecase interface {
	AddSlots(ctx context.Context, req *dto.AddSlotsRequest) (*dto.AddSlotsResponse, error)
	RemoveSlot(ctx context.Context, req *dto.RemoveSlotRequest) error
	GetMySlots(ctx context.Context) (*dto.SlotListResponse, error)
	GetOpenSlots(ctx context.Context, doctorID uuid.UUID) (*dto.SlotListResponse, error)
}

type doctorSlotUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	slotRepo        repository.DoctorSlotRepository
	appointmentRepo repository.AppointmentRepository
	audit           service.AuditService
}

func NewDoctorSlotUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	slotRepo repository.DoctorSlotRepository,
	appointmentRepo repository.AppointmentRepository,
	audit service.AuditService,
) DoctorSlotUsecase {
	return &doctorSlotUsecase{
		db:              db,
		log:             log,
		slotRepo:        slotRepo,
		appointmentRepo: appointmentRepo,
		audit:           audit,
	}
}

// AddSlots publishes open slots for the calling doctor. Slots in the past
// and slots already published are skipped, not rejected: publishing a
// schedule is idempotent per slot.
func (u *doctorSlotUsecase) AddSlots(ctx context.Context, req *dto.AddSlotsRequest) (*dto.AddSlotsResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	now := time.Now().UTC()
	result := &dto.AddSlotsResponse{}

	for _, raw := range req.Slots {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, ErrInvalidDate
		}
		at := entity.CanonicalSlotTime(parsed)

		if !at.After(now) {
			result.Skipped = append(result.Skipped, at)
			continue
		}

		// A slot whose time is already held by an active appointment must
		// not reappear in the open set, or the patient could be double
		// booked against.
		held, err := u.appointmentRepo.ActiveExists(u.db.WithContext(ctx), userID, at)
		if err != nil {
			u.log.Warnf("Failed to check active appointments for doctor %s at %s: %+v", userID, at, err)
			return nil, err
		}
		if held {
			result.Skipped = append(result.Skipped, at)
			continue
		}

		// One row per call so a duplicate shows up as Skipped, not as a
		// silently shrunk batch count.
		added, err := u.slotRepo.Add(u.db.WithContext(ctx), []entity.DoctorSlot{{
			DoctorID: userID,
			SlotAt:   at,
		}})
		if err != nil {
			u.log.Warnf("Failed to add slot for doctor %s at %s: %+v", userID, at, err)
			return nil, err
		}
		if added == 0 {
			result.Skipped = append(result.Skipped, at)
			continue
		}
		result.Added++
	}

	if result.Added > 0 {
		u.audit.Record(&userID, entity.AuditActionSlotAdd, entity.JSON{
			"added":   result.Added,
			"skipped": len(result.Skipped),
		})
	}

	u.log.Infof("Doctor %s published %d slots (%d skipped)", userID, result.Added, len(result.Skipped))
	return result, nil
}

// RemoveSlot withdraws an open slot. A slot that was already booked no
// longer exists in the open set, so withdrawing it reports not found.
func (u *doctorSlotUsecase) RemoveSlot(ctx context.Context, req *dto.RemoveSlotRequest) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	parsed, err := time.Parse(time.RFC3339, req.SlotAt)
	if err != nil {
		return ErrInvalidDate
	}
	at := entity.CanonicalSlotTime(parsed)

	removed, err := u.slotRepo.Remove(u.db.WithContext(ctx), userID, at)
	if err != nil {
		u.log.Warnf("Failed to remove slot for doctor %s at %s: %+v", userID, at, err)
		return err
	}
	if removed == 0 {
		return ErrSlotNotFound
	}

	u.audit.Record(&userID, entity.AuditActionSlotRemove, entity.JSON{
		"slot": at.Format(time.RFC3339),
	})

	u.log.Infof("Doctor %s withdrew slot at %s", userID, at)
	return nil
}

func (u *doctorSlotUsecase) GetMySlots(ctx context.Context) (*dto.SlotListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	return u.GetOpenSlots(ctx, userID)
}

// GetOpenSlots lists a doctor's future open slots, oldest first. Public.
func (u *doctorSlotUsecase) GetOpenSlots(ctx context.Context, doctorID uuid.UUID) (*dto.SlotListResponse, error) {
	slots, err := u.slotRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID, time.Now().UTC())
	if err != nil {
		u.log.Warnf("Failed to find slots for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	out := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.SlotAt)
	}

	return &dto.SlotListResponse{
		DoctorID: doctorID,
		Slots:    out,
		Total:    len(out),
	}, nil
}
