package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telemed-appointment-api/internal/converter"
	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/delivery/http/middleware"
	"telemed-appointment-api/internal/domain/entity"
	"telemed-appointment-api/internal/domain/repository"
	"telemed-appointment-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidStatus       = errors.New("invalid appointment status")
	ErrNotAppointmentOwner = errors.New("appointment belongs to another doctor")
	ErrAppointmentDecided  = errors.New("appointment has already been decided")
)

type DoctorAppointmentUsecase interface {
	GetDoctorAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
}

type doctorAppointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	notifier        *service.Notifier
	audit           service.AuditService
}

func NewDoctorAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	notifier *service.Notifier,
	audit service.AuditService,
) DoctorAppointmentUsecase {
	return &doctorAppointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		notifier:        notifier,
		audit:           audit,
	}
}

func (u *doctorAppointmentUsecase) GetDoctorAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appts, err := u.appointmentRepo.FindByDoctorID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", userID, err)
		return nil, err
	}

	responses := converter.AppointmentsToResponses(appts)
	return &dto.AppointmentListResponse{
		Appointments: responses,
		Total:        len(responses),
	}, nil
}

// UpdateStatus lets the owning doctor decide a pending appointment:
// confirm or reject. Both verdicts are terminal. Rejection is a verdict
// on the request, not a cancellation: the slot stays consumed and is
// never returned to the open set here.
func (u *doctorAppointmentUsecase) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	// Pending is where appointments start, not a verdict a doctor can set.
	status := entity.AppointmentStatus(req.Status)
	if !entity.ValidAppointmentStatus(status) || status == entity.AppointmentStatusPending {
		return nil, ErrInvalidStatus
	}

	appt, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}
	if appt.DoctorID != userID {
		return nil, ErrNotAppointmentOwner
	}
	// A decided appointment stays decided. Re-confirming a rejected one
	// would recreate an active appointment for a slot that may have been
	// republished and rebooked since.
	if !appt.IsPending() {
		return nil, ErrAppointmentDecided
	}

	affected, err := u.appointmentRepo.UpdateStatus(u.db.WithContext(ctx), appointmentID, status)
	if err != nil {
		u.log.Warnf("Failed to update appointment %s status: %+v", appointmentID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = status

	action := entity.AuditActionAppointmentConfirm
	if status == entity.AppointmentStatusRejected {
		action = entity.AuditActionAppointmentReject
	}
	u.audit.Record(&userID, action, entity.JSON{
		"appointment_id": appt.ID.String(),
		"status":         string(status),
	})

	if appt.Patient.User.Email != "" {
		u.notifier.Enqueue(service.Notification{
			Recipient: appt.Patient.User.Email,
			Subject:   fmt.Sprintf("Appointment %s", status),
			Body:      fmt.Sprintf("Your appointment on %s is now %s.", appt.ScheduledAt.Format(time.RFC1123), status),
		})
	}

	u.log.Infof("Appointment %s status updated to %s by doctor %s", appointmentID, status, userID)
	return converter.AppointmentToResponse(appt), nil
}
