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
	ErrInvalidDate         = errors.New("invalid date format, use RFC 3339")
	ErrBelowLeadTime       = errors.New("appointment is below the minimum booking lead time")
	ErrSlotUnavailable     = errors.New("slot is not available")
	ErrSlotTaken           = errors.New("slot is already booked")
	ErrAppointmentNotFound = errors.New("appointment not found or already cancelled")
)

type PatientAppointmentUsecase interface {
	BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
}

type patientAppointmentUsecase struct {
	db                *gorm.DB
	log               *logrus.Logger
	uow               repository.UnitOfWork
	appointmentRepo   repository.AppointmentRepository
	doctorProfileRepo repository.DoctorProfileRepository
	notifier          *service.Notifier
	audit             service.AuditService
	leadTime          time.Duration
}

func NewPatientAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	uow repository.UnitOfWork,
	appointmentRepo repository.AppointmentRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	notifier *service.Notifier,
	audit service.AuditService,
	leadTime time.Duration,
) PatientAppointmentUsecase {
	return &patientAppointmentUsecase{
		db:                db,
		log:               log,
		uow:               uow,
		appointmentRepo:   appointmentRepo,
		doctorProfileRepo: doctorProfileRepo,
		notifier:          notifier,
		audit:             audit,
		leadTime:          leadTime,
	}
}

// BookAppointment atomically moves a slot from open to booked.
//
// Flow:
//  1. Validate the date and the lead-time policy (no store access yet)
//  2. Resolve the doctor (missing doctor reads as slot unavailable)
//  3. Unit of work: take the slot, check for a conflicting active
//     appointment, insert the pending appointment, all or nothing
//  4. Post-commit, best-effort: audit entry + notifications to both sides
func (u *patientAppointmentUsecase) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	parsed, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	at := entity.CanonicalSlotTime(parsed)

	// Scheduling policy: the slot must be far enough in the future that
	// the provider side has a processing buffer.
	if time.Until(at) < u.leadTime {
		return nil, ErrBelowLeadTime
	}

	doctor, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil || (doctor.User.IsActive != nil && !*doctor.User.IsActive) {
		// Deliberately indistinguishable from a consumed slot.
		return nil, ErrSlotUnavailable
	}

	appt := &entity.Appointment{
		PatientID:   userID,
		DoctorID:    req.DoctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusPending,
	}

	err = u.uow.Within(ctx, func(store repository.BookingStore) error {
		taken, err := store.TakeSlot(ctx, req.DoctorID, at)
		if err != nil {
			return err
		}
		if !taken {
			return ErrSlotUnavailable
		}

		conflict, err := store.HasActiveAppointment(ctx, req.DoctorID, at)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotTaken
		}

		return store.CreateAppointment(ctx, appt)
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
		// The partial unique index is the concurrency backstop: a loser
		// of a same-slot race surfaces here as a unique violation.
		if isDuplicateKeyError(err, "active_slot") {
			return nil, ErrSlotTaken
		}
		u.log.Errorf("Booking transaction failed for doctor %s at %s: %+v", req.DoctorID, at, err)
		return nil, err
	}

	u.audit.Record(&userID, entity.AuditActionAppointmentBook, entity.JSON{
		"appointment_id": appt.ID.String(),
		"doctor_id":      req.DoctorID.String(),
		"scheduled_at":   at,
	})

	if email, ok := middleware.GetUserEmailFromContext(ctx); ok {
		u.notifier.Enqueue(service.Notification{
			Recipient: email,
			Subject:   "Appointment request received",
			Body:      fmt.Sprintf("Your appointment with %s on %s was requested and is awaiting confirmation.", doctor.User.FullName, at.Format(time.RFC1123)),
		})
	}
	u.notifier.Enqueue(service.Notification{
		Recipient: doctor.User.Email,
		Subject:   "New appointment request",
		Body:      fmt.Sprintf("A patient requested an appointment on %s.", at.Format(time.RFC1123)),
	})

	u.log.Infof("Appointment booked: id=%s, doctor=%s, at=%s", appt.ID, req.DoctorID, at)

	// Reload with doctor/patient info for the response
	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appt.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appt.ID, err)
		return converter.AppointmentToResponse(appt), nil
	}

	return converter.AppointmentToResponse(full), nil
}

// CancelAppointment atomically removes an active appointment owned by the
// caller and, when the appointment is still in the future, restores its
// slot to the doctor's open set.
//
// A missing appointment, one owned by someone else, and one already
// resolved all yield the same error so callers cannot probe for the
// existence of other patients' appointments.
func (u *patientAppointmentUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	var cancelled *entity.Appointment

	err := u.uow.Within(ctx, func(store repository.BookingStore) error {
		appt, err := store.FindOwnedActiveAppointment(ctx, appointmentID, userID)
		if err != nil {
			return err
		}
		if appt == nil {
			return ErrAppointmentNotFound
		}

		if err := store.DeleteAppointment(ctx, appt.ID); err != nil {
			return err
		}

		// A lapsed appointment has nothing bookable left to restore.
		if appt.ScheduledAt.After(time.Now().UTC()) {
			if err := store.RestoreSlot(ctx, appt.DoctorID, appt.ScheduledAt); err != nil {
				return err
			}
		}

		cancelled = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		u.log.Errorf("Cancellation transaction failed for appointment %s: %+v", appointmentID, err)
		return err
	}

	u.audit.Record(&userID, entity.AuditActionAppointmentCancel, entity.JSON{
		"appointment_id": cancelled.ID.String(),
		"doctor_id":      cancelled.DoctorID.String(),
		"scheduled_at":   cancelled.ScheduledAt,
	})

	if email, ok := middleware.GetUserEmailFromContext(ctx); ok {
		u.notifier.Enqueue(service.Notification{
			Recipient: email,
			Subject:   "Appointment cancelled",
			Body:      fmt.Sprintf("Your appointment on %s was cancelled.", cancelled.ScheduledAt.Format(time.RFC1123)),
		})
	}
	if doctor, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), cancelled.DoctorID); err == nil && doctor != nil {
		u.notifier.Enqueue(service.Notification{
			Recipient: doctor.User.Email,
			Subject:   "Appointment cancelled",
			Body:      fmt.Sprintf("The appointment on %s was cancelled by the patient.", cancelled.ScheduledAt.Format(time.RFC1123)),
		})
	}

	u.log.Infof("Appointment cancelled: id=%s, doctor=%s", cancelled.ID, cancelled.DoctorID)
	return nil
}

// GetMyAppointments returns the caller's appointments with doctor and
// patient references resolved. Records whose doctor or patient no longer
// resolves are filtered out rather than surfaced as broken references.
func (u *patientAppointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appts, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", userID, err)
		return nil, err
	}

	responses := converter.AppointmentsToResponses(appts)
	return &dto.AppointmentListResponse{
		Appointments: responses,
		Total:        len(responses),
	}, nil
}
