package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	uow       *memUnitOfWork
	apptRepo  *MockAppointmentRepository
	docRepo   *MockDoctorProfileRepository
	audit     *MockAuditService
	usecase   PatientAppointmentUsecase
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newBookingFixture(t *testing.T, leadTime time.Duration) *bookingFixture {
	t.Helper()

	f := &bookingFixture{
		uow:       newMemUnitOfWork(),
		audit:     &MockAuditService{},
		patientID: uuid.New(),
		doctorID:  uuid.New(),
	}

	f.docRepo = &MockDoctorProfileRepository{
		FindByUserIDFunc: func(doctorID uuid.UUID) (*entity.DoctorProfile, error) {
			if doctorID != f.doctorID {
				return nil, nil
			}
			return &entity.DoctorProfile{
				UserID: f.doctorID,
				User: entity.User{
					ID:       f.doctorID,
					Email:    "doctor@example.com",
					FullName: "Dr. Example",
				},
			}, nil
		},
	}

	f.apptRepo = &MockAppointmentRepository{
		FindByIDFunc: func(id uuid.UUID) (*entity.Appointment, error) {
			return f.uow.GetAppointment(id), nil
		},
	}

	notifier := testNotifier()
	t.Cleanup(notifier.Stop)

	f.usecase = NewPatientAppointmentUsecase(
		testDB(), testLogger(), f.uow, f.apptRepo, f.docRepo, notifier, f.audit, leadTime,
	)
	return f
}

func (f *bookingFixture) ctx() context.Context {
	return authedContext(f.patientID, "patient@example.com")
}

func futureSlot(offset time.Duration) time.Time {
	return entity.CanonicalSlotTime(time.Now().Add(offset))
}

func TestBookAppointment_Success(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)
	f.uow.AddSlot(f.doctorID, at)

	resp, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     at.Format(time.RFC3339),
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, string(entity.AppointmentStatusPending), resp.Status)
	assert.Equal(t, f.doctorID, resp.DoctorID)
	assert.Equal(t, f.patientID, resp.PatientID)
	assert.True(t, resp.Date.Equal(at))

	assert.False(t, f.uow.HasSlot(f.doctorID, at), "booked slot must leave the open set")
	assert.Equal(t, 1, f.uow.AppointmentCount())
	assert.Contains(t, f.audit.Recorded(), entity.AuditActionAppointmentBook)
}

func TestBookAppointment_InvalidDate(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)

	_, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     "tomorrow at nine",
	})

	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestBookAppointment_BelowLeadTime(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(10 * time.Minute)
	f.uow.AddSlot(f.doctorID, at)

	_, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     at.Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrBelowLeadTime)
	assert.True(t, f.uow.HasSlot(f.doctorID, at), "rejected booking must not consume the slot")
}

func TestBookAppointment_SlotNotOpen(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)

	_, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     futureSlot(2 * time.Hour).Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, 0, f.uow.AppointmentCount())
}

func TestBookAppointment_UnknownDoctorLooksLikeMissingSlot(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	otherDoctor := uuid.New()
	at := futureSlot(2 * time.Hour)
	f.uow.AddSlot(otherDoctor, at)

	_, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: otherDoctor,
		Date:     at.Format(time.RFC3339),
	})

	// Unknown doctor and consumed slot must be indistinguishable.
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookAppointment_ActiveConflictRollsBackSlot(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)
	f.uow.AddSlot(f.doctorID, at)
	f.uow.PutAppointment(&entity.Appointment{
		ID:          uuid.New(),
		PatientID:   uuid.New(),
		DoctorID:    f.doctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusConfirmed,
	})

	_, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     at.Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.True(t, f.uow.HasSlot(f.doctorID, at), "failed booking must restore the taken slot")
	assert.Equal(t, 1, f.uow.AppointmentCount())
}

func TestBookAppointment_WriteFailureLeavesStateUnchanged(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)
	f.uow.AddSlot(f.doctorID, at)
	f.uow.CreateErr = errors.New("disk on fire")

	_, err := f.usecase.BookAppointment(f.ctx(), &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     at.Format(time.RFC3339),
	})

	require.Error(t, err)
	assert.True(t, f.uow.HasSlot(f.doctorID, at))
	assert.Equal(t, 0, f.uow.AppointmentCount())
	assert.Empty(t, f.audit.Recorded(), "failed booking must not be audited")
}

func TestBookAppointment_ConcurrentSameSlot(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)
	f.uow.AddSlot(f.doctorID, at)

	req := &dto.BookAppointmentRequest{
		DoctorID: f.doctorID,
		Date:     at.Format(time.RFC3339),
	}

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.usecase.BookAppointment(f.ctx(), req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent booking may win")
	assert.Equal(t, 1, f.uow.AppointmentCount())
}

func TestCancelAppointment_RestoresFutureSlot(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)
	apptID := uuid.New()
	f.uow.PutAppointment(&entity.Appointment{
		ID:          apptID,
		PatientID:   f.patientID,
		DoctorID:    f.doctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusConfirmed,
	})

	err := f.usecase.CancelAppointment(f.ctx(), apptID)

	require.NoError(t, err)
	assert.Nil(t, f.uow.GetAppointment(apptID))
	assert.True(t, f.uow.HasSlot(f.doctorID, at), "cancelling a future appointment must reopen its slot")
	assert.Contains(t, f.audit.Recorded(), entity.AuditActionAppointmentCancel)
}

func TestCancelAppointment_PastSlotNotRestored(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := entity.CanonicalSlotTime(time.Now().Add(-time.Hour))
	apptID := uuid.New()
	f.uow.PutAppointment(&entity.Appointment{
		ID:          apptID,
		PatientID:   f.patientID,
		DoctorID:    f.doctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusPending,
	})

	err := f.usecase.CancelAppointment(f.ctx(), apptID)

	require.NoError(t, err)
	assert.Nil(t, f.uow.GetAppointment(apptID))
	assert.False(t, f.uow.HasSlot(f.doctorID, at), "a lapsed slot must not return to the open set")
}

func TestCancelAppointment_SlotRestoreIsIdempotent(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)
	apptID := uuid.New()
	f.uow.PutAppointment(&entity.Appointment{
		ID:          apptID,
		PatientID:   f.patientID,
		DoctorID:    f.doctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusPending,
	})
	// The doctor already republished the same instant.
	f.uow.AddSlot(f.doctorID, at)

	err := f.usecase.CancelAppointment(f.ctx(), apptID)

	require.NoError(t, err)
	assert.True(t, f.uow.HasSlot(f.doctorID, at))
}

func TestCancelAppointment_MissingForeignAndResolvedAreIndistinguishable(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)
	at := futureSlot(2 * time.Hour)

	foreignID := uuid.New()
	f.uow.PutAppointment(&entity.Appointment{
		ID:          foreignID,
		PatientID:   uuid.New(),
		DoctorID:    f.doctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusPending,
	})

	rejectedID := uuid.New()
	f.uow.PutAppointment(&entity.Appointment{
		ID:          rejectedID,
		PatientID:   f.patientID,
		DoctorID:    f.doctorID,
		ScheduledAt: at,
		Status:      entity.AppointmentStatusRejected,
	})

	cases := map[string]uuid.UUID{
		"missing":          uuid.New(),
		"foreign":          foreignID,
		"already resolved": rejectedID,
	}
	for name, id := range cases {
		err := f.usecase.CancelAppointment(f.ctx(), id)
		assert.ErrorIs(t, err, ErrAppointmentNotFound, name)
	}

	// Nothing was deleted or restored along the way.
	assert.NotNil(t, f.uow.GetAppointment(foreignID))
	assert.NotNil(t, f.uow.GetAppointment(rejectedID))
	assert.False(t, f.uow.HasSlot(f.doctorID, at))
}

func TestGetMyAppointments_FiltersBrokenReferences(t *testing.T) {
	f := newBookingFixture(t, 30*time.Minute)

	intact := entity.Appointment{
		ID:          uuid.New(),
		PatientID:   f.patientID,
		DoctorID:    f.doctorID,
		ScheduledAt: futureSlot(2 * time.Hour),
		Status:      entity.AppointmentStatusConfirmed,
		Doctor: entity.DoctorProfile{
			UserID: f.doctorID,
			User:   entity.User{ID: f.doctorID, Email: "doctor@example.com"},
		},
		Patient: entity.PatientProfile{
			UserID: f.patientID,
			User:   entity.User{ID: f.patientID, Email: "patient@example.com"},
		},
	}
	broken := intact
	broken.ID = uuid.New()
	broken.Doctor = entity.DoctorProfile{}

	f.apptRepo.FindByPatientIDFunc = func(patientID uuid.UUID) ([]entity.Appointment, error) {
		return []entity.Appointment{intact, broken}, nil
	}

	resp, err := f.usecase.GetMyAppointments(f.ctx())

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, intact.ID, resp.Appointments[0].ID)
}
