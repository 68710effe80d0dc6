package usecase

import (
	"testing"
	"time"

	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSlots_SkipsPastAndDuplicates(t *testing.T) {
	doctorID := uuid.New()
	existing := entity.CanonicalSlotTime(time.Now().Add(48 * time.Hour))

	slotRepo := &MockDoctorSlotRepository{
		AddFunc: func(slots []entity.DoctorSlot) (int64, error) {
			require.Len(t, slots, 1)
			if slots[0].SlotAt.Equal(existing) {
				return 0, nil // unique index skip
			}
			return 1, nil
		},
	}
	audit := &MockAuditService{}
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), slotRepo, &MockAppointmentRepository{}, audit)

	past := time.Now().Add(-time.Hour)
	fresh := time.Now().Add(24 * time.Hour)

	resp, err := uc.AddSlots(authedContext(doctorID, "doctor@example.com"), &dto.AddSlotsRequest{
		Slots: []string{
			past.Format(time.RFC3339),
			existing.Format(time.RFC3339),
			fresh.Format(time.RFC3339),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Added)
	assert.Len(t, resp.Skipped, 2)
	assert.Contains(t, audit.Recorded(), entity.AuditActionSlotAdd)
}

func TestAddSlots_SkipsTimesHeldByActiveAppointments(t *testing.T) {
	doctorID := uuid.New()
	booked := entity.CanonicalSlotTime(time.Now().Add(24 * time.Hour))

	slotRepo := &MockDoctorSlotRepository{
		AddFunc: func(slots []entity.DoctorSlot) (int64, error) {
			require.False(t, slots[0].SlotAt.Equal(booked), "booked time must never reach the open set")
			return 1, nil
		},
	}
	apptRepo := &MockAppointmentRepository{
		ActiveExistsFunc: func(gotDoctor uuid.UUID, at time.Time) (bool, error) {
			assert.Equal(t, doctorID, gotDoctor)
			return at.Equal(booked), nil
		},
	}
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), slotRepo, apptRepo, &MockAuditService{})

	resp, err := uc.AddSlots(authedContext(doctorID, "doctor@example.com"), &dto.AddSlotsRequest{
		Slots: []string{
			booked.Format(time.RFC3339),
			booked.Add(time.Hour).Format(time.RFC3339),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Added)
	require.Len(t, resp.Skipped, 1)
	assert.True(t, resp.Skipped[0].Equal(booked))
}

func TestAddSlots_RejectsMalformedTimestamp(t *testing.T) {
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), &MockDoctorSlotRepository{}, &MockAppointmentRepository{}, &MockAuditService{})

	_, err := uc.AddSlots(authedContext(uuid.New(), "doctor@example.com"), &dto.AddSlotsRequest{
		Slots: []string{"next tuesday"},
	})

	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAddSlots_CanonicalizesBeforeStoring(t *testing.T) {
	doctorID := uuid.New()
	var stored time.Time
	slotRepo := &MockDoctorSlotRepository{
		AddFunc: func(slots []entity.DoctorSlot) (int64, error) {
			stored = slots[0].SlotAt
			return 1, nil
		},
	}
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), slotRepo, &MockAppointmentRepository{}, &MockAuditService{})

	// Offset timezone in the request; the stored instant must be UTC.
	local := time.Now().Add(24 * time.Hour).In(time.FixedZone("UTC+7", 7*3600))
	_, err := uc.AddSlots(authedContext(doctorID, "doctor@example.com"), &dto.AddSlotsRequest{
		Slots: []string{local.Format(time.RFC3339)},
	})

	require.NoError(t, err)
	assert.Equal(t, time.UTC, stored.Location())
	assert.True(t, stored.Equal(entity.CanonicalSlotTime(local)))
}

func TestRemoveSlot_NotOpen(t *testing.T) {
	slotRepo := &MockDoctorSlotRepository{
		RemoveFunc: func(doctorID uuid.UUID, at time.Time) (int64, error) {
			return 0, nil
		},
	}
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), slotRepo, &MockAppointmentRepository{}, &MockAuditService{})

	err := uc.RemoveSlot(authedContext(uuid.New(), "doctor@example.com"), &dto.RemoveSlotRequest{
		SlotAt: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRemoveSlot_Success(t *testing.T) {
	doctorID := uuid.New()
	at := entity.CanonicalSlotTime(time.Now().Add(24 * time.Hour))

	slotRepo := &MockDoctorSlotRepository{
		RemoveFunc: func(gotDoctor uuid.UUID, gotAt time.Time) (int64, error) {
			assert.Equal(t, doctorID, gotDoctor)
			assert.True(t, gotAt.Equal(at))
			return 1, nil
		},
	}
	audit := &MockAuditService{}
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), slotRepo, &MockAppointmentRepository{}, audit)

	err := uc.RemoveSlot(authedContext(doctorID, "doctor@example.com"), &dto.RemoveSlotRequest{
		SlotAt: at.Format(time.RFC3339),
	})

	require.NoError(t, err)
	assert.Contains(t, audit.Recorded(), entity.AuditActionSlotRemove)
}

func TestGetOpenSlots_OrderedFromRepo(t *testing.T) {
	doctorID := uuid.New()
	first := entity.CanonicalSlotTime(time.Now().Add(24 * time.Hour))
	second := first.Add(time.Hour)

	slotRepo := &MockDoctorSlotRepository{
		FindByDoctorIDFunc: func(gotDoctor uuid.UUID, from time.Time) ([]entity.DoctorSlot, error) {
			assert.Equal(t, doctorID, gotDoctor)
			return []entity.DoctorSlot{
				{DoctorID: doctorID, SlotAt: first},
				{DoctorID: doctorID, SlotAt: second},
			}, nil
		},
	}
	uc := NewDoctorSlotUsecase(testDB(), testLogger(), slotRepo, &MockAppointmentRepository{}, &MockAuditService{})

	resp, err := uc.GetOpenSlots(authedContext(uuid.New(), "patient@example.com"), doctorID)

	require.NoError(t, err)
	assert.Equal(t, doctorID, resp.DoctorID)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Slots, 2)
	assert.True(t, resp.Slots[0].Before(resp.Slots[1]))
}
