package service

import (
	"time"

	"telemed-appointment-api/internal/domain/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SlotJanitor periodically purges open slots whose instant has already
// passed. A lapsed slot can no longer be booked (lead-time policy), so
// keeping the row only clutters the browse listing.
type SlotJanitor struct {
	db       *gorm.DB
	log      *logrus.Logger
	slotRepo repository.DoctorSlotRepository
	cron     *cron.Cron
}

func NewSlotJanitor(db *gorm.DB, log *logrus.Logger, slotRepo repository.DoctorSlotRepository) *SlotJanitor {
	return &SlotJanitor{
		db:       db,
		log:      log,
		slotRepo: slotRepo,
		cron:     cron.New(),
	}
}

// Start schedules the hourly purge.
func (j *SlotJanitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.purge); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("Slot janitor started")
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (j *SlotJanitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *SlotJanitor) purge() {
	deleted, err := j.slotRepo.DeleteExpired(j.db, time.Now().UTC())
	if err != nil {
		j.log.Warnf("Failed to purge expired slots: %+v", err)
		return
	}
	if deleted > 0 {
		j.log.Infof("Purged %d expired open slots", deleted)
	}
}
