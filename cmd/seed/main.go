package main

import (
	"fmt"
	"time"

	"telemed-appointment-api/config"
	"telemed-appointment-api/internal/domain/entity"
	"telemed-appointment-api/internal/infrastructure/database"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	doctorCount  = 5
	patientCount = 20
	seedPassword = "password123"
)

// Seeds the database with an admin account, a handful of doctors with
// open slots over the next two weeks, and a pool of patients. Intended
// for local development, not production.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if err := database.RunMigrations(cfg.DB); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logrus.Fatalf("Failed to hash seed password: %v", err)
	}
	password := string(hashed)

	if err := seedAdmin(db, password); err != nil {
		logrus.Fatalf("Failed to seed admin: %v", err)
	}
	if err := seedDoctors(db, password); err != nil {
		logrus.Fatalf("Failed to seed doctors: %v", err)
	}
	if err := seedPatients(db, password); err != nil {
		logrus.Fatalf("Failed to seed patients: %v", err)
	}

	logrus.Infof("Seeding complete: 1 admin, %d doctors, %d patients (password %q)", doctorCount, patientCount, seedPassword)
}

func seedAdmin(db *gorm.DB, password string) error {
	admin := &entity.User{
		Email:    "admin@example.com",
		Password: password,
		FullName: "System Administrator",
		RoleID:   entity.RoleIDAdmin,
	}
	return db.Where("email = ?", admin.Email).FirstOrCreate(admin).Error
}

func seedDoctors(db *gorm.DB, password string) error {
	specializations := []string{"Cardiology", "Dermatology", "Pediatrics", "Neurology", "General Practice"}

	for i := 0; i < doctorCount; i++ {
		profile := &entity.DoctorProfile{
			STRNumber:       fmt.Sprintf("STR-%08d", gofakeit.Number(10000000, 99999999)),
			Specialization:  specializations[i%len(specializations)],
			Biography:       gofakeit.Paragraph(1, 3, 12, " "),
			ConsultationFee: decimal.NewFromInt(int64(gofakeit.Number(10, 50) * 5)),
			User: entity.User{
				Email:    fmt.Sprintf("doctor%d@example.com", i+1),
				Password: password,
				FullName: "Dr. " + gofakeit.Name(),
				RoleID:   entity.RoleIDDoctor,
			},
		}
		if err := db.Create(profile).Error; err != nil {
			return err
		}

		// Weekday morning slots for the next two weeks
		var slots []entity.DoctorSlot
		day := time.Now().UTC().AddDate(0, 0, 1)
		for d := 0; d < 14; d++ {
			date := day.AddDate(0, 0, d)
			if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				continue
			}
			for hour := 9; hour < 12; hour++ {
				at := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, time.UTC)
				slots = append(slots, entity.DoctorSlot{
					DoctorID: profile.UserID,
					SlotAt:   entity.CanonicalSlotTime(at),
				})
			}
		}
		if err := db.Create(&slots).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedPatients(db *gorm.DB, password string) error {
	for i := 0; i < patientCount; i++ {
		gender := "M"
		if gofakeit.Bool() {
			gender = "F"
		}
		profile := &entity.PatientProfile{
			NIK:         fmt.Sprintf("%016d", gofakeit.Number(100000000, 999999999)),
			PhoneNumber: gofakeit.Phone(),
			DateOfBirth: gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)),
			Gender:      gender,
			Address:     gofakeit.Address().Address,
			User: entity.User{
				Email:    fmt.Sprintf("patient%d@example.com", i+1),
				Password: password,
				FullName: gofakeit.Name(),
				RoleID:   entity.RoleIDPatient,
			},
		}
		if err := db.Create(profile).Error; err != nil {
			return err
		}
	}

	return nil
}
