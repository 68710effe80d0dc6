package usecase

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"telemed-appointment-api/internal/delivery/http/middleware"
	"telemed-appointment-api/internal/domain/entity"
	"telemed-appointment-api/internal/domain/repository"
	"telemed-appointment-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// testDB returns a gorm handle that is never used for real queries: the
// mocks below ignore the db argument entirely. Its connection pool can
// begin and commit no-op transactions so usecases that open one still
// run against the mocks.
func testDB() *gorm.DB {
	pool := &stubTxBeginner{}
	return &gorm.DB{
		Config:    &gorm.Config{ConnPool: pool},
		Statement: &gorm.Statement{ConnPool: pool},
	}
}

type stubConnPool struct{}

func (*stubConnPool) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, sql.ErrConnDone
}

func (*stubConnPool) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, sql.ErrConnDone
}

func (*stubConnPool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (*stubConnPool) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

type stubTxBeginner struct{ stubConnPool }

func (*stubTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (gorm.ConnPool, error) {
	return &stubTx{}, nil
}

type stubTx struct{ stubConnPool }

func (*stubTx) Commit() error   { return nil }
func (*stubTx) Rollback() error { return nil }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func authedContext(userID uuid.UUID, email string) context.Context {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, userID)
	return context.WithValue(ctx, middleware.UserEmailKey, email)
}

// --- MockAppointmentRepository ---

var _ repository.AppointmentRepository = (*MockAppointmentRepository)(nil)

type MockAppointmentRepository struct {
	FindByIDFunc        func(id uuid.UUID) (*entity.Appointment, error)
	FindByPatientIDFunc func(patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctorIDFunc  func(doctorID uuid.UUID) ([]entity.Appointment, error)
	ActiveExistsFunc    func(doctorID uuid.UUID, at time.Time) (bool, error)
	UpdateStatusFunc    func(id uuid.UUID, status entity.AppointmentStatus) (int64, error)
}

func (m *MockAppointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}

func (m *MockAppointmentRepository) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	if m.FindByPatientIDFunc != nil {
		return m.FindByPatientIDFunc(patientID)
	}
	return nil, nil
}

func (m *MockAppointmentRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	if m.FindByDoctorIDFunc != nil {
		return m.FindByDoctorIDFunc(doctorID)
	}
	return nil, nil
}

func (m *MockAppointmentRepository) ActiveExists(db *gorm.DB, doctorID uuid.UUID, at time.Time) (bool, error) {
	if m.ActiveExistsFunc != nil {
		return m.ActiveExistsFunc(doctorID, at)
	}
	return false, nil
}

func (m *MockAppointmentRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status entity.AppointmentStatus) (int64, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(id, status)
	}
	return 0, errors.New("UpdateStatusFunc not implemented in mock")
}

// --- MockDoctorProfileRepository ---

var _ repository.DoctorProfileRepository = (*MockDoctorProfileRepository)(nil)

type MockDoctorProfileRepository struct {
	CreateFunc        func(profile *entity.DoctorProfile) error
	FindByUserIDFunc  func(doctorID uuid.UUID) (*entity.DoctorProfile, error)
	FindAllActiveFunc func() ([]entity.DoctorProfile, error)
	FindAllFunc       func() ([]entity.DoctorProfile, error)
	UpdateFunc        func(profile *entity.DoctorProfile) error
	DeleteFunc        func(doctorID uuid.UUID) error
}

func (m *MockDoctorProfileRepository) Create(db *gorm.DB, profile *entity.DoctorProfile) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(profile)
	}
	return nil
}

func (m *MockDoctorProfileRepository) FindByUserID(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorProfile, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(doctorID)
	}
	return nil, nil
}

func (m *MockDoctorProfileRepository) FindAllActive(db *gorm.DB) ([]entity.DoctorProfile, error) {
	if m.FindAllActiveFunc != nil {
		return m.FindAllActiveFunc()
	}
	return nil, nil
}

func (m *MockDoctorProfileRepository) FindAll(db *gorm.DB) ([]entity.DoctorProfile, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return nil, nil
}

func (m *MockDoctorProfileRepository) Update(db *gorm.DB, profile *entity.DoctorProfile) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(profile)
	}
	return nil
}

func (m *MockDoctorProfileRepository) Delete(db *gorm.DB, doctorID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(doctorID)
	}
	return nil
}

// --- MockDoctorSlotRepository ---

var _ repository.DoctorSlotRepository = (*MockDoctorSlotRepository)(nil)

type MockDoctorSlotRepository struct {
	AddFunc            func(slots []entity.DoctorSlot) (int64, error)
	RemoveFunc         func(doctorID uuid.UUID, at time.Time) (int64, error)
	FindByDoctorIDFunc func(doctorID uuid.UUID, from time.Time) ([]entity.DoctorSlot, error)
	DeleteExpiredFunc  func(now time.Time) (int64, error)
}

func (m *MockDoctorSlotRepository) Add(db *gorm.DB, slots []entity.DoctorSlot) (int64, error) {
	if m.AddFunc != nil {
		return m.AddFunc(slots)
	}
	return int64(len(slots)), nil
}

func (m *MockDoctorSlotRepository) Remove(db *gorm.DB, doctorID uuid.UUID, at time.Time) (int64, error) {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(doctorID, at)
	}
	return 0, nil
}

func (m *MockDoctorSlotRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, from time.Time) ([]entity.DoctorSlot, error) {
	if m.FindByDoctorIDFunc != nil {
		return m.FindByDoctorIDFunc(doctorID, from)
	}
	return nil, nil
}

func (m *MockDoctorSlotRepository) DeleteExpired(db *gorm.DB, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(now)
	}
	return 0, nil
}

// --- MockUserRepository ---

var _ repository.UserRepository = (*MockUserRepository)(nil)

type MockUserRepository struct {
	CreateFunc      func(user *entity.User) error
	FindByEmailFunc func(email string) (*entity.User, error)
	FindByIDFunc    func(id uuid.UUID) (*entity.User, error)
	FindAllFunc     func() ([]entity.User, error)
	UpdateFunc      func(user *entity.User) error
	DeleteFunc      func(id uuid.UUID) (int64, error)
}

func (m *MockUserRepository) Create(db *gorm.DB, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(user)
	}
	return nil
}

func (m *MockUserRepository) FindByEmail(db *gorm.DB, email string) (*entity.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(email)
	}
	return nil, nil
}

func (m *MockUserRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}

func (m *MockUserRepository) FindAll(db *gorm.DB) ([]entity.User, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return nil, nil
}

func (m *MockUserRepository) Update(db *gorm.DB, user *entity.User) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(user)
	}
	return nil
}

func (m *MockUserRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return 0, nil
}

// --- MockAuditService ---

var _ service.AuditService = (*MockAuditService)(nil)

type MockAuditService struct {
	mu      sync.Mutex
	Actions []string
}

func (m *MockAuditService) Record(userID *uuid.UUID, action string, metadata entity.JSON) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Actions = append(m.Actions, action)
}

func (m *MockAuditService) Recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Actions))
	copy(out, m.Actions)
	return out
}

// --- MockMailer / test notifier ---

type MockMailer struct {
	SendFunc func(ctx context.Context, to, subject, body string) error
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, body)
	}
	return nil
}

func testNotifier() *service.Notifier {
	return service.NewNotifier(&MockMailer{}, testLogger(), 16)
}

// --- In-memory unit of work ---

type slotKey struct {
	doctorID uuid.UUID
	at       time.Time
}

// memUnitOfWork is an in-memory BookingStore with transactional
// semantics: each Within call runs against the shared state under a
// lock, and an error rolls the state back to its snapshot. The lock
// stands in for the row-level serialization the database provides.
type memUnitOfWork struct {
	mu    sync.Mutex
	slots map[slotKey]bool
	appts map[uuid.UUID]*entity.Appointment

	// CreateErr makes CreateAppointment fail, simulating a write error
	// inside the transaction.
	CreateErr error
}

var _ repository.UnitOfWork = (*memUnitOfWork)(nil)

func newMemUnitOfWork() *memUnitOfWork {
	return &memUnitOfWork{
		slots: make(map[slotKey]bool),
		appts: make(map[uuid.UUID]*entity.Appointment),
	}
}

func (u *memUnitOfWork) Within(ctx context.Context, fn func(store repository.BookingStore) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	slotSnap := make(map[slotKey]bool, len(u.slots))
	for k, v := range u.slots {
		slotSnap[k] = v
	}
	apptSnap := make(map[uuid.UUID]*entity.Appointment, len(u.appts))
	for k, v := range u.appts {
		cp := *v
		apptSnap[k] = &cp
	}

	if err := fn(&memBookingStore{uow: u}); err != nil {
		u.slots = slotSnap
		u.appts = apptSnap
		return err
	}
	return nil
}

func (u *memUnitOfWork) AddSlot(doctorID uuid.UUID, at time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.slots[slotKey{doctorID, at}] = true
}

func (u *memUnitOfWork) HasSlot(doctorID uuid.UUID, at time.Time) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.slots[slotKey{doctorID, at}]
}

func (u *memUnitOfWork) PutAppointment(appt *entity.Appointment) {
	u.mu.Lock()
	defer u.mu.Unlock()
	cp := *appt
	u.appts[appt.ID] = &cp
}

func (u *memUnitOfWork) GetAppointment(id uuid.UUID) *entity.Appointment {
	u.mu.Lock()
	defer u.mu.Unlock()
	if appt, ok := u.appts[id]; ok {
		cp := *appt
		return &cp
	}
	return nil
}

func (u *memUnitOfWork) AppointmentCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.appts)
}

type memBookingStore struct {
	uow *memUnitOfWork
}

var _ repository.BookingStore = (*memBookingStore)(nil)

func (s *memBookingStore) TakeSlot(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	key := slotKey{doctorID, at}
	if s.uow.slots[key] {
		delete(s.uow.slots, key)
		return true, nil
	}
	return false, nil
}

func (s *memBookingStore) RestoreSlot(ctx context.Context, doctorID uuid.UUID, at time.Time) error {
	s.uow.slots[slotKey{doctorID, at}] = true
	return nil
}

func (s *memBookingStore) HasActiveAppointment(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	for _, appt := range s.uow.appts {
		if appt.DoctorID == doctorID && appt.ScheduledAt.Equal(at) && appt.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (s *memBookingStore) CreateAppointment(ctx context.Context, appt *entity.Appointment) error {
	if s.uow.CreateErr != nil {
		return s.uow.CreateErr
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	cp := *appt
	s.uow.appts[appt.ID] = &cp
	return nil
}

func (s *memBookingStore) FindOwnedActiveAppointment(ctx context.Context, id, patientID uuid.UUID) (*entity.Appointment, error) {
	appt, ok := s.uow.appts[id]
	if !ok || appt.PatientID != patientID || !appt.IsActive() {
		return nil, nil
	}
	cp := *appt
	return &cp, nil
}

func (s *memBookingStore) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	delete(s.uow.appts, id)
	return nil
}
