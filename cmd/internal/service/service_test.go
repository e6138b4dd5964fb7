package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"smallcrm/cmd/internal/cache"
	"smallcrm/cmd/internal/domain/database"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/integration"
	"smallcrm/cmd/internal/scheduling"
	"smallcrm/cmd/internal/utils/validators"
)

// now is a Sunday; the next day holds the test bookings.
var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func monday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func rfc(t time.Time) string {
	return t.Format(time.RFC3339)
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations int
	cancellations int
	created       int
	updated       int
	deleted       int
	eventID       string
	emailResult   integration.Result
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{eventID: "evt-1", emailResult: integration.OK("email")}
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, _ *entity.Appointment) integration.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations++
	return f.emailResult
}

func (f *fakeNotifier) SendCancellation(_ context.Context, _ *entity.Appointment) integration.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancellations++
	return f.emailResult
}

func (f *fakeNotifier) CreateCalendarEvent(_ context.Context, _ *entity.Appointment) (string, integration.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f.eventID, integration.OK("google-calendar")
}

func (f *fakeNotifier) UpdateCalendarEvent(_ context.Context, appt *entity.Appointment) (string, integration.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated++
	return appt.GoogleEventID, integration.OK("google-calendar")
}

func (f *fakeNotifier) DeleteCalendarEvent(_ context.Context, _ *entity.Appointment) integration.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return integration.OK("google-calendar")
}

type memoryCache struct {
	items map[string][]byte
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest any) error {
	raw, ok := m.items[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.sets++
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

type testEnv struct {
	db           *gorm.DB
	notifier     *fakeNotifier
	users        *DefaultUserService
	catalog      *DefaultCatalogService
	customers    *DefaultCustomerService
	appointments *DefaultAppointmentService
	availability *DefaultAvailabilityService

	admin    *entity.User
	staff    *entity.User
	customer *entity.Customer
	apptType *entity.AppointmentType
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Init(database.DriverSQLite, "file:svc_"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	validate := validator.New()
	validators.Register(validate)

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	apptTypeRepo := repository.NewAppointmentTypeRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)

	scheduler := scheduling.New(repository.NewScheduleStore(apptRepo, availabilityRepo), time.UTC).
		WithClock(func() time.Time { return now })
	clock := func() time.Time { return now }

	env := &testEnv{db: db, notifier: newFakeNotifier()}
	env.users = NewUserService(userRepo, validate)
	env.catalog = NewCatalogService(segmentRepo, apptTypeRepo, userRepo, validate)
	env.customers = NewCustomerService(customerRepo, segmentRepo,
		repository.NewInteractionRepository(db), repository.NewPurchaseRepository(db),
		userRepo, tx, validate, time.UTC)
	env.customers.Now = clock
	env.appointments = NewAppointmentService(apptRepo, repository.NewNoteRepository(db), customerRepo,
		apptTypeRepo, userRepo, tx, scheduler, env.notifier, validate)
	env.appointments.Now = clock
	env.availability = NewAvailabilityService(availabilityRepo, userRepo, validate)

	env.admin = &entity.User{SubUUID: "admin-sub", Username: "admin", Email: "admin@example.com", IsActive: true, IsAdmin: true}
	env.staff = &entity.User{SubUUID: "staff-sub", Username: "ana", FirstName: "Ana", LastName: "Lima", Email: "ana@example.com", IsActive: true}
	env.customer = &entity.Customer{FirstName: "John", LastName: "Doe", Email: "john@example.com", Phone: "+5511999990000", Status: entity.CustomerActive}
	env.apptType = &entity.AppointmentType{Name: "Consultation", DurationMinutes: 60, Color: "#17a2b8", Price: decimal.NewFromInt(100)}
	for _, v := range []any{env.admin, env.staff, env.customer, env.apptType} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}
	return env
}

func (e *testEnv) bookingRequest(start, end time.Time) *AppointmentRequest {
	req := &AppointmentRequest{
		CustomerID:        e.customer.ID.String(),
		AppointmentTypeID: e.apptType.ID,
		AssignedToID:      e.staff.ID,
		Title:             "Consultation",
		StartsAt:          rfc(start),
	}
	if !end.IsZero() {
		req.EndsAt = rfc(end)
	}
	return req
}
