package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/integration"
)

type fakeStore struct {
	due        []*entity.Appointment
	from, to   int64
	marked     []uuid.UUID
	findErr    error
	markFailed bool
}

func (f *fakeStore) FindDueReminders(_ context.Context, from, to int64) ([]*entity.Appointment, error) {
	f.from, f.to = from, to
	return f.due, f.findErr
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	if f.markFailed {
		return errors.New("db down")
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeNotifier struct {
	email map[uuid.UUID]integration.Result
	sms   integration.Result
}

func (f *fakeNotifier) SendReminder(_ context.Context, appt *entity.Appointment) integration.Result {
	return f.email[appt.ID]
}

func (f *fakeNotifier) SendSMSReminder(_ context.Context, _ *entity.Appointment) integration.Result {
	return f.sms
}

func TestSweep(t *testing.T) {
	delivered := &entity.Appointment{ID: uuid.New()}
	failed := &entity.Appointment{ID: uuid.New()}

	store := &fakeStore{due: []*entity.Appointment{delivered, failed}}
	notifier := &fakeNotifier{
		email: map[uuid.UUID]integration.Result{
			delivered.ID: integration.OK("email"),
			failed.ID:    integration.Failed("email", errors.New("smtp down")),
		},
		sms: integration.Skipped("sms", "disabled"),
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := New(store, notifier, 24*time.Hour)
	d.now = func() time.Time { return now }

	sent, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent != 1 || len(store.marked) != 1 || store.marked[0] != delivered.ID {
		t.Fatalf("expected only the delivered reminder to be marked, got %v", store.marked)
	}
	if store.from != now.UnixMilli() || store.to != now.Add(24*time.Hour).UnixMilli() {
		t.Fatalf("unexpected window [%d, %d)", store.from, store.to)
	}
}

func TestSweep_SMSAloneCounts(t *testing.T) {
	appt := &entity.Appointment{ID: uuid.New()}
	store := &fakeStore{due: []*entity.Appointment{appt}}
	notifier := &fakeNotifier{
		email: map[uuid.UUID]integration.Result{appt.ID: integration.Skipped("email", "disabled")},
		sms:   integration.OK("sms"),
	}

	sent, err := New(store, notifier, time.Hour).Sweep(context.Background())
	if err != nil || sent != 1 {
		t.Fatalf("expected 1 reminder, got %d, %v", sent, err)
	}
}

func TestSweep_Errors(t *testing.T) {
	store := &fakeStore{findErr: errors.New("db down")}
	if _, err := New(store, &fakeNotifier{}, time.Hour).Sweep(context.Background()); err == nil {
		t.Fatal("expected store error")
	}

	appt := &entity.Appointment{ID: uuid.New()}
	store = &fakeStore{due: []*entity.Appointment{appt}, markFailed: true}
	notifier := &fakeNotifier{email: map[uuid.UUID]integration.Result{appt.ID: integration.OK("email")}}
	sent, err := New(store, notifier, time.Hour).Sweep(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("expected unmarked reminder not to count, got %d, %v", sent, err)
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	d := New(&fakeStore{}, &fakeNotifier{}, time.Hour)
	if err := d.Start("every minute"); err == nil {
		t.Fatal("expected invalid cron schedule to be rejected")
	}
	<-d.Stop().Done()
}
