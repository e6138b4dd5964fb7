package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/integration"
)

type AppointmentStore interface {
	FindDueReminders(ctx context.Context, from, to int64) ([]*entity.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

type Notifier interface {
	SendReminder(ctx context.Context, appt *entity.Appointment) integration.Result
	SendSMSReminder(ctx context.Context, appt *entity.Appointment) integration.Result
}

// Dispatcher periodically sends reminders for active appointments starting
// within the lead time. An appointment is reminded once: it is marked as soon
// as one channel delivered.
type Dispatcher struct {
	store    AppointmentStore
	notifier Notifier
	lead     time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

func New(store AppointmentStore, notifier Notifier, lead time.Duration) *Dispatcher {
	return &Dispatcher{store: store, notifier: notifier, lead: lead, now: time.Now}
}

// Start schedules Sweep with a standard five-field cron expression.
// Runs never overlap: a tick is skipped while the previous sweep is running.
func (d *Dispatcher) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, d.tick); err != nil {
		return err
	}
	d.cron = c
	c.Start()
	log.Infof("reminder dispatcher scheduled (%s, lead %s)", schedule, d.lead)
	return nil
}

// Stop prevents further runs and returns a context done when the running sweep finishes.
func (d *Dispatcher) Stop() context.Context {
	if d.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return d.cron.Stop()
}

func (d *Dispatcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := d.Sweep(ctx)
	if err != nil {
		log.Errorf("reminder sweep failed: %v", err)
		return
	}
	if sent > 0 {
		log.Infof("reminder sweep sent %d reminders", sent)
	}
}

// Sweep sends the due reminders once and returns how many appointments were reminded.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("smallcrm/reminder").Start(ctx, "reminder.sweep")
	defer span.End()

	now := d.now()
	due, err := d.store.FindDueReminders(ctx, now.UnixMilli(), now.Add(d.lead).UnixMilli())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("reminder.due", len(due)))

	sent := 0
	for _, appt := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		results := []integration.Result{
			d.notifier.SendReminder(ctx, appt),
			d.notifier.SendSMSReminder(ctx, appt),
		}
		delivered := false
		for _, res := range results {
			res.Log("reminder for appointment " + appt.ID.String())
			delivered = delivered || res.Succeeded()
		}
		if !delivered {
			continue
		}

		if err := d.store.MarkReminderSent(ctx, appt.ID); err != nil {
			log.Errorf("failed to mark reminder sent for appointment %s: %v", appt.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
