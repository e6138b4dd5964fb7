package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/integration"
	"smallcrm/cmd/internal/integration/email"
	"smallcrm/cmd/internal/integration/gcalendar"
	"smallcrm/cmd/internal/integration/sms"
)

type fakeMail struct {
	sent []*email.Message
	err  error
}

func (f *fakeMail) Enabled() bool { return true }

func (f *fakeMail) Send(_ context.Context, msg *email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSMS struct {
	to, body string
}

func (f *fakeSMS) Enabled() bool { return true }

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.to, f.body = to, body
	return nil
}

type fakeCalendar struct {
	created, updated, deleted int
}

func (f *fakeCalendar) Enabled() bool { return true }

func (f *fakeCalendar) CreateEvent(_ context.Context, _ *gcalendar.Event) (string, error) {
	f.created++
	return "evt-1", nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _ string, _ *gcalendar.Event) error {
	f.updated++
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ string) error {
	f.deleted++
	return nil
}

func testAppointment() *entity.Appointment {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return &entity.Appointment{
		Title:    "Consultation",
		StartsAt: start.UnixMilli(),
		EndsAt:   start.Add(time.Hour).UnixMilli(),
		Customer: &entity.Customer{FirstName: "John", LastName: "Doe", Email: "john@example.com", Phone: "+5511999999999"},
	}
}

func TestNotifier_Emails(t *testing.T) {
	mail := &fakeMail{}
	loc := time.FixedZone("BRT", -3*60*60)
	n := New(mail, sms.NewNoopSender(), gcalendar.NewNoopClient(), loc)

	res := n.SendConfirmation(context.Background(), testAppointment())
	if !res.Succeeded() {
		t.Fatalf("expected success, got %s", res)
	}
	if len(mail.sent) != 1 || mail.sent[0].To != "john@example.com" {
		t.Fatal("expected one email to the customer")
	}
	if !strings.Contains(mail.sent[0].Text, "09:00 - 10:00") {
		t.Fatalf("expected times in the business zone:\n%s", mail.sent[0].Text)
	}

	mail.err = errors.New("smtp down")
	if res := n.SendCancellation(context.Background(), testAppointment()); res.Outcome != integration.OutcomeFailed {
		t.Fatalf("expected failure, got %s", res)
	}

	noMail := New(email.NewNoopSender(), sms.NewNoopSender(), gcalendar.NewNoopClient(), nil)
	if res := noMail.SendReminder(context.Background(), testAppointment()); res.Outcome != integration.OutcomeSkipped {
		t.Fatalf("expected skip when email is disabled, got %s", res)
	}
}

func TestNotifier_SMSReminder(t *testing.T) {
	text := &fakeSMS{}
	n := New(email.NewNoopSender(), text, gcalendar.NewNoopClient(), time.UTC)

	if res := n.SendSMSReminder(context.Background(), testAppointment()); !res.Succeeded() {
		t.Fatalf("expected success, got %s", res)
	}
	if text.to != "+5511999999999" || !strings.Contains(text.body, "02/03/2026 at 12:00") {
		t.Fatalf("unexpected sms to=%s body=%q", text.to, text.body)
	}
	if !strings.Contains(text.body, "Location: to be confirmed") {
		t.Fatalf("expected placeholder location, got %q", text.body)
	}

	noPhone := testAppointment()
	noPhone.Customer.Phone = ""
	if res := n.SendSMSReminder(context.Background(), noPhone); res.Outcome != integration.OutcomeSkipped {
		t.Fatalf("expected skip without phone, got %s", res)
	}

	disabled := New(email.NewNoopSender(), sms.NewNoopSender(), gcalendar.NewNoopClient(), time.UTC)
	if res := disabled.SendSMSReminder(context.Background(), testAppointment()); res.Outcome != integration.OutcomeSkipped {
		t.Fatalf("expected skip when sms is disabled, got %s", res)
	}
}

func TestNotifier_Calendar(t *testing.T) {
	cal := &fakeCalendar{}
	n := New(email.NewNoopSender(), sms.NewNoopSender(), cal, time.UTC)
	appt := testAppointment()

	if res := n.DeleteCalendarEvent(context.Background(), appt); res.Outcome != integration.OutcomeSkipped {
		t.Fatalf("expected skip for unsynced appointment, got %s", res)
	}

	id, res := n.UpdateCalendarEvent(context.Background(), appt)
	if !res.Succeeded() || id != "evt-1" || cal.created != 1 {
		t.Fatalf("expected update of unsynced appointment to create, got %s %q", res, id)
	}

	appt.GoogleEventID = id
	if _, res := n.UpdateCalendarEvent(context.Background(), appt); !res.Succeeded() || cal.updated != 1 {
		t.Fatalf("expected update, got %s", res)
	}
	if res := n.DeleteCalendarEvent(context.Background(), appt); !res.Succeeded() || cal.deleted != 1 {
		t.Fatalf("expected delete, got %s", res)
	}
}
