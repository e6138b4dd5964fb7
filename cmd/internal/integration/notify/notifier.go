package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/integration"
	"smallcrm/cmd/internal/integration/email"
	"smallcrm/cmd/internal/integration/gcalendar"
	"smallcrm/cmd/internal/integration/sms"
)

const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelCalendar = "google-calendar"
)

var errMissingRelations = errors.New("appointment customer not loaded")

// Notifier performs the best-effort side effects of appointment changes.
// Appointments passed in must have Customer loaded; AppointmentType and
// AssignedTo are used when present.
type Notifier struct {
	Email    email.Sender
	SMS      sms.Sender
	Calendar gcalendar.Client
	Location *time.Location
}

func New(mail email.Sender, text sms.Sender, cal gcalendar.Client, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{Email: mail, SMS: text, Calendar: cal, Location: loc}
}

func (n *Notifier) SendConfirmation(ctx context.Context, appt *entity.Appointment) integration.Result {
	return n.sendEmail(ctx, email.Confirmation, appt)
}

func (n *Notifier) SendReminder(ctx context.Context, appt *entity.Appointment) integration.Result {
	return n.sendEmail(ctx, email.Reminder, appt)
}

func (n *Notifier) SendCancellation(ctx context.Context, appt *entity.Appointment) integration.Result {
	return n.sendEmail(ctx, email.Cancellation, appt)
}

func (n *Notifier) SendSMSReminder(ctx context.Context, appt *entity.Appointment) integration.Result {
	if !n.SMS.Enabled() {
		return integration.Skipped(ChannelSMS, "sms disabled")
	}
	if appt.Customer == nil {
		return integration.Failed(ChannelSMS, errMissingRelations)
	}
	if strings.TrimSpace(appt.Customer.Phone) == "" {
		return integration.Skipped(ChannelSMS, "customer has no phone")
	}

	location := appt.Location
	if location == "" {
		location = "to be confirmed"
	}
	start := time.UnixMilli(appt.StartsAt).In(n.Location)
	body := fmt.Sprintf("Reminder: you have an appointment on %s at %s.\n%s\nLocation: %s\nTo reschedule or cancel, please contact us.",
		start.Format("02/01/2006"), start.Format("15:04"), appt.Title, location)

	if err := n.SMS.Send(ctx, appt.Customer.Phone, body); err != nil {
		return integration.Failed(ChannelSMS, err)
	}
	return integration.OK(ChannelSMS)
}

// CreateCalendarEvent returns the provider's event id on success.
func (n *Notifier) CreateCalendarEvent(ctx context.Context, appt *entity.Appointment) (string, integration.Result) {
	if !n.Calendar.Enabled() {
		return "", integration.Skipped(ChannelCalendar, "calendar sync disabled")
	}
	id, err := n.Calendar.CreateEvent(ctx, n.toEvent(appt))
	if err != nil {
		return "", integration.Failed(ChannelCalendar, err)
	}
	return id, integration.OK(ChannelCalendar)
}

// UpdateCalendarEvent falls back to creating the event when the appointment
// was never synced; the returned id is the one now associated with it.
func (n *Notifier) UpdateCalendarEvent(ctx context.Context, appt *entity.Appointment) (string, integration.Result) {
	if appt.GoogleEventID == "" {
		return n.CreateCalendarEvent(ctx, appt)
	}
	if !n.Calendar.Enabled() {
		return appt.GoogleEventID, integration.Skipped(ChannelCalendar, "calendar sync disabled")
	}
	if err := n.Calendar.UpdateEvent(ctx, appt.GoogleEventID, n.toEvent(appt)); err != nil {
		return appt.GoogleEventID, integration.Failed(ChannelCalendar, err)
	}
	return appt.GoogleEventID, integration.OK(ChannelCalendar)
}

func (n *Notifier) DeleteCalendarEvent(ctx context.Context, appt *entity.Appointment) integration.Result {
	if appt.GoogleEventID == "" {
		return integration.Skipped(ChannelCalendar, "appointment has no calendar event")
	}
	if !n.Calendar.Enabled() {
		return integration.Skipped(ChannelCalendar, "calendar sync disabled")
	}
	if err := n.Calendar.DeleteEvent(ctx, appt.GoogleEventID); err != nil {
		return integration.Failed(ChannelCalendar, err)
	}
	return integration.OK(ChannelCalendar)
}

func (n *Notifier) sendEmail(ctx context.Context, kind email.Kind, appt *entity.Appointment) integration.Result {
	if !n.Email.Enabled() {
		return integration.Skipped(ChannelEmail, "email disabled")
	}
	if appt.Customer == nil {
		return integration.Failed(ChannelEmail, errMissingRelations)
	}

	msg, err := email.Render(kind, appt.Customer.Email, n.emailData(appt))
	if err != nil {
		return integration.Failed(ChannelEmail, err)
	}
	if err := n.Email.Send(ctx, msg); err != nil {
		return integration.Failed(ChannelEmail, err)
	}
	return integration.OK(ChannelEmail)
}

func (n *Notifier) emailData(appt *entity.Appointment) email.AppointmentData {
	start := time.UnixMilli(appt.StartsAt).In(n.Location)
	end := time.UnixMilli(appt.EndsAt).In(n.Location)

	data := email.AppointmentData{
		CustomerName: appt.Customer.FullName(),
		Title:        appt.Title,
		Date:         start.Format("02/01/2006"),
		StartTime:    start.Format("15:04"),
		EndTime:      end.Format("15:04"),
		Location:     appt.Location,
		MeetingURL:   appt.MeetingURL,
		Description:  appt.Description,
	}
	if appt.AppointmentType != nil {
		data.TypeName = appt.AppointmentType.Name
	}
	if appt.AssignedTo != nil {
		data.StaffName = appt.AssignedTo.FullName()
	}
	return data
}

func (n *Notifier) toEvent(appt *entity.Appointment) *gcalendar.Event {
	ev := &gcalendar.Event{
		Summary:     appt.Title,
		Description: appt.Description,
		Location:    appt.Location,
		Start:       time.UnixMilli(appt.StartsAt).In(n.Location),
		End:         time.UnixMilli(appt.EndsAt).In(n.Location),
		TimeZone:    n.Location.String(),
	}
	if appt.Customer != nil {
		ev.Description = strings.TrimSpace("Customer: " + appt.Customer.FullName() + "\n" + appt.Description)
		ev.AttendeeEmail = appt.Customer.Email
	}
	return ev
}
