package gcalendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"smallcrm/cmd/internal/config"
)

// Event is the provider-neutral shape of a calendar entry.
type Event struct {
	Summary       string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeEmail string
}

type Client interface {
	CreateEvent(ctx context.Context, ev *Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev *Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	Enabled() bool
}

// New returns a Google Calendar client when a client id and a
// pre-authorized token file are configured, and a no-op client otherwise.
func New(ctx context.Context, cfg config.GoogleCalendarConfig) (Client, error) {
	if !cfg.Enabled() {
		return NewNoopClient(), nil
	}

	tok, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	return NewGoogleClient(svc, cfg.CalendarID), nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("google calendar token: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("google calendar token %s: %w", path, err)
	}
	return tok, nil
}

type GoogleClient struct {
	svc        *calendar.Service
	calendarID string
}

func NewGoogleClient(svc *calendar.Service, calendarID string) *GoogleClient {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleClient{svc: svc, calendarID: calendarID}
}

func (g *GoogleClient) Enabled() bool {
	return true
}

func (g *GoogleClient) CreateEvent(ctx context.Context, ev *Event) (string, error) {
	created, err := g.svc.Events.Insert(g.calendarID, toGoogleEvent(ev, true)).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (g *GoogleClient) UpdateEvent(ctx context.Context, eventID string, ev *Event) error {
	_, err := g.svc.Events.Patch(g.calendarID, eventID, toGoogleEvent(ev, false)).Context(ctx).Do()
	return err
}

func (g *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	return g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
}

func toGoogleEvent(ev *Event, withReminders bool) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	if !withReminders {
		return out
	}

	if ev.AttendeeEmail != "" {
		out.Attendees = []*calendar.EventAttendee{{Email: ev.AttendeeEmail}}
	}
	out.Reminders = &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 60},
		},
		ForceSendFields: []string{"UseDefault"},
	}
	return out
}

type NoopClient struct{}

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (n *NoopClient) Enabled() bool {
	return false
}

func (n *NoopClient) CreateEvent(_ context.Context, _ *Event) (string, error) {
	return "", nil
}

func (n *NoopClient) UpdateEvent(_ context.Context, _ string, _ *Event) error {
	return nil
}

func (n *NoopClient) DeleteEvent(_ context.Context, _ string) error {
	return nil
}
