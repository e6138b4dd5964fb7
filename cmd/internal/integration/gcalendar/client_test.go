package gcalendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"smallcrm/cmd/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return NewGoogleClient(svc, "")
}

func TestGoogleClient_CreateEvent(t *testing.T) {
	var got calendar.Event
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1"}`))
	})

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	id, err := client.CreateEvent(context.Background(), &Event{
		Summary:       "Consultation",
		Start:         start,
		End:           start.Add(time.Hour),
		TimeZone:      "UTC",
		AttendeeEmail: "john@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "evt-1" {
		t.Fatalf("expected evt-1, got %q", id)
	}
	if !strings.HasSuffix(path, "/calendars/primary/events") {
		t.Fatalf("unexpected request path %s", path)
	}
	if got.Summary != "Consultation" || got.Start.DateTime != "2026-03-02T09:00:00Z" {
		t.Fatalf("unexpected event payload %+v", got)
	}
	if len(got.Attendees) != 1 || got.Reminders == nil || len(got.Reminders.Overrides) != 2 {
		t.Fatal("expected attendee and reminder overrides on create")
	}
}

func TestGoogleClient_DeleteEvent(t *testing.T) {
	var method, path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteEvent(context.Background(), "evt-1"); err != nil {
		t.Fatal(err)
	}
	if method != http.MethodDelete || !strings.HasSuffix(path, "/events/evt-1") {
		t.Fatalf("unexpected request %s %s", method, path)
	}
}

func TestNew(t *testing.T) {
	client, err := New(context.Background(), config.GoogleCalendarConfig{})
	if err != nil || client.Enabled() {
		t.Fatalf("expected disabled client, got %v, %v", client, err)
	}

	missing := config.GoogleCalendarConfig{ClientID: "id", TokenFile: filepath.Join(t.TempDir(), "nope.json")}
	if _, err := New(context.Background(), missing); err == nil {
		t.Fatal("expected error for missing token file")
	}

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	client, err = New(context.Background(), config.GoogleCalendarConfig{ClientID: "id", TokenFile: tokenFile})
	if err != nil || !client.Enabled() {
		t.Fatalf("expected google client, got %v, %v", client, err)
	}
}
