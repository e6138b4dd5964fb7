package email

import (
	"context"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	data := AppointmentData{
		CustomerName: "John Doe",
		Title:        "Consultation <VIP>",
		TypeName:     "Consultation",
		Date:         "02/03/2026",
		StartTime:    "09:00",
		EndTime:      "10:00",
		Location:     "Room 1",
	}

	msg, err := Render(Confirmation, "john@example.com", data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "Appointment confirmed - Consultation <VIP>" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Date: 02/03/2026, 09:00 - 10:00") || !strings.Contains(msg.Text, "Location: Room 1") {
		t.Fatalf("unexpected text body:\n%s", msg.Text)
	}
	if strings.Contains(msg.Text, "Meeting link") {
		t.Fatal("empty meeting link must be omitted")
	}
	if !strings.Contains(msg.HTML, "Consultation &lt;VIP&gt;") {
		t.Fatalf("expected escaped title in html body:\n%s", msg.HTML)
	}
}

func TestRender_UnknownKind(t *testing.T) {
	if _, err := Render("welcome", "a@b.c", AppointmentData{}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSMTPSender_Compose(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "user", "pass", "crm@example.com")
	m := s.compose(&Message{To: "john@example.com", Subject: "Hi", Text: "plain", HTML: "<p>html</p>"})

	if got := m.GetHeader("From"); len(got) != 1 || got[0] != "crm@example.com" {
		t.Fatalf("unexpected From header %v", got)
	}
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "john@example.com" {
		t.Fatalf("unexpected To header %v", got)
	}
}

func TestSMTPSender_HonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender("smtp.invalid", 587, "", "", "crm@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, &Message{To: "x@example.com"}); err == nil {
		t.Fatal("expected cancelled context to abort the send")
	}
}
