package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TIME_ZONE", "UTC")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SlotDuration != time.Hour {
		t.Fatalf("expected 60m default slot duration, got %s", cfg.SlotDuration)
	}
	if cfg.DBDriver != "sqlite" || cfg.ListenAddr != ":6060" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ReminderLead != 24*time.Hour {
		t.Fatalf("expected 24h reminder lead, got %s", cfg.ReminderLead)
	}
	if cfg.SMTP.Enabled() || cfg.GoogleCalendar.Enabled() {
		t.Fatal("integrations must be disabled by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("SLOT_DURATION_MINUTES", "30")
	t.Setenv("SMS_PROVIDER", "SNS")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SlotDuration != 30*time.Minute {
		t.Fatalf("expected 30m, got %s", cfg.SlotDuration)
	}
	if cfg.SMS.Provider != "sns" || !cfg.OTEL.Enabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {"TIME_ZONE": "UTC"},
		"bad slot":        {"JWT_SECRET": "x", "TIME_ZONE": "UTC", "SLOT_DURATION_MINUTES": "0"},
		"non-number slot": {"JWT_SECRET": "x", "TIME_ZONE": "UTC", "SLOT_DURATION_MINUTES": "hour"},
		"bad zone":        {"JWT_SECRET": "x", "TIME_ZONE": "Mars/Olympus"},
		"bad provider":    {"JWT_SECRET": "x", "TIME_ZONE": "UTC", "SMS_PROVIDER": "pigeon"},
		"bad ratio":       {"JWT_SECRET": "x", "TIME_ZONE": "UTC", "OTEL_SAMPLING_RATIO": "2"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
