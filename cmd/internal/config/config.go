package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type SMSConfig struct {
	// Provider is "twilio", "sns" or empty for disabled.
	Provider         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	AWSRegion        string
	SNSSenderID      string
}

type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CalendarID   string
}

func (g GoogleCalendarConfig) Enabled() bool {
	return g.ClientID != "" && g.TokenFile != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

type Config struct {
	ListenAddr string
	LogLevel   string

	DBDriver string
	DBDSN    string
	SeedFile string

	TimeZone     string
	Location     *time.Location
	SlotDuration time.Duration

	JWTSecret string

	SMTP           SMTPConfig
	SMS            SMSConfig
	GoogleCalendar GoogleCalendarConfig
	Redis          RedisConfig
	StatsCacheTTL  time.Duration

	ReminderCron string
	ReminderLead time.Duration

	OTEL OTELConfig
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr: envString("LISTEN_ADDR", ":6060"),
		LogLevel:   envString("LOG_LEVEL", "info"),
		DBDriver:   envString("DB_DRIVER", "sqlite"),
		DBDSN:      envString("DB_DSN", "./database.db"),
		SeedFile:   envString("SEED_FILE", ""),
		TimeZone:   envString("TIME_ZONE", "America/Sao_Paulo"),
		JWTSecret:  envString("JWT_SECRET", ""),
		SMTP: SMTPConfig{
			Host:     envString("EMAIL_HOST", ""),
			Username: envString("EMAIL_HOST_USER", ""),
			Password: envString("EMAIL_HOST_PASSWORD", ""),
			From:     envString("DEFAULT_FROM_EMAIL", "no-reply@smallcrm.local"),
		},
		SMS: SMSConfig{
			Provider:         strings.ToLower(envString("SMS_PROVIDER", "")),
			TwilioAccountSID: envString("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  envString("TWILIO_AUTH_TOKEN", ""),
			TwilioFrom:       envString("TWILIO_PHONE_NUMBER", ""),
			AWSRegion:        envString("AWS_REGION", "us-east-1"),
			SNSSenderID:      envString("SNS_SENDER_ID", ""),
		},
		GoogleCalendar: GoogleCalendarConfig{
			ClientID:     envString("GOOGLE_CALENDAR_CLIENT_ID", ""),
			ClientSecret: envString("GOOGLE_CALENDAR_CLIENT_SECRET", ""),
			TokenFile:    envString("GOOGLE_CALENDAR_TOKEN_FILE", "token.json"),
			CalendarID:   envString("GOOGLE_CALENDAR_ID", "primary"),
		},
		Redis: RedisConfig{
			Addr:     envString("REDIS_ADDR", ""),
			Password: envString("REDIS_PASSWORD", ""),
		},
		ReminderCron: envString("REMINDER_CRON", "*/15 * * * *"),
		OTEL: OTELConfig{
			Endpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
	}

	var err error
	if cfg.SMTP.Port, err = envInt("EMAIL_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SlotDuration, err = envMinutes("SLOT_DURATION_MINUTES", 60); err != nil {
		return nil, err
	}
	if cfg.StatsCacheTTL, err = envMinutes("STATS_CACHE_TTL_MINUTES", 5); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = envMinutes("REMINDER_LEAD_MINUTES", 24*60); err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled, err = envBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTEL.SampleRatio, err = envFloat("OTEL_SAMPLING_RATIO", 1); err != nil {
		return nil, err
	}

	if cfg.Location, err = time.LoadLocation(cfg.TimeZone); err != nil {
		return nil, fmt.Errorf("TIME_ZONE: %w", err)
	}
	if cfg.SlotDuration <= 0 {
		return nil, errors.New("SLOT_DURATION_MINUTES must be positive")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.SMS.Provider {
	case "", "twilio", "sns":
	default:
		return nil, fmt.Errorf("SMS_PROVIDER: unknown provider %q", cfg.SMS.Provider)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envMinutes(key string, fallback int) (time.Duration, error) {
	v, err := envInt(key, fallback)
	return time.Duration(v) * time.Minute, err
}

func envBool(key string, fallback bool) (bool, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, fmt.Errorf("%s: expected a ratio between 0 and 1", key)
	}
	return v, nil
}
