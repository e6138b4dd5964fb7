package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// ActiveStatuses are the statuses that block a resource's time.
var ActiveStatuses = []AppointmentStatus{StatusScheduled, StatusConfirmed}

func (s AppointmentStatus) IsActive() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

type AppointmentType struct {
	ID              int    `gorm:"primaryKey"`
	Name            string `gorm:"size:100;uniqueIndex;not null"`
	Description     string
	DurationMinutes int             `gorm:"not null"`
	Color           string          `gorm:"size:7;not null"`
	Price           decimal.Decimal `gorm:"type:decimal(8,2);not null"`
}

type Appointment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CustomerID        uuid.UUID         `gorm:"type:uuid;not null;index"` // References: customers(id)
	AppointmentTypeID int               `gorm:"not null"`                 // References: appointment_types(id)
	ResourceID        int               `gorm:"not null;index"`           // References: users(id)
	StartsAt          int64             `gorm:"not null;index"`
	EndsAt            int64             `gorm:"not null"`
	Status            AppointmentStatus `gorm:"size:20;not null;index"`
	Title             string            `gorm:"size:200;not null"`
	Description       string
	Location          string `gorm:"size:200"`
	MeetingURL        string
	MeetingID         string `gorm:"size:100"`
	ReminderSent      bool   `gorm:"not null"`
	ConfirmationSent  bool   `gorm:"not null"`
	GoogleEventID     string `gorm:"size:255"`
	CreatedByID       *int
	CreatedAt         int64 `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt         int64 `gorm:"not null;autoUpdateTime:milli"`

	// Relations
	Customer        *Customer        `gorm:"foreignKey:CustomerID;references:ID"`
	AppointmentType *AppointmentType `gorm:"foreignKey:AppointmentTypeID;references:ID"`
	AssignedTo      *User            `gorm:"foreignKey:ResourceID;references:ID"`
}

func (a *Appointment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type AppointmentNote struct {
	ID            int       `gorm:"primaryKey"`
	AppointmentID uuid.UUID `gorm:"type:uuid;not null;index"` // References: appointments(id)
	Note          string    `gorm:"not null"`
	CreatedByID   int       `gorm:"not null"`
	CreatedAt     int64     `gorm:"not null;autoCreateTime:milli"`

	CreatedBy *User `gorm:"foreignKey:CreatedByID;references:ID"`
}
