package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerProspect CustomerStatus = "prospect"
	CustomerLost     CustomerStatus = "lost"
)

// CanBook reports whether new appointments may be made for a customer in this status.
func (s CustomerStatus) CanBook() bool {
	return s == CustomerActive || s == CustomerProspect
}

type CustomerSegment struct {
	ID          int    `gorm:"primaryKey"`
	Name        string `gorm:"size:100;uniqueIndex;not null"`
	Description string
	Color       string `gorm:"size:7;not null"`
	CreatedAt   int64  `gorm:"not null;autoCreateTime:milli"`
}

type Customer struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName        string    `gorm:"size:100;not null"`
	LastName         string    `gorm:"size:100;not null"`
	Email            string    `gorm:"uniqueIndex;not null"`
	Phone            string    `gorm:"size:20"`
	Address          string
	City             string          `gorm:"size:100"`
	State            string          `gorm:"size:50"`
	PostalCode       string          `gorm:"size:20"`
	Country          string          `gorm:"size:100"`
	Company          string          `gorm:"size:200"`
	Position         string          `gorm:"size:100"`
	SegmentID        *int            // References: customer_segments(id)
	Status           CustomerStatus  `gorm:"size:20;not null;index"`
	TotalRevenue     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Notes            string
	FollowUpRequired bool  `gorm:"not null"`
	CreatedByID      *int  // References: users(id)
	CreatedAt        int64 `gorm:"not null;autoCreateTime:milli;index"`
	UpdatedAt        int64 `gorm:"not null;autoUpdateTime:milli"`

	// Relations
	Segment *CustomerSegment `gorm:"foreignKey:SegmentID;references:ID"`
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

type InteractionType string

const (
	InteractionEmail    InteractionType = "email"
	InteractionPhone    InteractionType = "phone"
	InteractionMeeting  InteractionType = "meeting"
	InteractionNote     InteractionType = "note"
	InteractionPurchase InteractionType = "purchase"
	InteractionSupport  InteractionType = "support"
)

type CustomerInteraction struct {
	ID              int             `gorm:"primaryKey"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"` // References: customers(id)
	InteractionType InteractionType `gorm:"size:20;not null"`
	Subject         string          `gorm:"size:200;not null"`
	Description     string          `gorm:"not null"`
	CreatedByID     int             `gorm:"not null"`
	CreatedAt       int64           `gorm:"not null;autoCreateTime:milli"`
}

type Purchase struct {
	ID             int             `gorm:"primaryKey"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index"` // References: customers(id)
	ProductService string          `gorm:"size:200;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PurchaseDate   int64           `gorm:"not null"`
	Description    string
}
