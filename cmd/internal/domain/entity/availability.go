package entity

// Weekdays are numbered Monday = 0 through Sunday = 6.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// AvailabilityWindow is a recurring weekly interval during which a resource
// can be booked. At most one window exists per (resource, weekday, start).
type AvailabilityWindow struct {
	ID         int       `gorm:"primaryKey"`
	ResourceID int       `gorm:"not null;uniqueIndex:idx_availability_window"` // References: users(id)
	Weekday    int       `gorm:"not null;uniqueIndex:idx_availability_window"`
	StartTime  TimeOfDay `gorm:"type:varchar(5);not null;uniqueIndex:idx_availability_window"`
	EndTime    TimeOfDay `gorm:"type:varchar(5);not null"`
	IsActive   bool      `gorm:"not null"`
}
