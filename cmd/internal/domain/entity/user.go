package entity

import "strings"

// User is a staff member. Users are the resources appointments are assigned to.
type User struct {
	ID        int    `gorm:"primaryKey"`
	SubUUID   string `gorm:"uniqueIndex;not null"` // token subject
	Username  string `gorm:"size:80;not null"`
	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
	Email     string `gorm:"uniqueIndex;not null"`
	IsActive  bool   `gorm:"not null"`
	IsAdmin   bool   `gorm:"not null"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt int64  `gorm:"not null;autoUpdateTime:milli"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
