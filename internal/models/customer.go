package models

import (
	"time"
)

type Customer struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name             string     `json:"name"`
	PhoneNumber      string     `json:"phoneNumber" gorm:"uniqueIndex;not null"`
	IsMember         bool       `json:"isMember" gorm:"default:false"`
	MembershipExpiry *time.Time `json:"membershipExpiry,omitempty"`
	// Version guards membership changes against concurrent purchases.
	Version   int64     `json:"-" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActiveMember is true only while the expiry lies strictly after now.
func (c *Customer) IsActiveMember(now time.Time) bool {
	if c == nil || !c.IsMember || c.MembershipExpiry == nil {
		return false
	}
	return c.MembershipExpiry.After(now)
}
