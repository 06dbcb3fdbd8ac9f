package models

import (
	"time"
)

type Location struct {
	ID               string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name             string        `json:"name" gorm:"not null"`
	Address          string        `json:"address"`
	Pricing          PricingSchema `json:"pricing" gorm:"type:jsonb;not null"`
	EnableDelivery   bool          `json:"enableDelivery" gorm:"default:false"`
	DeliveryFee      int64         `json:"deliveryFee"`
	EnableMembership bool          `json:"enableMembership" gorm:"default:false"`
	MembershipFee    int64         `json:"membershipFee"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
