package models

import (
	"strings"
	"time"
)

type PackageStatus string

const (
	StatusArrived   PackageStatus = "ARRIVED"
	StatusPicked    PackageStatus = "PICKED"
	StatusDestroyed PackageStatus = "DESTROYED"
)

// IsTerminal reports whether no further transition may leave the status.
func (s PackageStatus) IsTerminal() bool {
	return s == StatusPicked || s == StatusDestroyed
}

type PackageSize string

const (
	SizeS PackageSize = "S"
	SizeM PackageSize = "M"
	SizeL PackageSize = "L"
)

func (s PackageSize) IsValid() bool {
	return s == SizeS || s == SizeM || s == SizeL
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
	NotificationSkipped NotificationStatus = "SKIPPED"
)

type PackageDates struct {
	Arrived   time.Time  `json:"arrived" gorm:"column:arrived_at;not null;index"`
	Picked    *time.Time `json:"picked,omitempty" gorm:"column:picked_at"`
	Destroyed *time.Time `json:"destroyed,omitempty" gorm:"column:destroyed_at"`
}

type Package struct {
	ID                 string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TrackingNumber     string             `json:"trackingNumber" gorm:"uniqueIndex;not null"`
	RecipientName      string             `json:"recipientName" gorm:"not null"`
	RecipientPhone     string             `json:"recipientPhone" gorm:"index;not null"`
	UnitNumber         string             `json:"unitNumber"`
	Size               PackageSize        `json:"size" gorm:"type:varchar(1);not null"`
	LocationID         string             `json:"locationId" gorm:"index;not null"`
	Status             PackageStatus      `json:"status" gorm:"type:varchar(16);index;not null;default:'ARRIVED'"`
	Dates              PackageDates       `json:"dates" gorm:"embedded"`
	FeePaid            int64              `json:"feePaid" gorm:"not null;default:0"`
	PaymentTimestamp   *time.Time         `json:"paymentTimestamp,omitempty"`
	NotificationStatus NotificationStatus `json:"notificationStatus" gorm:"type:varchar(16);default:'PENDING'"`
	Notes              string             `json:"notes"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// NormalizeTrackingNumber gives the stored form used for case-insensitive lookup.
func NormalizeTrackingNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// PackagePatch is a conditional update: it applies only while the stored
// package is still in ExpectStatus, and, with ExpectUnpaid, has no fee recorded.
type PackagePatch struct {
	ExpectStatus PackageStatus
	ExpectUnpaid bool

	Status           *PackageStatus
	FeePaid          *int64
	PaymentTimestamp *time.Time
	PickedAt         *time.Time
	DestroyedAt      *time.Time
}

// Check reports why the patch must not be applied to pkg, or nil.
func (p PackagePatch) Check(pkg *Package) error {
	if pkg.Status != p.ExpectStatus {
		if pkg.Status.IsTerminal() {
			return ErrAlreadyFinalized
		}
		return ErrConflict
	}
	if p.ExpectUnpaid && pkg.FeePaid > 0 {
		return ErrAlreadyPaid
	}
	return nil
}

func (p PackagePatch) Apply(pkg *Package) {
	if p.Status != nil {
		pkg.Status = *p.Status
	}
	if p.FeePaid != nil {
		pkg.FeePaid = *p.FeePaid
	}
	if p.PaymentTimestamp != nil {
		t := *p.PaymentTimestamp
		pkg.PaymentTimestamp = &t
	}
	if p.PickedAt != nil {
		t := *p.PickedAt
		pkg.Dates.Picked = &t
	}
	if p.DestroyedAt != nil {
		t := *p.DestroyedAt
		pkg.Dates.Destroyed = &t
	}
}

// Columns maps the patch to database column updates.
func (p PackagePatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.FeePaid != nil {
		cols["fee_paid"] = *p.FeePaid
	}
	if p.PaymentTimestamp != nil {
		cols["payment_timestamp"] = *p.PaymentTimestamp
	}
	if p.PickedAt != nil {
		cols["picked_at"] = *p.PickedAt
	}
	if p.DestroyedAt != nil {
		cols["destroyed_at"] = *p.DestroyedAt
	}
	return cols
}
