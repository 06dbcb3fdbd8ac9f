// Package lifecycle holds the package state machine: ARRIVED moves to PICKED
// or DESTROYED, and both are terminal. Transitions are returned as conditional
// patches; the repository applies them only if the package is still ARRIVED.
package lifecycle

import (
	"errors"
	"time"

	"pickpoint/internal/models"
)

var (
	ErrAlreadyFinalized = models.ErrAlreadyFinalized
	ErrAlreadyPaid      = models.ErrAlreadyPaid
	ErrInvalidAmount    = errors.New("amount must be positive")
)

// Pickup freezes the fee and stamps the pickup time. A fee recorded earlier by
// MarkPaid is kept as is.
func Pickup(pkg *models.Package, fee int64, now time.Time) (models.PackagePatch, error) {
	if pkg.Status.IsTerminal() {
		return models.PackagePatch{}, ErrAlreadyFinalized
	}

	status := models.StatusPicked
	patch := models.PackagePatch{
		ExpectStatus: models.StatusArrived,
		Status:       &status,
		PickedAt:     timePtr(now),
	}
	if pkg.FeePaid > 0 {
		return patch, nil
	}

	if fee < 0 {
		fee = 0
	}
	patch.ExpectUnpaid = true
	patch.FeePaid = &fee
	patch.PaymentTimestamp = timePtr(now)
	return patch, nil
}

// Destroy never charges a fee.
func Destroy(pkg *models.Package, now time.Time) (models.PackagePatch, error) {
	if pkg.Status.IsTerminal() {
		return models.PackagePatch{}, ErrAlreadyFinalized
	}

	status := models.StatusDestroyed
	return models.PackagePatch{
		ExpectStatus: models.StatusArrived,
		Status:       &status,
		DestroyedAt:  timePtr(now),
	}, nil
}

// MarkPaid records a pre-payment while the package stays ARRIVED.
func MarkPaid(pkg *models.Package, amount int64, now time.Time) (models.PackagePatch, error) {
	if pkg.Status.IsTerminal() {
		return models.PackagePatch{}, ErrAlreadyFinalized
	}
	if pkg.FeePaid > 0 {
		return models.PackagePatch{}, ErrAlreadyPaid
	}
	if amount <= 0 {
		return models.PackagePatch{}, ErrInvalidAmount
	}

	return models.PackagePatch{
		ExpectStatus:     models.StatusArrived,
		ExpectUnpaid:     true,
		FeePaid:          &amount,
		PaymentTimestamp: timePtr(now),
	}, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
