package services

import (
	"context"
	"errors"

	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
)

// FeeSnapshotter is the only write path for lifecycle patches. The fee, the
// payment time and the status flip land in one conditional update.
type FeeSnapshotter struct {
	packages repository.PackageRepository
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

func NewFeeSnapshotter(packages repository.PackageRepository, m *metrics.Metrics, logger *logging.Logger) *FeeSnapshotter {
	return &FeeSnapshotter{packages: packages, metrics: m, logger: logger.WithComponent("fee-snapshotter")}
}

func (s *FeeSnapshotter) Snapshot(ctx context.Context, operation string, pkg *models.Package, patch models.PackagePatch) (*models.Package, error) {
	updated, err := s.packages.UpdatePackage(ctx, pkg.ID, patch)
	if err != nil {
		s.recordTransition(operation, transitionResult(err))
		return nil, err
	}

	s.recordTransition(operation, "success")
	if patch.FeePaid != nil && s.metrics != nil {
		s.metrics.RecordFeeCollected(updated.LocationID, *patch.FeePaid)
	}

	s.logger.Audit(ctx, operation, "package", updated.ID, map[string]any{
		"trackingNumber": updated.TrackingNumber,
		"status":         updated.Status,
		"feePaid":        updated.FeePaid,
		"locationId":     updated.LocationID,
	})
	return updated, nil
}

func (s *FeeSnapshotter) recordTransition(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(operation, result)
	}
}

func transitionResult(err error) string {
	switch {
	case errors.Is(err, repository.ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, repository.ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
