package services

import (
	"context"
	"errors"
	"time"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/clock"
	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/pricing"
	"pickpoint/internal/repository"
)

// ReminderClaimer deduplicates reminders across replicas. *redis.Client
// satisfies it.
type ReminderClaimer interface {
	ClaimReminder(ctx context.Context, packageID, day string, ttl time.Duration) (bool, error)
}

type ReminderRun struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type ReminderService interface {
	SendStorageReminders(ctx context.Context) (*ReminderRun, error)
	Start(ctx context.Context, interval time.Duration)
}

type reminderService struct {
	packages      PackageService
	locations     repository.LocationRepository
	claims        ReminderClaimer
	notifications NotificationService
	clock         clock.Clock
	afterDays     int
	logger        *logging.Logger
}

func NewReminderService(packages PackageService, locations repository.LocationRepository, claims ReminderClaimer, notifications NotificationService, clk clock.Clock, afterDays int, logger *logging.Logger) ReminderService {
	if clk == nil {
		clk = clock.Real{}
	}
	if afterDays <= 0 {
		afterDays = 3
	}
	return &reminderService{
		packages:      packages,
		locations:     locations,
		claims:        claims,
		notifications: notifications,
		clock:         clk,
		afterDays:     afterDays,
		logger:        logger.WithComponent("reminders"),
	}
}

// SendStorageReminders messages every recipient whose package has been stored
// for at least afterDays. Each package gets at most one reminder per WIB day.
func (s *reminderService) SendStorageReminders(ctx context.Context) (*ReminderRun, error) {
	now := s.clock.Now()
	cutoff := now.Add(-time.Duration(s.afterDays) * 24 * time.Hour)

	// Get packages stored past the reminder threshold
	views, err := s.packages.List(ctx, repository.PackageFilter{
		Status:        models.StatusArrived,
		ArrivedBefore: &cutoff,
	})
	if err != nil {
		return nil, err
	}

	run := &ReminderRun{}
	day := now.In(jakarta).Format("2006-01-02")
	locations := make(map[string]*models.Location)

	for _, v := range views {
		run.Checked++
		if v.FeeError != "" {
			run.Skipped++
			continue
		}

		loc, err := s.location(ctx, locations, v.LocationID)
		if err != nil {
			s.logger.WithError(err).Warn("Reminder skipped, location unavailable", "packageId", v.ID)
			run.Skipped++
			continue
		}

		// Claim today's reminder slot
		if s.claims != nil {
			claimed, err := s.claims.ClaimReminder(ctx, v.ID, day, 36*time.Hour)
			if err != nil {
				s.logger.WithError(err).Error("Failed to claim reminder", "packageId", v.ID)
				run.Failed++
				continue
			}
			if !claimed {
				run.Skipped++
				continue
			}
		}

		// Send reminder
		msg := reminderMessage(v.Package, loc, pricing.HeldDays(v.Package, now), v.CurrentFee)
		if err := s.notifications.Send(ctx, "reminder", v.RecipientPhone, msg); err != nil {
			if errors.Is(err, ErrNotificationsDisabled) {
				run.Skipped++
				continue
			}
			run.Failed++
			continue
		}
		run.Sent++
	}

	s.logger.Info("Storage reminders processed",
		"checked", run.Checked,
		"sent", run.Sent,
		"skipped", run.Skipped,
		"failed", run.Failed,
	)
	return run, nil
}

// Start runs SendStorageReminders every interval until ctx is done.
func (s *reminderService) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SendStorageReminders(ctx); err != nil {
				s.logger.WithError(err).Error("Storage reminder run failed")
			}
		}
	}
}

func (s *reminderService) location(ctx context.Context, cache map[string]*models.Location, id string) (*models.Location, error) {
	if loc, ok := cache[id]; ok {
		return loc, nil
	}
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.MissingLocation(id)
		}
		return nil, err
	}
	cache[id] = loc
	return loc, nil
}
