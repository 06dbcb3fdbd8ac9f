package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
)

var ErrNotificationsDisabled = errors.New("notifications disabled")

// Notifier delivers a text message to a phone number. *whatsapp.Client
// satisfies it.
type Notifier interface {
	SendText(ctx context.Context, phone, message string) error
}

type NotificationService interface {
	Send(ctx context.Context, kind, phone, message string) error
}

type NotificationConfig struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

type notificationService struct {
	notifier Notifier
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewNotificationService wraps notifier in a circuit breaker. A nil notifier
// makes every send fail with ErrNotificationsDisabled.
func NewNotificationService(notifier Notifier, cfg NotificationConfig, m *metrics.Metrics, logger *logging.Logger) NotificationService {
	logger = logger.WithComponent("notifications")
	settings := gobreaker.Settings{
		Name:        "whatsapp",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.SetCircuitBreakerState(name, int(to))
			}
		},
	}

	return &notificationService{
		notifier: notifier,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		timeout:  cfg.Timeout,
		metrics:  m,
		logger:   logger,
	}
}

func (s *notificationService) Send(ctx context.Context, kind, phone, message string) error {
	if s.notifier == nil {
		s.record(kind, models.NotificationSkipped)
		return ErrNotificationsDisabled
	}

	// Send through circuit breaker
	_, err := s.breaker.Execute(func() (interface{}, error) {
		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.notifier.SendText(sendCtx, phone, message)
	})
	if err != nil {
		s.record(kind, models.NotificationFailed)
		s.logger.WithError(err).Warn("WhatsApp notification failed", "kind", kind, "phone", phone)
		return fmt.Errorf("send %s notification: %w", kind, err)
	}

	s.record(kind, models.NotificationSent)
	return nil
}

func (s *notificationService) record(kind string, status models.NotificationStatus) {
	if s.metrics != nil {
		s.metrics.RecordNotification(kind, string(status))
	}
}

// notificationOutcome maps a send result to the status stored on a package.
func notificationOutcome(err error) models.NotificationStatus {
	switch {
	case err == nil:
		return models.NotificationSent
	case errors.Is(err, ErrNotificationsDisabled):
		return models.NotificationSkipped
	default:
		return models.NotificationFailed
	}
}
