package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pickpoint/internal/clock"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
)

var t0 = time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

type sentMessage struct {
	Phone   string
	Message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) SendText(_ context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Phone: phone, Message: message})
	return nil
}

func (f *fakeNotifier) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fixture struct {
	packages      repository.PackageRepository
	locations     repository.LocationRepository
	customers     repository.CustomerRepository
	clock         *clock.Manual
	notifier      *fakeNotifier
	notifications NotificationService
	metrics       *metrics.Metrics
	logger        *logging.Logger
	svc           PackageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		packages:  repository.NewMemoryPackageRepository(),
		locations: repository.NewMemoryLocationRepository(),
		customers: repository.NewMemoryCustomerRepository(),
		clock:     clock.NewManual(t0),
		notifier:  &fakeNotifier{},
		metrics:   metrics.New(),
		logger:    logging.Discard(),
	}
	cfg := DefaultNotificationConfig()
	cfg.FailureThreshold = 100
	f.notifications = NewNotificationService(f.notifier, cfg, f.metrics, f.logger)
	f.svc = NewPackageService(PackageServiceDeps{
		Packages:      f.packages,
		Locations:     f.locations,
		Customers:     f.customers,
		Notifications: f.notifications,
		Clock:         f.clock,
		IDs:           ids.NewSequence("pkg"),
		Metrics:       f.metrics,
		Logger:        f.logger,
		Dispatch:      func(fn func()) { fn() },
	})
	return f
}

func (f *fixture) addLocation(t *testing.T, id string, schema models.PricingSchema) *models.Location {
	t.Helper()
	loc := &models.Location{ID: id, Name: "Lobby " + id, Pricing: schema}
	require.NoError(t, f.locations.Create(context.Background(), loc))
	return loc
}

func (f *fixture) addPackage(t *testing.T, id, locationID, phone string, arrived time.Time) *models.Package {
	t.Helper()
	pkg := &models.Package{
		ID:             id,
		TrackingNumber: "TRK-" + id,
		RecipientName:  "Budi",
		RecipientPhone: phone,
		Size:           models.SizeM,
		LocationID:     locationID,
		Status:         models.StatusArrived,
		Dates:          models.PackageDates{Arrived: arrived},
	}
	require.NoError(t, f.packages.Create(context.Background(), pkg))
	return pkg
}

func (f *fixture) reload(t *testing.T, id string) *models.Package {
	t.Helper()
	pkg, err := f.packages.GetByID(context.Background(), id)
	require.NoError(t, err)
	return pkg
}

var errGatewayDown = errors.New("gateway down")
