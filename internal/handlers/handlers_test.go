package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickpoint/internal/clock"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
	"pickpoint/internal/redis"
	"pickpoint/internal/repository"
	"pickpoint/internal/services"
)

var t0 = time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (n *recordingNotifier) SendText(_ context.Context, phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string][]string)
	}
	n.sent[phone] = append(n.sent[phone], message)
	return nil
}

func (n *recordingNotifier) last(phone string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	msgs := n.sent[phone]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type testServer struct {
	router    *gin.Engine
	clock     *clock.Manual
	notifier  *recordingNotifier
	packages  repository.PackageRepository
	locations repository.LocationRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.Discard()
	m := metrics.New()
	clk := clock.NewManual(t0)
	notifier := &recordingNotifier{}

	packages := repository.NewMemoryPackageRepository()
	locations := repository.NewMemoryLocationRepository()
	customers := repository.NewMemoryCustomerRepository()

	mr := miniredis.RunT(t)
	rdb, err := redis.Initialize("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	notifications := services.NewNotificationService(notifier, services.DefaultNotificationConfig(), m, logger)
	packageService := services.NewPackageService(services.PackageServiceDeps{
		Packages:      packages,
		Locations:     locations,
		Customers:     customers,
		Notifications: notifications,
		Clock:         clk,
		IDs:           ids.NewSequence("pkg"),
		Metrics:       m,
		Logger:        logger,
		Dispatch:      func(fn func()) { fn() },
	})
	locationService := services.NewLocationService(locations, ids.NewSequence("loc"), logger)
	customerService := services.NewCustomerService(customers, locations, clk, ids.NewSequence("cus"), 30, m, logger)
	paymentLinks := services.NewPaymentLinkService(rdb, packageService, packages, notifications, clk, ids.NewSequence("tok"),
		services.PaymentLinkConfig{TTL: time.Hour, BaseURL: "http://localhost:8080"}, m, logger)
	reports := services.NewReportService(packages, clk)
	reminders := services.NewReminderService(packageService, locations, rdb, notifications, clk, 3, logger)
	users := services.NewUserService(repository.NewMemoryUserRepository(), logger)
	require.NoError(t, users.EnsureAdmin(context.Background(), "admin", "admin-pass-1"))

	router := SetupRouter(RouterDeps{
		API:      NewAPIHandler(packageService, locationService, customerService, paymentLinks, logger),
		Admin:    NewAdminHandler(packageService, locationService, reports, reminders, logger),
		WhatsApp: NewWhatsAppHandler(notifications, packageService, customerService, paymentLinks, "hook-secret", clk, logger),
		Users:    users,
		Metrics:  m,
		Logger:   logger,
		HealthChecks: map[string]HealthCheck{
			"redis": rdb.Ping,
		},
	})

	return &testServer{router: router, clock: clk, notifier: notifier, packages: packages, locations: locations}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func adminHeader() http.Header {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "admin-pass-1")
	return req.Header
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) seedLocation(t *testing.T) {
	t.Helper()
	require.NoError(t, s.locations.Create(context.Background(), &models.Location{
		ID: "loc-1", Name: "Tower A", Pricing: models.FlatPricing(2000, 1),
	}))
}

func (s *testServer) intake(t *testing.T, tracking string) models.Package {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/packages", map[string]any{
		"trackingNumber": tracking,
		"recipientName":  "Siti",
		"recipientPhone": "081234567890",
		"size":           "M",
		"locationId":     "loc-1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Package](t, w)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
}

func TestHealth_ReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", health(map[string]HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestPackageFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)

	pkg := s.intake(t, "jne-100")
	assert.Equal(t, "JNE-100", pkg.TrackingNumber)
	assert.Contains(t, s.notifier.last("6281234567890"), "JNE-100")

	s.clock.Advance(49 * time.Hour)

	w := s.do(t, http.MethodGet, "/api/packages/"+pkg.ID+"/fee", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[services.FeePreview](t, w)
	assert.Equal(t, int64(4000), preview.Amount)

	w = s.do(t, http.MethodPost, "/api/packages/"+pkg.ID+"/pickup", map[string]any{"expectedFee": 2000}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[services.PickupResult](t, w)
	assert.Equal(t, int64(4000), result.Fee)
	require.NotNil(t, result.FeeMismatch)
	assert.Equal(t, int64(2000), result.FeeMismatch.Expected)

	w = s.do(t, http.MethodPost, "/api/packages/"+pkg.ID+"/pickup", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	errBody := decode[ErrorResponse](t, w)
	assert.Equal(t, "ALREADY_FINALIZED", errBody.Code)
	assert.Equal(t, pkg.ID, errBody.Details["packageId"])
	assert.NotEmpty(t, errBody.RequestID)
}

// chunked sends body without a known length, the way streaming clients do.
func (s *testServer) chunked(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, io.MultiReader(strings.NewReader(body)))
	require.Equal(t, int64(-1), req.ContentLength)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPickup_ChunkedBody(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)
	a := s.intake(t, "A-1")
	b := s.intake(t, "B-1")
	c := s.intake(t, "C-1")
	s.clock.Advance(49 * time.Hour)

	w := s.chunked(t, "/api/packages/"+a.ID+"/pickup", `{"expectedFee":2000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[services.PickupResult](t, w)
	require.NotNil(t, result.FeeMismatch)
	assert.Equal(t, int64(2000), result.FeeMismatch.Expected)
	assert.Equal(t, int64(4000), result.FeeMismatch.Charged)

	w = s.chunked(t, "/api/packages/"+b.ID+"/pickup", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[services.PickupResult](t, w).FeeMismatch)

	w = s.chunked(t, "/api/packages/"+c.ID+"/pickup", `{"expectedFee":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/packages/"+c.ID+"/pickup", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestBulkEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)
	a := s.intake(t, "A-1")
	b := s.intake(t, "B-1")
	s.clock.Advance(49 * time.Hour)

	w := s.do(t, http.MethodPost, "/api/packages/fees/preview", map[string]any{"packageIds": []string{a.ID, b.ID}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(8000), decode[services.BulkFeePreview](t, w).Total)

	w = s.do(t, http.MethodPost, "/api/packages/pickup", map[string]any{"packageIds": []string{a.ID, b.ID, "nope"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[services.BulkPickupResult](t, w)
	assert.Equal(t, 2, result.Picked)
	assert.Equal(t, int64(8000), result.Total)
	assert.Equal(t, "RESOURCE_NOT_FOUND", result.Items[2].Status)
}

func TestPackageErrors(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)
	pkg := s.intake(t, "A-1")

	w := s.do(t, http.MethodPost, "/api/packages/nope/pickup", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decode[ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/packages/"+pkg.ID+"/pay", map[string]any{"amount": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/packages", map[string]any{"trackingNumber": "a-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, s.packages.Create(context.Background(), &models.Package{
		ID:             "orphan",
		TrackingNumber: "ORPHAN-1",
		RecipientName:  "Budi",
		RecipientPhone: "6281111111111",
		Size:           models.SizeS,
		LocationID:     "gone",
		Status:         models.StatusArrived,
		Dates:          models.PackageDates{Arrived: t0},
	}))

	w = s.do(t, http.MethodGet, "/api/packages/orphan/fee", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[services.FeePreview](t, w)
	assert.Zero(t, preview.Amount)
	assert.NotEmpty(t, preview.Error)

	w = s.do(t, http.MethodPost, "/api/packages/orphan/pickup", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_LOCATION", decode[ErrorResponse](t, w).Code)
}

func TestPaymentLinkEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)
	pkg := s.intake(t, "A-1")
	s.clock.Advance(49 * time.Hour)

	w := s.do(t, http.MethodPost, "/api/packages/"+pkg.ID+"/payment-link", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decode[map[string]any](t, w)
	assert.Equal(t, "http://localhost:8080/api/pay/tok-1", link["url"])

	w = s.do(t, http.MethodGet, "/api/pay/tok-1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/pay/tok-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	paid := decode[models.Package](t, w)
	assert.Equal(t, int64(4000), paid.FeePaid)

	w = s.do(t, http.MethodPost, "/api/pay/tok-1", nil, nil)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"name":    "Tower B",
		"pricing": map[string]any{"kind": "PROGRESSIVE", "firstDayRate": 3000, "nextDayRate": 1000, "gracePeriodDays": 1},
	}

	w := s.do(t, http.MethodPost, "/api/admin/locations", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := http.Header{}
	bad.Set("Authorization", "Basic YWRtaW46d3Jvbmc=")
	w = s.do(t, http.MethodPost, "/api/admin/locations", body, bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/locations", body, adminHeader())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loc := decode[models.Location](t, w)
	assert.Equal(t, "loc-1", loc.ID)
	assert.Equal(t, models.PricingProgressive, loc.Pricing.Kind)

	w = s.do(t, http.MethodGet, "/api/locations/loc-1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_RejectsInvalidPricing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/admin/locations", map[string]any{
		"name":    "Tower C",
		"pricing": map[string]any{"kind": "FLAT", "flatRate": "abc"},
	}, adminHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PRICING_SCHEMA", decode[ErrorResponse](t, w).Code)
}

func TestAdmin_RevenueAndReminders(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)
	pkg := s.intake(t, "A-1")
	s.clock.Advance(96 * time.Hour)

	w := s.do(t, http.MethodPost, "/api/admin/reminders/run", nil, adminHeader())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[services.ReminderRun](t, w).Sent)

	w = s.do(t, http.MethodPost, "/api/packages/"+pkg.ID+"/pickup", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/reports/revenue?from=2024-03-01&to=2024-03-31", nil, adminHeader())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[services.RevenueReport](t, w)
	assert.Equal(t, int64(6000), report.FeeTotal)
	assert.Equal(t, "Rp6.000", report.FormattedTotal)

	w = s.do(t, http.MethodGet, "/api/admin/reports/revenue?from=yesterday", nil, adminHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWhatsAppWebhook(t *testing.T) {
	s := newTestServer(t)
	s.seedLocation(t)
	s.intake(t, "A-1")
	s.clock.Advance(49 * time.Hour)

	msg := map[string]any{
		"from":    "6281234567890@s.whatsapp.net",
		"message": map[string]any{"text": "/paket"},
	}

	w := s.do(t, http.MethodPost, "/api/whatsapp/webhook", msg, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	secret := http.Header{}
	secret.Set(HeaderWebhookSecret, "hook-secret")
	w = s.do(t, http.MethodPost, "/api/whatsapp/webhook", msg, secret)
	require.Equal(t, http.StatusOK, w.Code)
	reply := s.notifier.last("6281234567890")
	assert.Contains(t, reply, "A-1")
	assert.Contains(t, reply, "Rp4.000")

	msg["message"] = map[string]any{"text": "/bayar a-1"}
	w = s.do(t, http.MethodPost, "/api/whatsapp/webhook", msg, secret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, s.notifier.last("6281234567890"), "/api/pay/tok-1")

	msg["message"] = map[string]any{"text": "/member"}
	w = s.do(t, http.MethodPost, "/api/whatsapp/webhook", msg, secret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, s.notifier.last("6281234567890"), "belum menjadi member")

	msg["message"] = map[string]any{"text": "halo"}
	w = s.do(t, http.MethodPost, "/api/whatsapp/webhook", msg, secret)
	assert.Equal(t, "ignored", decode[map[string]any](t, w)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/locations", nil, nil)

	w := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `pickpoint_http_requests_total{method="GET",path="/api/locations",status="200"} 1`))
}
