package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/clock"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
	"pickpoint/internal/redis"
)

type PaymentLinkStore interface {
	SetPaymentLink(ctx context.Context, link *redis.PaymentLink, ttl time.Duration) error
	GetPaymentLink(ctx context.Context, token string) (*redis.PaymentLink, error)
	DeletePaymentLink(ctx context.Context, token string) error
}

type PaymentLinkView struct {
	*redis.PaymentLink
	URL        string `json:"url"`
	CurrentFee int64  `json:"currentFee"`
}

type PaymentLinkService interface {
	Create(ctx context.Context, packageID string, send bool) (*PaymentLinkView, error)
	CreateForTracking(ctx context.Context, trackingNumber, phone string) (*PaymentLinkView, error)
	Resolve(ctx context.Context, token string) (*PaymentLinkView, error)
	Pay(ctx context.Context, token string) (*models.Package, error)
}

type PaymentLinkConfig struct {
	TTL     time.Duration
	BaseURL string
}

type paymentLinkService struct {
	store         PaymentLinkStore
	packages      PackageService
	lookup        packageLookup
	notifications NotificationService
	clock         clock.Clock
	ids           ids.Generator
	cfg           PaymentLinkConfig
	metrics       *metrics.Metrics
	logger        *logging.Logger
}

type packageLookup interface {
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error)
}

func NewPaymentLinkService(store PaymentLinkStore, packages PackageService, lookup packageLookup, notifications NotificationService, clk clock.Clock, idGen ids.Generator, cfg PaymentLinkConfig, m *metrics.Metrics, logger *logging.Logger) PaymentLinkService {
	if clk == nil {
		clk = clock.Real{}
	}
	if idGen == nil {
		idGen = ids.UUID{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &paymentLinkService{
		store:         store,
		packages:      packages,
		lookup:        lookup,
		notifications: notifications,
		clock:         clk,
		ids:           idGen,
		cfg:           cfg,
		metrics:       m,
		logger:        logger.WithComponent("payment-links"),
	}
}

func (s *paymentLinkService) Create(ctx context.Context, packageID string, send bool) (*PaymentLinkView, error) {
	pkg, err := s.packages.Get(ctx, packageID)
	if err != nil {
		return nil, err
	}
	view, err := s.create(ctx, pkg)
	if err != nil {
		return nil, err
	}

	if send && s.notifications != nil {
		msg := paymentLinkMessage(view.TrackingNumber, view.Amount, view.URL, view.ExpiresAt)
		if err := s.notifications.Send(ctx, "payment_link", pkg.RecipientPhone, msg); err != nil {
			s.logger.WithError(err).Warn("Payment link created but not delivered", "packageId", pkg.ID)
		}
	}
	return view, nil
}

// CreateForTracking serves recipients asking over chat, so the package must
// belong to phone.
func (s *paymentLinkService) CreateForTracking(ctx context.Context, trackingNumber, phone string) (*PaymentLinkView, error) {
	pkg, err := s.lookup.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil || pkg.RecipientPhone != phone {
		return nil, apperrors.NotFound("package", models.NormalizeTrackingNumber(trackingNumber))
	}
	return s.create(ctx, pkg)
}

func (s *paymentLinkService) create(ctx context.Context, pkg *models.Package) (*PaymentLinkView, error) {
	if pkg.Status.IsTerminal() {
		return nil, apperrors.AlreadyFinalized(pkg.ID)
	}
	if pkg.FeePaid > 0 {
		return nil, apperrors.AlreadyPaid(pkg.ID)
	}

	// Quote the current fee
	preview, err := s.packages.PreviewFee(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	if preview.Error != "" {
		return nil, apperrors.MissingLocation(pkg.LocationID)
	}
	if preview.Amount <= 0 {
		return nil, apperrors.Validation("no storage fee is due for this package")
	}

	now := s.clock.Now()
	link := &redis.PaymentLink{
		Token:          s.ids.NewID(),
		PackageID:      pkg.ID,
		TrackingNumber: pkg.TrackingNumber,
		Amount:         preview.Amount,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.TTL),
	}
	// Store link with expiry
	if err := s.store.SetPaymentLink(ctx, link, s.cfg.TTL); err != nil {
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.PaymentLinksCreated.Inc()
	}
	s.logger.Info("Payment link created", "packageId", pkg.ID, "amount", link.Amount)
	return &PaymentLinkView{PaymentLink: link, URL: s.url(link.Token), CurrentFee: preview.Amount}, nil
}

func (s *paymentLinkService) Resolve(ctx context.Context, token string) (*PaymentLinkView, error) {
	link, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}

	preview, err := s.packages.PreviewFee(ctx, link.PackageID)
	if err != nil {
		return nil, err
	}
	return &PaymentLinkView{PaymentLink: link, URL: s.url(token), CurrentFee: preview.Amount}, nil
}

// Pay charges the fee as computed now, which may exceed the amount quoted when
// the link was issued.
func (s *paymentLinkService) Pay(ctx context.Context, token string) (*models.Package, error) {
	link, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}

	preview, err := s.packages.PreviewFee(ctx, link.PackageID)
	if err != nil {
		return nil, err
	}
	if preview.Error != "" {
		return nil, apperrors.New(preview.Error, "fee cannot be determined", http.StatusUnprocessableEntity)
	}
	if preview.Breakdown != nil && preview.Breakdown.Frozen {
		return nil, apperrors.AlreadyPaid(link.PackageID)
	}

	// Charge and consume the link
	pkg, err := s.packages.MarkPaid(ctx, link.PackageID, preview.Amount)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeletePaymentLink(ctx, token); err != nil {
		s.logger.WithError(err).Warn("Failed to delete used payment link", "packageId", pkg.ID)
	}
	return pkg, nil
}

func (s *paymentLinkService) get(ctx context.Context, token string) (*redis.PaymentLink, error) {
	link, err := s.store.GetPaymentLink(ctx, token)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, apperrors.New(apperrors.CodePaymentLinkExpired, "payment link is invalid or expired", http.StatusGone)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return link, nil
}

func (s *paymentLinkService) url(token string) string {
	return s.cfg.BaseURL + "/api/pay/" + token
}
