package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/clock"
	"pickpoint/internal/ids"
	"pickpoint/internal/lifecycle"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
	"pickpoint/internal/pricing"
	"pickpoint/internal/repository"
	"pickpoint/pkg/whatsapp"
)

const (
	ItemPicked           = "PICKED"
	ItemAlreadyFinalized = apperrors.CodeAlreadyFinalized
	ItemMissingLocation  = apperrors.CodeMissingLocation
	ItemNotFound         = apperrors.CodeNotFound
	ItemFailed           = apperrors.CodeInternalError
)

type IntakeRequest struct {
	TrackingNumber string             `json:"trackingNumber" binding:"required"`
	RecipientName  string             `json:"recipientName" binding:"required"`
	RecipientPhone string             `json:"recipientPhone" binding:"required"`
	UnitNumber     string             `json:"unitNumber"`
	Size           models.PackageSize `json:"size" binding:"required"`
	LocationID     string             `json:"locationId" binding:"required"`
	Notes          string             `json:"notes"`
}

type FeePreview struct {
	PackageID      string             `json:"packageId"`
	TrackingNumber string             `json:"trackingNumber,omitempty"`
	Amount         int64              `json:"amount"`
	Breakdown      *pricing.Breakdown `json:"breakdown,omitempty"`
	Warnings       []pricing.Warning  `json:"warnings,omitempty"`
	Error          string             `json:"error,omitempty"`
}

type BulkFeePreview struct {
	PerPackage []FeePreview `json:"perPackage"`
	Total      int64        `json:"total"`
}

type FeeMismatch struct {
	Expected int64 `json:"expected"`
	Charged  int64 `json:"charged"`
}

type PickupResult struct {
	Package     *models.Package `json:"package"`
	Fee         int64           `json:"fee"`
	Prepaid     bool            `json:"prepaid"`
	FeeMismatch *FeeMismatch    `json:"feeMismatch,omitempty"`
}

type BulkPickupItem struct {
	PackageID string          `json:"packageId"`
	Status    string          `json:"status"`
	Fee       int64           `json:"fee"`
	Package   *models.Package `json:"package,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type BulkPickupResult struct {
	Items  []BulkPickupItem `json:"items"`
	Picked int              `json:"picked"`
	Total  int64            `json:"total"`
}

// PackageView is a package with its live fee, as shown in polling lists.
type PackageView struct {
	*models.Package
	CurrentFee int64  `json:"currentFee"`
	FeeError   string `json:"feeError,omitempty"`
}

type PackageService interface {
	Intake(ctx context.Context, req IntakeRequest) (*models.Package, error)
	Get(ctx context.Context, id string) (*models.Package, error)
	List(ctx context.Context, filter repository.PackageFilter) ([]PackageView, error)
	PreviewFee(ctx context.Context, id string) (*FeePreview, error)
	PreviewBulkFee(ctx context.Context, ids []string) (*BulkFeePreview, error)
	// Pickup charges the server-computed fee. expectedFee is the caller's last
	// preview; a difference is reported, never enforced.
	Pickup(ctx context.Context, id string, expectedFee *int64) (*PickupResult, error)
	BulkPickup(ctx context.Context, ids []string) (*BulkPickupResult, error)
	MarkPaid(ctx context.Context, id string, amount int64) (*models.Package, error)
	Destroy(ctx context.Context, id string) (*models.Package, error)
	Delete(ctx context.Context, id string) error
}

type PackageServiceDeps struct {
	Packages      repository.PackageRepository
	Locations     repository.LocationRepository
	Customers     repository.CustomerRepository
	Snapshotter   *FeeSnapshotter
	Notifications NotificationService
	Clock         clock.Clock
	IDs           ids.Generator
	Metrics       *metrics.Metrics
	Logger        *logging.Logger
	// Dispatch runs post-commit side effects. Defaults to a new goroutine.
	Dispatch func(func())
}

type packageService struct {
	packages      repository.PackageRepository
	locations     repository.LocationRepository
	customers     repository.CustomerRepository
	snapshotter   *FeeSnapshotter
	notifications NotificationService
	clock         clock.Clock
	ids           ids.Generator
	metrics       *metrics.Metrics
	logger        *logging.Logger
	dispatch      func(func())
}

func NewPackageService(deps PackageServiceDeps) PackageService {
	s := &packageService{
		packages:      deps.Packages,
		locations:     deps.Locations,
		customers:     deps.Customers,
		snapshotter:   deps.Snapshotter,
		notifications: deps.Notifications,
		clock:         deps.Clock,
		ids:           deps.IDs,
		metrics:       deps.Metrics,
		logger:        deps.Logger.WithComponent("packages"),
		dispatch:      deps.Dispatch,
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.ids == nil {
		s.ids = ids.UUID{}
	}
	if s.snapshotter == nil {
		s.snapshotter = NewFeeSnapshotter(deps.Packages, deps.Metrics, deps.Logger)
	}
	if s.dispatch == nil {
		s.dispatch = func(f func()) { go f() }
	}
	return s
}

func (s *packageService) Intake(ctx context.Context, req IntakeRequest) (*models.Package, error) {
	req.TrackingNumber = models.NormalizeTrackingNumber(req.TrackingNumber)
	req.RecipientName = strings.TrimSpace(req.RecipientName)
	req.RecipientPhone = whatsapp.NormalizePhone(req.RecipientPhone)
	req.Size = models.PackageSize(strings.ToUpper(string(req.Size)))

	switch {
	case req.TrackingNumber == "":
		return nil, apperrors.Validation("trackingNumber is required")
	case req.RecipientName == "":
		return nil, apperrors.Validation("recipientName is required")
	case len(req.RecipientPhone) < 9:
		return nil, apperrors.Validation("recipientPhone is not a valid phone number")
	case !req.Size.IsValid():
		return nil, apperrors.Validation("size must be one of S, M, L")
	}

	loc, err := s.locations.GetByID(ctx, req.LocationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("location", req.LocationID)
		}
		return nil, apperrors.Internal(err)
	}

	pkg := &models.Package{
		ID:                 s.ids.NewID(),
		TrackingNumber:     req.TrackingNumber,
		RecipientName:      req.RecipientName,
		RecipientPhone:     req.RecipientPhone,
		UnitNumber:         strings.TrimSpace(req.UnitNumber),
		Size:               req.Size,
		LocationID:         loc.ID,
		Status:             models.StatusArrived,
		Dates:              models.PackageDates{Arrived: s.clock.Now()},
		NotificationStatus: models.NotificationPending,
		Notes:              req.Notes,
	}
	// Save package
	if err := s.packages.Create(ctx, pkg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("tracking number already registered").
				WithDetail("trackingNumber", pkg.TrackingNumber).Wrap(err)
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("Package received", "packageId", pkg.ID, "trackingNumber", pkg.TrackingNumber, "locationId", loc.ID)

	// Notify recipient
	s.notify(ctx, "arrival", pkg.RecipientPhone, arrivalMessage(pkg, loc), pkg.ID)
	return pkg, nil
}

func (s *packageService) Get(ctx context.Context, id string) (*models.Package, error) {
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return pkg, nil
}

func (s *packageService) List(ctx context.Context, filter repository.PackageFilter) ([]PackageView, error) {
	pkgs, err := s.packages.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	views := make([]PackageView, len(pkgs))
	byLocation := make(map[string][]*models.Package)
	for i, p := range pkgs {
		views[i] = PackageView{Package: p}
		if frozen(p) {
			views[i].CurrentFee = p.FeePaid
			continue
		}
		byLocation[p.LocationID] = append(byLocation[p.LocationID], p)
	}

	// Price live packages per location
	fees := make(map[string]int64)
	missing := make(map[string]bool)
	for locationID, group := range byLocation {
		loc, err := s.locations.GetByID(ctx, locationID)
		if errors.Is(err, repository.ErrNotFound) {
			missing[locationID] = true
			continue
		}
		if err != nil {
			return nil, apperrors.Internal(err)
		}

		priced, err := s.priceSelection(ctx, loc, group)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		for id, p := range priced {
			fees[id] = p.Fee
		}
	}

	for i := range views {
		p := views[i].Package
		if frozen(p) {
			continue
		}
		if missing[p.LocationID] {
			views[i].FeeError = apperrors.CodeMissingLocation
			continue
		}
		views[i].CurrentFee = fees[p.ID]
	}
	return views, nil
}

func (s *packageService) PreviewFee(ctx context.Context, id string) (*FeePreview, error) {
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	if frozen(pkg) {
		return frozenPreview(pkg), nil
	}

	loc, err := s.locations.GetByID(ctx, pkg.LocationID)
	if errors.Is(err, repository.ErrNotFound) {
		return &FeePreview{PackageID: pkg.ID, TrackingNumber: pkg.TrackingNumber, Error: apperrors.CodeMissingLocation}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	priced, err := s.priceSelection(ctx, loc, []*models.Package{pkg})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return livePreview(priced[pkg.ID]), nil
}

func (s *packageService) PreviewBulkFee(ctx context.Context, packageIDs []string) (*BulkFeePreview, error) {
	packageIDs = uniqueIDs(packageIDs)
	if len(packageIDs) == 0 {
		return nil, apperrors.Validation("packageIds must not be empty")
	}

	loaded, err := s.loadPackages(ctx, packageIDs)
	if err != nil {
		return nil, err
	}

	previews := make(map[string]FeePreview, len(packageIDs))
	byLocation := make(map[string][]*models.Package)
	for _, id := range packageIDs {
		pkg, ok := loaded[id]
		switch {
		case !ok:
			previews[id] = FeePreview{PackageID: id, Error: apperrors.CodeNotFound}
		case frozen(pkg):
			previews[id] = *frozenPreview(pkg)
		default:
			byLocation[pkg.LocationID] = append(byLocation[pkg.LocationID], pkg)
		}
	}

	for locationID, group := range byLocation {
		loc, err := s.locations.GetByID(ctx, locationID)
		if errors.Is(err, repository.ErrNotFound) {
			for _, p := range group {
				previews[p.ID] = FeePreview{PackageID: p.ID, TrackingNumber: p.TrackingNumber, Error: apperrors.CodeMissingLocation}
			}
			continue
		}
		if err != nil {
			return nil, apperrors.Internal(err)
		}

		priced, err := s.priceSelection(ctx, loc, group)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		for _, p := range group {
			previews[p.ID] = *livePreview(priced[p.ID])
		}
	}

	out := &BulkFeePreview{PerPackage: make([]FeePreview, 0, len(packageIDs))}
	for _, id := range packageIDs {
		p := previews[id]
		out.PerPackage = append(out.PerPackage, p)
		out.Total += p.Amount
	}
	return out, nil
}

func (s *packageService) Pickup(ctx context.Context, id string, expectedFee *int64) (*PickupResult, error) {
	var result *PickupResult
	var err error

	// A concurrent MarkPaid between our read and write turns the package into
	// a prepaid one; one retry picks that up.
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.pickupOnce(ctx, id)
		if !errors.Is(err, repository.ErrAlreadyPaid) && !errors.Is(err, models.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, s.transitionError(id, err)
	}

	if expectedFee != nil && *expectedFee != result.Fee {
		result.FeeMismatch = &FeeMismatch{Expected: *expectedFee, Charged: result.Fee}
		if s.metrics != nil {
			s.metrics.RecordFeeMismatch("pickup")
		}
		s.logger.Warn("Pickup fee differs from client preview",
			"code", apperrors.CodeFeeMismatch,
			"packageId", id,
			"expected", *expectedFee,
			"charged", result.Fee,
		)
	}

	// Send receipt
	pkg := result.Package
	s.notify(ctx, "pickup", pkg.RecipientPhone, pickupReceipt([]*models.Package{pkg}, pkg.FeePaid, s.clock.Now()), pkg.ID)
	return result, nil
}

func (s *packageService) pickupOnce(ctx context.Context, id string) (*PickupResult, error) {
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.Status.IsTerminal() {
		return nil, lifecycle.ErrAlreadyFinalized
	}

	loc, err := s.locations.GetByID(ctx, pkg.LocationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MissingLocation(pkg.LocationID)
	}
	if err != nil {
		return nil, err
	}

	fee := pkg.FeePaid
	prepaid := pkg.FeePaid > 0
	if !prepaid {
		priced, err := s.priceSelection(ctx, loc, []*models.Package{pkg})
		if err != nil {
			return nil, err
		}
		fee = priced[pkg.ID].Fee
	}

	patch, err := lifecycle.Pickup(pkg, fee, s.clock.Now())
	if err != nil {
		return nil, err
	}
	updated, err := s.snapshotter.Snapshot(ctx, "pickup", pkg, patch)
	if err != nil {
		return nil, err
	}
	return &PickupResult{Package: updated, Fee: updated.FeePaid, Prepaid: prepaid}, nil
}

func (s *packageService) BulkPickup(ctx context.Context, packageIDs []string) (*BulkPickupResult, error) {
	packageIDs = uniqueIDs(packageIDs)
	if len(packageIDs) == 0 {
		return nil, apperrors.Validation("packageIds must not be empty")
	}

	loaded, err := s.loadPackages(ctx, packageIDs)
	if err != nil {
		return nil, err
	}

	items := make(map[string]BulkPickupItem, len(packageIDs))
	byLocation := make(map[string][]*models.Package)
	for _, id := range packageIDs {
		pkg, ok := loaded[id]
		switch {
		case !ok:
			items[id] = BulkPickupItem{PackageID: id, Status: ItemNotFound, Message: "package not found"}
		case pkg.Status.IsTerminal():
			items[id] = BulkPickupItem{PackageID: id, Status: ItemAlreadyFinalized, Fee: pkg.FeePaid, Message: "package already " + strings.ToLower(string(pkg.Status))}
		default:
			byLocation[pkg.LocationID] = append(byLocation[pkg.LocationID], pkg)
		}
	}

	// Price each location's selection in one pass before any write, so every
	// item sees the same ranking.
	now := s.clock.Now()
	for locationID, group := range byLocation {
		loc, err := s.locations.GetByID(ctx, locationID)
		if errors.Is(err, repository.ErrNotFound) {
			for _, p := range group {
				items[p.ID] = BulkPickupItem{PackageID: p.ID, Status: ItemMissingLocation, Message: "package location cannot be resolved"}
			}
			continue
		}
		if err != nil {
			return nil, apperrors.Internal(err)
		}

		priced, err := s.priceSelection(ctx, loc, group)
		if err != nil {
			return nil, apperrors.Internal(err)
		}

		for _, p := range group {
			items[p.ID] = s.pickupItem(ctx, p, priced[p.ID].Fee, now)
		}
	}

	out := &BulkPickupResult{Items: make([]BulkPickupItem, 0, len(packageIDs))}
	receipts := make(map[string][]*models.Package)
	var phones []string
	for _, id := range packageIDs {
		item := items[id]
		out.Items = append(out.Items, item)
		if item.Status != ItemPicked {
			continue
		}
		out.Picked++
		out.Total += item.Fee
		phone := item.Package.RecipientPhone
		if _, seen := receipts[phone]; !seen {
			phones = append(phones, phone)
		}
		receipts[phone] = append(receipts[phone], item.Package)
	}

	for _, phone := range phones {
		pkgs := receipts[phone]
		var total int64
		for _, p := range pkgs {
			total += p.FeePaid
		}
		s.notify(ctx, "pickup", phone, pickupReceipt(pkgs, total, now), packageIDsOf(pkgs)...)
	}

	s.logger.Info("Bulk pickup processed", "requested", len(packageIDs), "picked", out.Picked, "total", out.Total)
	return out, nil
}

func (s *packageService) pickupItem(ctx context.Context, pkg *models.Package, fee int64, now time.Time) BulkPickupItem {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var patch models.PackagePatch
		patch, err = lifecycle.Pickup(pkg, fee, now)
		if err != nil {
			break
		}

		var updated *models.Package
		updated, err = s.snapshotter.Snapshot(ctx, "bulk_pickup", pkg, patch)
		if err == nil {
			return BulkPickupItem{PackageID: pkg.ID, Status: ItemPicked, Fee: updated.FeePaid, Package: updated}
		}
		if !errors.Is(err, repository.ErrAlreadyPaid) {
			break
		}
		// Paid through a link since it was loaded: pick up with the stored fee.
		if pkg, err = s.packages.GetByID(ctx, pkg.ID); err != nil {
			break
		}
	}

	switch {
	case errors.Is(err, repository.ErrAlreadyFinalized):
		return BulkPickupItem{PackageID: pkg.ID, Status: ItemAlreadyFinalized, Message: "package was finalized by another device"}
	case errors.Is(err, repository.ErrNotFound):
		return BulkPickupItem{PackageID: pkg.ID, Status: ItemNotFound, Message: "package not found"}
	default:
		s.logger.WithError(err).Error("Bulk pickup item failed", "packageId", pkg.ID)
		return BulkPickupItem{PackageID: pkg.ID, Status: ItemFailed, Message: err.Error()}
	}
}

func (s *packageService) MarkPaid(ctx context.Context, id string, amount int64) (*models.Package, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}

	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	if _, err := s.locations.GetByID(ctx, pkg.LocationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.MissingLocation(pkg.LocationID)
		}
		return nil, apperrors.Internal(err)
	}

	patch, err := lifecycle.MarkPaid(pkg, amount, s.clock.Now())
	if err != nil {
		return nil, s.transitionError(id, err)
	}
	updated, err := s.snapshotter.Snapshot(ctx, "mark_paid", pkg, patch)
	if err != nil {
		return nil, s.transitionError(id, err)
	}
	return updated, nil
}

func (s *packageService) Destroy(ctx context.Context, id string) (*models.Package, error) {
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	patch, err := lifecycle.Destroy(pkg, s.clock.Now())
	if err != nil {
		return nil, s.transitionError(id, err)
	}
	updated, err := s.snapshotter.Snapshot(ctx, "destroy", pkg, patch)
	if err != nil {
		return nil, s.transitionError(id, err)
	}
	return updated, nil
}

func (s *packageService) Delete(ctx context.Context, id string) error {
	if err := s.packages.Delete(ctx, id); err != nil {
		return s.lookupError(id, err)
	}
	s.logger.Audit(ctx, "delete", "package", id, nil)
	return nil
}

// priceSelection prices the selected packages of one location. QUANTITY
// ordinals are ranked against every stored sibling of the same recipients,
// not just the selection.
func (s *packageService) priceSelection(ctx context.Context, loc *models.Location, selected []*models.Package) (map[string]pricing.Priced, error) {
	phoneSet := make(map[string]bool)
	var phones []string
	for _, p := range selected {
		if !phoneSet[p.RecipientPhone] {
			phoneSet[p.RecipientPhone] = true
			phones = append(phones, p.RecipientPhone)
		}
	}

	candidates := selected
	if loc.Pricing.Kind == models.PricingQuantity {
		stored, err := s.packages.List(ctx, repository.PackageFilter{LocationID: loc.ID, Status: models.StatusArrived})
		if err != nil {
			return nil, fmt.Errorf("list stored packages: %w", err)
		}
		candidates = mergeCandidates(stored, selected, phoneSet)
	}

	customers, err := s.customers.GetByPhones(ctx, phones)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	batch := pricing.RankAndPrice(candidates, loc, s.clock.Now(), customers)
	out := make(map[string]pricing.Priced, len(selected))
	warned := make(map[string]bool)
	for _, item := range batch.Items {
		out[item.Package.ID] = item
		for _, w := range item.Result.Warnings {
			if w.Code == pricing.WarnNotCandidate || warned[w.Code+w.Message] {
				continue
			}
			warned[w.Code+w.Message] = true
			if s.metrics != nil {
				s.metrics.RecordSchemaWarning(loc.ID, w.Code)
			}
			s.logger.Warn("Pricing schema problem", "code", w.Code, "locationId", loc.ID, "detail", w.Message)
		}
	}
	return out, nil
}

func mergeCandidates(stored, selected []*models.Package, phones map[string]bool) []*models.Package {
	seen := make(map[string]bool)
	var out []*models.Package
	for _, p := range stored {
		if phones[p.RecipientPhone] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	for _, p := range selected {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func (s *packageService) loadPackages(ctx context.Context, packageIDs []string) (map[string]*models.Package, error) {
	out := make(map[string]*models.Package, len(packageIDs))
	for _, id := range packageIDs {
		pkg, err := s.packages.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		out[id] = pkg
	}
	return out, nil
}

// notify sends after the commit and records the outcome on each package. It
// never fails the caller.
func (s *packageService) notify(ctx context.Context, kind, phone, message string, packageIDs ...string) {
	if s.notifications == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.dispatch(func() {
		status := notificationOutcome(s.notifications.Send(ctx, kind, phone, message))
		for _, id := range packageIDs {
			if err := s.packages.SetNotificationStatus(ctx, id, status); err != nil {
				s.logger.WithError(err).Warn("Failed to record notification status", "packageId", id)
			}
		}
	})
}

func (s *packageService) lookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("package", id).Wrap(err)
	}
	return apperrors.Internal(err)
}

func (s *packageService) transitionError(id string, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrAlreadyFinalized):
		return apperrors.AlreadyFinalized(id).Wrap(err)
	case errors.Is(err, repository.ErrAlreadyPaid):
		return apperrors.AlreadyPaid(id).Wrap(err)
	case errors.Is(err, lifecycle.ErrInvalidAmount):
		return apperrors.Validation(err.Error())
	case errors.Is(err, models.ErrConflict):
		return apperrors.Conflict("package changed while processing, retry").Wrap(err)
	}
	return s.lookupError(id, err)
}

func frozen(p *models.Package) bool {
	return p.Status.IsTerminal() || p.FeePaid > 0
}

func frozenPreview(p *models.Package) *FeePreview {
	return &FeePreview{
		PackageID:      p.ID,
		TrackingNumber: p.TrackingNumber,
		Amount:         p.FeePaid,
		Breakdown:      &pricing.Breakdown{Frozen: true, Amount: p.FeePaid},
	}
}

func livePreview(p pricing.Priced) *FeePreview {
	breakdown := p.Result.Breakdown
	return &FeePreview{
		PackageID:      p.Package.ID,
		TrackingNumber: p.Package.TrackingNumber,
		Amount:         p.Fee,
		Breakdown:      &breakdown,
		Warnings:       p.Result.Warnings,
	}
}

func uniqueIDs(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func packageIDsOf(pkgs []*models.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.ID
	}
	return out
}
