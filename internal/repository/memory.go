package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"pickpoint/internal/models"
)

// The memory repositories keep the same compare-and-swap contract as the
// gorm ones under a mutex. They back STORAGE_DRIVER=memory and the tests.

type memoryPackageRepository struct {
	mu       sync.Mutex
	packages map[string]*models.Package
	now      func() time.Time
}

func NewMemoryPackageRepository() PackageRepository {
	return &memoryPackageRepository{
		packages: make(map[string]*models.Package),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func clonePackage(p *models.Package) *models.Package {
	c := *p
	c.Dates.Picked = cloneTime(p.Dates.Picked)
	c.Dates.Destroyed = cloneTime(p.Dates.Destroyed)
	c.PaymentTimestamp = cloneTime(p.PaymentTimestamp)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r *memoryPackageRepository) Create(_ context.Context, pkg *models.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pkg.TrackingNumber = models.NormalizeTrackingNumber(pkg.TrackingNumber)
	if _, ok := r.packages[pkg.ID]; ok {
		return ErrDuplicate
	}
	for _, p := range r.packages {
		if p.TrackingNumber == pkg.TrackingNumber {
			return ErrDuplicate
		}
	}

	now := r.now()
	if pkg.CreatedAt.IsZero() {
		pkg.CreatedAt = now
	}
	pkg.UpdatedAt = now
	if pkg.Status == "" {
		pkg.Status = models.StatusArrived
	}
	if pkg.NotificationStatus == "" {
		pkg.NotificationStatus = models.NotificationPending
	}
	r.packages[pkg.ID] = clonePackage(pkg)
	return nil
}

func (r *memoryPackageRepository) GetByID(_ context.Context, id string) (*models.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePackage(p), nil
}

func (r *memoryPackageRepository) GetByTrackingNumber(_ context.Context, trackingNumber string) (*models.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := models.NormalizeTrackingNumber(trackingNumber)
	for _, p := range r.packages {
		if p.TrackingNumber == want {
			return clonePackage(p), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryPackageRepository) List(_ context.Context, filter PackageFilter) ([]*models.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Package
	for _, p := range r.packages {
		if filter.LocationID != "" && p.LocationID != filter.LocationID {
			continue
		}
		if filter.RecipientPhone != "" && p.RecipientPhone != filter.RecipientPhone {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.ArrivedBefore != nil && !p.Dates.Arrived.Before(*filter.ArrivedBefore) {
			continue
		}
		out = append(out, clonePackage(p))
	}

	slices.SortFunc(out, func(a, b *models.Package) int {
		if c := a.Dates.Arrived.Compare(b.Dates.Arrived); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *memoryPackageRepository) UpdatePackage(_ context.Context, id string, patch models.PackagePatch) (*models.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := patch.Check(p); err != nil {
		return nil, err
	}

	patch.Apply(p)
	p.UpdatedAt = r.now()
	return clonePackage(p), nil
}

func (r *memoryPackageRepository) SetNotificationStatus(_ context.Context, id string, status models.NotificationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.packages[id]
	if !ok {
		return ErrNotFound
	}
	p.NotificationStatus = status
	return nil
}

func (r *memoryPackageRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[id]; !ok {
		return ErrNotFound
	}
	delete(r.packages, id)
	return nil
}

func (r *memoryPackageRepository) SumRevenue(_ context.Context, filter RevenueFilter) (*RevenueSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	within := func(t *time.Time) bool {
		return t != nil && !t.Before(filter.From) && t.Before(filter.To)
	}

	var s RevenueSummary
	for _, p := range r.packages {
		if filter.LocationID != "" && p.LocationID != filter.LocationID {
			continue
		}
		if p.FeePaid > 0 && within(p.PaymentTimestamp) {
			s.FeeTotal += p.FeePaid
			s.Payments++
		}
		if p.Status == models.StatusPicked && within(p.Dates.Picked) {
			s.Picked++
		}
		if p.Status == models.StatusDestroyed && within(p.Dates.Destroyed) {
			s.Destroyed++
		}
	}
	return &s, nil
}

type memoryLocationRepository struct {
	mu        sync.RWMutex
	locations map[string]models.Location
}

func NewMemoryLocationRepository() LocationRepository {
	return &memoryLocationRepository{locations: make(map[string]models.Location)}
}

func (r *memoryLocationRepository) Create(_ context.Context, loc *models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.locations[loc.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	loc.CreatedAt, loc.UpdatedAt = now, now
	r.locations[loc.ID] = *loc
	return nil
}

func (r *memoryLocationRepository) Update(_ context.Context, loc *models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locations[loc.ID]
	if !ok {
		return ErrNotFound
	}
	loc.CreatedAt = existing.CreatedAt
	loc.UpdatedAt = time.Now().UTC()
	r.locations[loc.ID] = *loc
	return nil
}

func (r *memoryLocationRepository) GetByID(_ context.Context, id string) (*models.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc, ok := r.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &loc, nil
}

func (r *memoryLocationRepository) List(_ context.Context) ([]*models.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Location, 0, len(r.locations))
	for _, loc := range r.locations {
		l := loc
		out = append(out, &l)
	}
	slices.SortFunc(out, func(a, b *models.Location) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

type memoryCustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]models.Customer
}

func NewMemoryCustomerRepository() CustomerRepository {
	return &memoryCustomerRepository{customers: make(map[string]models.Customer)}
}

func (r *memoryCustomerRepository) GetByPhone(_ context.Context, phone string) (*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[phone]
	if !ok {
		return nil, ErrNotFound
	}
	c.MembershipExpiry = cloneTime(c.MembershipExpiry)
	return &c, nil
}

func (r *memoryCustomerRepository) GetByPhones(_ context.Context, phones []string) (map[string]*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.Customer, len(phones))
	for _, phone := range phones {
		if c, ok := r.customers[phone]; ok {
			c.MembershipExpiry = cloneTime(c.MembershipExpiry)
			out[phone] = &c
		}
	}
	return out, nil
}

func (r *memoryCustomerRepository) Save(_ context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.customers[customer.PhoneNumber]; ok {
		existing.Name = customer.Name
		existing.UpdatedAt = now
		r.customers[customer.PhoneNumber] = existing

		*customer = existing
		customer.MembershipExpiry = cloneTime(existing.MembershipExpiry)
		return nil
	}

	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	if customer.Version == 0 {
		customer.Version = 1
	}
	customer.UpdatedAt = now
	r.store(customer)
	return nil
}

func (r *memoryCustomerRepository) ExtendMembership(_ context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.customers[customer.PhoneNumber]
	switch {
	case customer.Version == 0 && ok:
		return ErrStale
	case customer.Version == 0:
		customer.Version = 1
		customer.CreatedAt = now
	case !ok || existing.Version != customer.Version:
		return ErrStale
	default:
		customer.Version++
		customer.CreatedAt = existing.CreatedAt
	}
	customer.UpdatedAt = now
	r.store(customer)
	return nil
}

// store keeps a private copy; callers must hold the lock.
func (r *memoryCustomerRepository) store(customer *models.Customer) {
	stored := *customer
	stored.MembershipExpiry = cloneTime(customer.MembershipExpiry)
	r.customers[customer.PhoneNumber] = stored
}

type memoryUserRepository struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]models.User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[uint]models.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}
