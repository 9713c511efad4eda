package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"service-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore backs the "memory" database driver. One mutex serialises every
// transaction, and a failed transaction restores the snapshot taken at begin.
type memStore struct {
	mu sync.Mutex

	users     map[uuid.UUID]entity.User
	otps      map[uuid.UUID]entity.OTPCredential
	addresses map[uuid.UUID]entity.Address
	services  map[uuid.UUID]entity.Service
	bookings  map[uuid.UUID]*entity.Booking
	payments  map[uuid.UUID]*entity.Payment
	outbox    map[string]entity.OutboxEvent
}

// NewMemoryRepository builds repositories over a process-local store.
// It honours the same uniqueness, version and rollback rules as Postgres.
func NewMemoryRepository(log *zap.Logger, maxRetries int) *Repository {
	s := &memStore{
		users:     map[uuid.UUID]entity.User{},
		otps:      map[uuid.UUID]entity.OTPCredential{},
		addresses: map[uuid.UUID]entity.Address{},
		services:  map[uuid.UUID]entity.Service{},
		bookings:  map[uuid.UUID]*entity.Booking{},
		payments:  map[uuid.UUID]*entity.Payment{},
		outbox:    map[string]entity.OutboxEvent{},
	}

	repo := s.repository(false)
	repo.tx = &memTransactor{
		s:          s,
		log:        log.With(zap.String("component", "transactor")),
		maxRetries: maxRetries,
	}
	return repo
}

func (s *memStore) repository(held bool) *Repository {
	return &Repository{
		User:    &memUserRepo{s: s, held: held},
		OTP:     &memOTPRepo{s: s, held: held},
		Address: &memAddressRepo{s: s, held: held},
		Service: &memServiceRepo{s: s, held: held},
		Booking: &memBookingRepo{s: s, held: held},
		Payment: &memPaymentRepo{s: s, held: held},
		Outbox:  &memOutboxRepo{s: s, held: held},
	}
}

// lock takes the store mutex unless the caller already runs inside a transaction.
func (s *memStore) lock(held bool) func() {
	if held {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memSnapshot struct {
	users     map[uuid.UUID]entity.User
	otps      map[uuid.UUID]entity.OTPCredential
	addresses map[uuid.UUID]entity.Address
	services  map[uuid.UUID]entity.Service
	bookings  map[uuid.UUID]*entity.Booking
	payments  map[uuid.UUID]*entity.Payment
	outbox    map[string]entity.OutboxEvent
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:     copyMap(s.users),
		otps:      copyMap(s.otps),
		addresses: copyMap(s.addresses),
		services:  copyMap(s.services),
		bookings:  make(map[uuid.UUID]*entity.Booking, len(s.bookings)),
		payments:  make(map[uuid.UUID]*entity.Payment, len(s.payments)),
		outbox:    copyMap(s.outbox),
	}
	for id, b := range s.bookings {
		snap.bookings[id] = b.Clone()
	}
	for id, p := range s.payments {
		snap.payments[id] = p.Clone()
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.otps = snap.otps
	s.addresses = snap.addresses
	s.services = snap.services
	s.bookings = snap.bookings
	s.payments = snap.payments
	s.outbox = snap.outbox
}

type memTransactor struct {
	s          *memStore
	log        *zap.Logger
	maxRetries int
}

func (t *memTransactor) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return retryTx(ctx, t.log, t.maxRetries, func() error {
		return t.run(ctx, fn)
	})
}

func (t *memTransactor) run(ctx context.Context, fn func(tx *Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	snap := t.s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.s.restore(snap)
			panic(p)
		}
		if err != nil {
			t.s.restore(snap)
		}
	}()

	repo := t.s.repository(true)
	repo.tx = inTx{repo: repo}
	return fn(repo)
}

// users

type memUserRepo struct {
	s    *memStore
	held bool
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	defer r.s.lock(r.held)()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: users_email_key: %w", ErrDuplicate)
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	defer r.s.lock(r.held)()

	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	return &u, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	defer r.s.lock(r.held)()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) && u.DeletedAt == nil {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	defer r.s.lock(r.held)()

	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.EmailVerified = true
	u.UpdatedAt = time.Now()
	r.s.users[id] = u
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	defer r.s.lock(r.held)()

	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	r.s.users[id] = u
	return nil
}

// otp credentials

type memOTPRepo struct {
	s    *memStore
	held bool
}

func (r *memOTPRepo) Create(_ context.Context, otp *entity.OTPCredential) error {
	defer r.s.lock(r.held)()

	r.s.otps[otp.ID] = *otp
	return nil
}

func (r *memOTPRepo) FindLatest(_ context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*entity.OTPCredential, error) {
	defer r.s.lock(r.held)()

	var latest *entity.OTPCredential
	for _, c := range r.s.otps {
		if c.UserID != userID || c.Purpose != purpose {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			c := c
			latest = &c
		}
	}
	return latest, nil
}

func (r *memOTPRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	defer r.s.lock(r.held)()

	c, ok := r.s.otps[id]
	if !ok || c.UsedAt != nil {
		return fmt.Errorf("OTP %s already used: %w", id, ErrStaleVersion)
	}
	now := time.Now()
	c.UsedAt = &now
	r.s.otps[id] = c
	return nil
}

// addresses

type memAddressRepo struct {
	s    *memStore
	held bool
}

func (r *memAddressRepo) Create(_ context.Context, address *entity.Address) error {
	defer r.s.lock(r.held)()

	r.s.addresses[address.ID] = *address
	return nil
}

func (r *memAddressRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Address, error) {
	defer r.s.lock(r.held)()

	a, ok := r.s.addresses[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memAddressRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID) ([]*entity.Address, error) {
	defer r.s.lock(r.held)()

	var out []*entity.Address
	for _, a := range r.s.addresses {
		if a.CustomerID == customerID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// services

type memServiceRepo struct {
	s    *memStore
	held bool
}

func (r *memServiceRepo) Create(_ context.Context, service *entity.Service) error {
	defer r.s.lock(r.held)()

	r.s.services[service.ID] = *service
	return nil
}

func (r *memServiceRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	defer r.s.lock(r.held)()

	svc, ok := r.s.services[id]
	if !ok || svc.DeletedAt != nil {
		return nil, nil
	}
	return &svc, nil
}

func (r *memServiceRepo) active(category string) []*entity.Service {
	var out []*entity.Service
	for _, svc := range r.s.services {
		if !svc.IsActive || svc.DeletedAt != nil || (category != "" && svc.Category != category) {
			continue
		}
		svc := svc
		out = append(out, &svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *memServiceRepo) FindActive(_ context.Context, category string, limit, offset int) ([]*entity.Service, error) {
	defer r.s.lock(r.held)()

	return page(r.active(category), limit, offset), nil
}

func (r *memServiceRepo) CountActive(_ context.Context, category string) (int64, error) {
	defer r.s.lock(r.held)()

	return int64(len(r.active(category))), nil
}

func (r *memServiceRepo) Update(_ context.Context, service *entity.Service) error {
	defer r.s.lock(r.held)()

	if _, ok := r.s.services[service.ID]; !ok {
		return fmt.Errorf("service %s not found", service.ID)
	}
	r.s.services[service.ID] = *service
	return nil
}

// bookings

type memBookingRepo struct {
	s    *memStore
	held bool
}

func (r *memBookingRepo) Create(_ context.Context, booking *entity.Booking) error {
	defer r.s.lock(r.held)()

	if _, ok := r.s.bookings[booking.ID]; ok {
		return fmt.Errorf("create booking %s: bookings_pkey: %w", booking.ID, ErrDuplicate)
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	r.s.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer r.s.lock(r.held)()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

func (r *memBookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *memBookingRepo) Update(_ context.Context, booking *entity.Booking) error {
	defer r.s.lock(r.held)()

	cur, ok := r.s.bookings[booking.ID]
	if !ok || cur.Version != booking.Version {
		return fmt.Errorf("update booking %s at version %d: %w", booking.ID, booking.Version, ErrStaleVersion)
	}

	next := booking.Clone()
	next.Version++
	// immutable columns keep their stored values
	next.CustomerID, next.ServiceID, next.AddressID = cur.CustomerID, cur.ServiceID, cur.AddressID
	next.Amount, next.ScheduledDate, next.ScheduledTime = cur.Amount, cur.ScheduledDate, cur.ScheduledTime
	r.s.bookings[booking.ID] = next
	booking.Version++
	return nil
}

func (r *memBookingRepo) LinkPayment(_ context.Context, bookingID, paymentID uuid.UUID) error {
	defer r.s.lock(r.held)()

	cur, ok := r.s.bookings[bookingID]
	if !ok || (cur.PaymentID != nil && *cur.PaymentID != paymentID) {
		return fmt.Errorf("booking %s already linked to another payment: %w", bookingID, ErrStaleVersion)
	}
	id := paymentID
	cur.PaymentID = &id
	cur.UpdatedAt = time.Now()
	return nil
}

func bookingMatches(b *entity.Booking, f BookingFilter) bool {
	if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
		return false
	}
	if f.ProviderID != nil && !b.AssignedTo(*f.ProviderID) {
		open := b.ProviderID == nil &&
			(b.Status == entity.BookingStatusPending || b.Status == entity.BookingStatusAccepted)
		if !f.IncludeOpen || !open {
			return false
		}
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	return true
}

func (r *memBookingRepo) filter(f BookingFilter) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if bookingMatches(b, f) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memBookingRepo) List(_ context.Context, f BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	defer r.s.lock(r.held)()

	return page(r.filter(f), limit, offset), nil
}

func (r *memBookingRepo) Count(_ context.Context, f BookingFilter) (int64, error) {
	defer r.s.lock(r.held)()

	return int64(len(r.filter(f))), nil
}

// payments

type memPaymentRepo struct {
	s    *memStore
	held bool
}

func (r *memPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	defer r.s.lock(r.held)()

	for _, p := range r.s.payments {
		if p.BookingID == payment.BookingID {
			return fmt.Errorf("create payment for booking %s: payments_booking_id_key: %w", payment.BookingID, ErrDuplicate)
		}
	}
	if payment.Version == 0 {
		payment.Version = 1
	}
	r.s.payments[payment.ID] = payment.Clone()
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	defer r.s.lock(r.held)()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *memPaymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r *memPaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	defer r.s.lock(r.held)()

	for _, p := range r.s.payments {
		if p.BookingID == bookingID {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.FindByBookingID(ctx, bookingID)
}

func (r *memPaymentRepo) Update(_ context.Context, payment *entity.Payment) error {
	defer r.s.lock(r.held)()

	cur, ok := r.s.payments[payment.ID]
	if !ok || cur.Version != payment.Version {
		return fmt.Errorf("update payment %s at version %d: %w", payment.ID, payment.Version, ErrStaleVersion)
	}
	if payment.GatewayPaymentID != nil {
		for id, p := range r.s.payments {
			if id != payment.ID && p.GatewayPaymentID != nil && *p.GatewayPaymentID == *payment.GatewayPaymentID {
				return fmt.Errorf("update payment %s: payments_gateway_payment_id_key: %w", payment.ID, ErrDuplicate)
			}
		}
	}

	next := payment.Clone()
	next.Version++
	next.BookingID, next.CustomerID, next.Amount, next.Currency = cur.BookingID, cur.CustomerID, cur.Amount, cur.Currency
	r.s.payments[payment.ID] = next
	payment.Version++
	return nil
}

// outbox

type memOutboxRepo struct {
	s    *memStore
	held bool
}

func (r *memOutboxRepo) Create(_ context.Context, event *entity.OutboxEvent) error {
	defer r.s.lock(r.held)()

	if event.Status == "" {
		event.Status = entity.OutboxStatusPending
	}
	if _, ok := r.s.outbox[event.ID]; ok {
		return fmt.Errorf("create outbox event: outbox_events_pkey: %w", ErrDuplicate)
	}
	r.s.outbox[event.ID] = *event
	return nil
}

func (r *memOutboxRepo) FetchPending(_ context.Context, limit, maxAttempts int) ([]*entity.OutboxEvent, error) {
	defer r.s.lock(r.held)()

	var out []*entity.OutboxEvent
	for _, e := range r.s.outbox {
		if e.Status == entity.OutboxStatusPending && e.Attempts < maxAttempts {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, 0), nil
}

func (r *memOutboxRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	defer r.s.lock(r.held)()

	e, ok := r.s.outbox[id]
	if !ok {
		return fmt.Errorf("outbox event %s not found", id)
	}
	e.Status = entity.OutboxStatusSent
	e.SentAt = &at
	r.s.outbox[id] = e
	return nil
}

func (r *memOutboxRepo) IncrementAttempts(_ context.Context, id string) error {
	defer r.s.lock(r.held)()

	e, ok := r.s.outbox[id]
	if !ok {
		return fmt.Errorf("outbox event %s not found", id)
	}
	e.Attempts++
	r.s.outbox[id] = e
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
