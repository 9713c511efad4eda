package repository

import (
	"context"

	"service-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User    UserRepository
	OTP     OTPRepository
	Address AddressRepository
	Service ServiceRepository
	Booking BookingRepository
	Payment PaymentRepository
	Outbox  OutboxRepository

	tx Transactor
}

// Transactor runs fn with a Repository whose repositories share one transaction.
// fn may be invoked more than once when the transaction is retried.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *Repository) error) error
}

// WithTx runs fn atomically: every write made through tx commits together or not at all.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.tx.WithTx(ctx, fn)
}

// NewRepository builds Postgres-backed repositories over db.
func NewRepository(db database.PgxIface, log *zap.Logger, maxRetries int) *Repository {
	repo := newPgRepository(db, log)
	repo.tx = &pgTransactor{
		db:         db,
		log:        log.With(zap.String("component", "transactor")),
		maxRetries: maxRetries,
		build:      func(q database.Querier) *Repository { return newPgRepository(q, log) },
	}
	return repo
}

func newPgRepository(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(q, log),
		OTP:     NewOTPRepository(q, log),
		Address: NewAddressRepository(q, log),
		Service: NewServiceRepository(q, log),
		Booking: NewBookingRepository(q, log),
		Payment: NewPaymentRepository(q, log),
		Outbox:  NewOutboxRepository(q, log),
	}
}

// inTx lets a transaction-bound Repository run nested WithTx calls in the same transaction.
type inTx struct {
	repo *Repository
}

func (t inTx) WithTx(_ context.Context, fn func(tx *Repository) error) error {
	return fn(t.repo)
}
