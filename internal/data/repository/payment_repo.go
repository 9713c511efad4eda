package repository

import (
	"context"
	"errors"
	"fmt"

	"service-booking/internal/data/entity"
	"service-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	// Create inserts the booking's payment; a second payment for the same booking fails with ErrDuplicate.
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	// Update persists gateway and status fields if payment.Version is current, then bumps it.
	Update(ctx context.Context, payment *entity.Payment) error
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, customer_id, gateway_order_id, issued_order_ids, order_issued_at, gateway_payment_id,
	gateway_signature, amount, currency, status, verified_at, version, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.CustomerID,
		&p.GatewayOrderID,
		&p.IssuedOrderIDs,
		&p.OrderIssuedAt,
		&p.GatewayPaymentID,
		&p.GatewaySignature,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.VerifiedAt,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, customer_id, gateway_order_id, issued_order_ids, order_issued_at,
			gateway_payment_id, gateway_signature, amount, currency, status, verified_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::TEXT[]), $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	if payment.Version == 0 {
		payment.Version = 1
	}

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.CustomerID,
		payment.GatewayOrderID,
		payment.IssuedOrderIDs,
		payment.OrderIssuedAt,
		payment.GatewayPaymentID,
		payment.GatewaySignature,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.VerifiedAt,
		payment.Version,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		err = mapPgError(err)
		if errors.Is(err, ErrDuplicate) {
			r.log.Warn("Payment already exists for booking", zap.String("booking_id", payment.BookingID.String()))
		} else {
			r.log.Error("Failed to create payment",
				zap.Error(err),
				zap.String("booking_id", payment.BookingID.String()),
			)
		}
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID, err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
}

func (r *paymentRepository) FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 FOR UPDATE`, bookingID)
}

func (r *paymentRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Payment, error) {
	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment",
			zap.Error(err),
			zap.String("lookup_id", id.String()),
		)
		return nil, fmt.Errorf("find payment %s: %w", id, err)
	}

	return payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments
		SET gateway_order_id = $3, order_issued_at = $4, gateway_payment_id = $5, gateway_signature = $6,
		    status = $7, verified_at = $8, updated_at = $9, issued_order_ids = COALESCE($10, '{}'::TEXT[]),
		    version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.Version,
		payment.GatewayOrderID,
		payment.OrderIssuedAt,
		payment.GatewayPaymentID,
		payment.GatewaySignature,
		payment.Status,
		payment.VerifiedAt,
		payment.UpdatedAt,
		payment.IssuedOrderIDs,
	)
	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		return fmt.Errorf("update payment %s: %w", payment.ID, mapPgError(err))
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update payment %s at version %d: %w", payment.ID, payment.Version, ErrStaleVersion)
	}

	payment.Version++
	return nil
}
