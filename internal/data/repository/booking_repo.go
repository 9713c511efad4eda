package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"service-booking/internal/data/entity"
	"service-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingFilter narrows booking listings. ProviderID with IncludeOpen also matches
// unassigned pending/accepted bookings a provider may claim.
type BookingFilter struct {
	CustomerID  *uuid.UUID
	ProviderID  *uuid.UUID
	IncludeOpen bool
	Status      *entity.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate row-locks the booking until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// Update persists mutable fields if booking.Version is current, then bumps it.
	Update(ctx context.Context, booking *entity.Booking) error
	// LinkPayment sets payment_id once; relinking to a different payment fails with ErrStaleVersion.
	// It leaves version untouched so a locked booking can still be updated afterwards.
	LinkPayment(ctx context.Context, bookingID, paymentID uuid.UUID) error
	List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*entity.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int64, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, customer_id, service_id, address_id, provider_id, status, scheduled_date, scheduled_time,
	base_price, discount_percentage, final_amount, payment_id, report_refs, notes, cancelled_by,
	cancellation_reason, version, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.ServiceID,
		&b.AddressID,
		&b.ProviderID,
		&b.Status,
		&b.ScheduledDate,
		&b.ScheduledTime,
		&b.Amount.BasePrice,
		&b.Amount.DiscountPercentage,
		&b.Amount.FinalAmount,
		&b.PaymentID,
		&b.ReportRefs,
		&b.Notes,
		&b.CancelledBy,
		&b.CancellationReason,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func reportRefs(b *entity.Booking) []string {
	if b.ReportRefs == nil {
		return []string{}
	}
	return b.ReportRefs
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, customer_id, service_id, address_id, provider_id, status, scheduled_date,
			scheduled_time, base_price, discount_percentage, final_amount, payment_id, report_refs, notes,
			cancelled_by, cancellation_reason, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	if booking.Version == 0 {
		booking.Version = 1
	}

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ServiceID,
		booking.AddressID,
		booking.ProviderID,
		booking.Status,
		booking.ScheduledDate,
		booking.ScheduledTime,
		booking.Amount.BasePrice,
		booking.Amount.DiscountPercentage,
		booking.Amount.FinalAmount,
		booking.PaymentID,
		reportRefs(booking),
		booking.Notes,
		booking.CancelledBy,
		booking.CancellationReason,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID, mapPgError(err))
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *bookingRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Booking, error) {
	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}

	return booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	// customer, service, address and amount are immutable and deliberately absent here
	query := `
		UPDATE bookings
		SET provider_id = $3, status = $4, payment_id = $5, report_refs = $6,
		    cancelled_by = $7, cancellation_reason = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Version,
		booking.ProviderID,
		booking.Status,
		booking.PaymentID,
		reportRefs(booking),
		booking.CancelledBy,
		booking.CancellationReason,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s at version %d: %w", booking.ID, booking.Version, ErrStaleVersion)
	}

	booking.Version++
	return nil
}

func (r *bookingRepository) LinkPayment(ctx context.Context, bookingID, paymentID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET payment_id = $2, updated_at = NOW()
		WHERE id = $1 AND (payment_id IS NULL OR payment_id = $2)
	`

	result, err := r.db.Exec(ctx, query, bookingID, paymentID)
	if err != nil {
		r.log.Error("Failed to link payment to booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("payment_id", paymentID.String()),
		)
		return fmt.Errorf("link payment %s to booking %s: %w", paymentID, bookingID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s already linked to another payment: %w", bookingID, ErrStaleVersion)
	}

	return nil
}

func buildBookingWhere(filter BookingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CustomerID != nil {
		conds = append(conds, "customer_id = "+next(*filter.CustomerID))
	}
	if filter.ProviderID != nil {
		own := "provider_id = " + next(*filter.ProviderID)
		if filter.IncludeOpen {
			own = "(" + own + " OR (provider_id IS NULL AND status IN ('pending', 'accepted')))"
		}
		conds = append(conds, own)
	}
	if filter.Status != nil {
		conds = append(conds, "status = "+next(*filter.Status))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	where, args := buildBookingWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list bookings",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) Count(ctx context.Context, filter BookingFilter) (int64, error) {
	where, args := buildBookingWhere(filter)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return 0, fmt.Errorf("count bookings: %w", err)
	}

	return count, nil
}
