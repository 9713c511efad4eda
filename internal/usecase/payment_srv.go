package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-booking/internal/apperr"
	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/pkg/gateway"
	"service-booking/pkg/lock"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentation = "service-booking/internal/usecase"

type PaymentService interface {
	// OpenOrder returns a gateway order for the booking's single payment, creating the payment on first use.
	OpenOrder(ctx context.Context, actor utils.Actor, bookingID string) (*response.OrderResponse, error)
	// Verify checks the gateway signature and settles payment and booking together.
	Verify(ctx context.Context, req *request.VerifyPaymentRequest) (*response.VerifyPaymentResponse, error)
}

type paymentService struct {
	repo    *repository.Repository
	gateway gateway.Gateway
	locker  lock.Locker
	signer  *Signer
	cfg     utils.GatewayConfig
	lockTTL time.Duration
	log     *zap.Logger
	clock   clock

	tracer           trace.Tracer
	signatureInvalid metric.Int64Counter
	verified         metric.Int64Counter
}

func NewPaymentService(
	repo *repository.Repository,
	gw gateway.Gateway,
	locker lock.Locker,
	cfg utils.GatewayConfig,
	lockCfg utils.LockConfig,
	log *zap.Logger,
) PaymentService {
	log = log.With(zap.String("service", "payment"))
	meter := otel.Meter(instrumentation)

	signatureInvalid, err := meter.Int64Counter("payments.signature_invalid",
		metric.WithDescription("Payment callbacks rejected for a bad signature"))
	if err != nil {
		log.Warn("Unable to register signature metric", zap.Error(err))
	}
	verified, err := meter.Int64Counter("payments.verified",
		metric.WithDescription("Payments settled by a verified callback"))
	if err != nil {
		log.Warn("Unable to register verified metric", zap.Error(err))
	}

	ttl := lockCfg.TTL
	if ttl < cfg.Timeout {
		// the lock must outlive the gateway call it guards
		ttl = cfg.Timeout + 5*time.Second
	}

	return &paymentService{
		repo:             repo,
		gateway:          gw,
		locker:           locker,
		signer:           NewSigner(cfg.KeySecret),
		cfg:              cfg,
		lockTTL:          ttl,
		log:              log,
		clock:            time.Now,
		tracer:           otel.Tracer(instrumentation),
		signatureInvalid: signatureInvalid,
		verified:         verified,
	}
}

func (s *paymentService) count(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func orderResponse(p *entity.Payment, keyID string, reused bool) *response.OrderResponse {
	return &response.OrderResponse{
		PaymentID: p.ID.String(),
		OrderID:   *p.GatewayOrderID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		KeyID:     keyID,
		Reused:    reused,
	}
}

func (s *paymentService) OpenOrder(ctx context.Context, actor utils.Actor, bookingID string) (resp *response.OrderResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "payment.open_order", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	if err := requireRole(actor, entity.RoleCustomer); err != nil {
		return nil, err
	}
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	// 1. Bind exactly one payment to the booking
	payment, err := s.ensurePayment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.id", payment.ID.String()))

	if payment.OrderReusable(s.clock(), s.cfg.OrderReuseWindow) {
		return orderResponse(payment, s.cfg.KeyID, true), nil
	}

	// 2. One gateway call per booking at a time
	release, err := s.locker.Acquire(ctx, "payment-order:"+id.String(), s.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, fmt.Errorf("order for booking %s is being issued: %w", id, apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking %s: %v: %w", id, err, apperr.ErrRetryable)
	}
	defer func() {
		_ = release(context.WithoutCancel(ctx))
	}()

	// the previous holder may have just issued an order or the callback may have landed
	payment, err = s.repo.Payment.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("reload payment: %w", err)
	}
	if payment.IsCompleted() {
		return nil, fmt.Errorf("payment %s: %w", payment.ID, apperr.ErrAlreadyPaid)
	}
	if payment.OrderReusable(s.clock(), s.cfg.OrderReuseWindow) {
		return orderResponse(payment, s.cfg.KeyID, true), nil
	}

	// 3. Gateway call, outside any transaction
	order, err := s.createOrder(ctx, payment)
	if err != nil {
		return nil, err
	}

	// 4. Record the order unless the payment settled meanwhile
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := tx.Payment.FindByIDForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		if p.IsCompleted() {
			return fmt.Errorf("payment %s: %w", p.ID, apperr.ErrAlreadyPaid)
		}

		now := s.clock()
		p.RecordOrder(order.ID, now)
		p.UpdatedAt = now
		if err := tx.Payment.Update(ctx, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record order for payment %s: %w", payment.ID, err)
	}

	s.log.Info("Payment order issued",
		zap.String("booking_id", id.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID),
		zap.Int64("amount", payment.Amount),
	)

	return orderResponse(payment, s.cfg.KeyID, false), nil
}

// ensurePayment locks the booking, runs the ownership and state checks, and returns its
// single payment, creating and linking it on first use.
func (s *paymentService) ensurePayment(ctx context.Context, actor utils.Actor, bookingID uuid.UUID) (*entity.Payment, error) {
	var payment *entity.Payment

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		booking, err := tx.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
		}
		if booking.CustomerID != actor.UserID {
			return fmt.Errorf("booking %s belongs to another customer: %w", bookingID, apperr.ErrForbidden)
		}

		existing, err := tx.Payment.FindByBookingIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsCompleted() {
			return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrAlreadyPaid)
		}
		if booking.Status != entity.BookingStatusPending {
			return fmt.Errorf("open order for booking in status %s: %w", booking.Status, apperr.ErrInvalidTransition)
		}

		if existing == nil {
			now := s.clock()
			existing = &entity.Payment{
				BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
				BookingID:    booking.ID,
				CustomerID:   booking.CustomerID,
				Amount:       booking.Amount.FinalAmount,
				Currency:     s.cfg.Currency,
				Status:       entity.PaymentStatusPending,
			}
			if err := tx.Payment.Create(ctx, existing); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("payment for booking %s created concurrently: %w", bookingID, repository.ErrStaleVersion)
				}
				return err
			}
		}

		if err := tx.Booking.LinkPayment(ctx, booking.ID, existing.ID); err != nil {
			return err
		}
		payment = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open order for booking %s: %w", bookingID, err)
	}

	return payment, nil
}

func (s *paymentService) createOrder(ctx context.Context, payment *entity.Payment) (gateway.Order, error) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	order, err := s.gateway.CreateOrder(gctx, gateway.OrderRequest{
		Amount:   payment.Amount,
		Currency: payment.Currency,
		Receipt:  utils.GenerateReceipt(s.clock()),
		Notes: map[string]string{
			"booking_id":  payment.BookingID.String(),
			"payment_id":  payment.ID.String(),
			"customer_id": payment.CustomerID.String(),
		},
	})
	if err != nil {
		s.log.Warn("Gateway order failed",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		return gateway.Order{}, fmt.Errorf("create gateway order: %v: %w", err, apperr.ErrGatewayUnavailable)
	}
	if order.Amount != payment.Amount {
		s.log.Error("Gateway order amount mismatch",
			zap.String("order_id", order.ID),
			zap.Int64("expected", payment.Amount),
			zap.Int64("got", order.Amount),
		)
		return gateway.Order{}, fmt.Errorf("gateway order %s has amount %d, want %d: %w",
			order.ID, order.Amount, payment.Amount, apperr.ErrGatewayUnavailable)
	}

	return order, nil
}

func (s *paymentService) rejectSignature(ctx context.Context, req *request.VerifyPaymentRequest, reason string) error {
	s.count(ctx, s.signatureInvalid, attribute.String("reason", reason))
	s.log.Warn("Payment signature rejected",
		zap.String("event", "payment_signature_invalid"),
		zap.String("reason", reason),
		zap.String("payment_id", req.PaymentID),
		zap.String("order_id", req.GatewayOrderID),
		zap.String("gateway_payment_id", req.GatewayPaymentID),
	)
	return fmt.Errorf("payment %s: %w", req.PaymentID, apperr.ErrSignatureInvalid)
}

func (s *paymentService) Verify(ctx context.Context, req *request.VerifyPaymentRequest) (resp *response.VerifyPaymentResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "payment.verify", trace.WithAttributes(attribute.String("payment.id", req.PaymentID)))
	defer func() { endSpan(span, err) }()

	if err := validate(req); err != nil {
		return nil, err
	}
	paymentID, err := parseID("payment_id", req.PaymentID)
	if err != nil {
		return nil, err
	}

	if !s.signer.Valid(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		return nil, s.rejectSignature(ctx, req, "mismatch")
	}

	var (
		result     response.VerifyPaymentResponse
		wrongOrder bool
	)
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		result, wrongOrder = response.VerifyPaymentResponse{}, false

		// lock order matches OpenOrder: booking first, then payment
		current, err := tx.Payment.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("payment %s: %w", paymentID, apperr.ErrNotFound)
		}
		booking, err := tx.Booking.FindByIDForUpdate(ctx, current.BookingID)
		if err != nil {
			return err
		}
		payment, err := tx.Payment.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		// a superseded order can still be paid from a checkout opened before the reissue
		if !payment.IssuedOrder(req.GatewayOrderID) {
			wrongOrder = true
			return nil
		}

		if payment.IsCompleted() {
			if payment.GatewayPaymentID != nil && *payment.GatewayPaymentID == req.GatewayPaymentID {
				result.AlreadyVerified = true
				result.BookingNoLongerPending = booking.Status == entity.BookingStatusCancelled
				result.Payment = response.PaymentToResponse(payment)
				result.Booking = response.BookingToResponse(booking)
				return nil
			}
			return fmt.Errorf("payment %s settled by another gateway payment: %w", paymentID, apperr.ErrAlreadyPaid)
		}

		now := s.clock()
		orderID, gatewayPaymentID, signature := req.GatewayOrderID, req.GatewayPaymentID, req.Signature
		payment.Status = entity.PaymentStatusCompleted
		payment.GatewayOrderID = &orderID
		payment.GatewayPaymentID = &gatewayPaymentID
		payment.GatewaySignature = &signature
		payment.VerifiedAt = &now
		payment.UpdatedAt = now
		if err := tx.Payment.Update(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("gateway payment %s already used: %w", gatewayPaymentID, apperr.ErrAlreadyPaid)
			}
			return err
		}

		evt := paymentEvent{
			PaymentID:        payment.ID.String(),
			BookingID:        payment.BookingID.String(),
			CustomerID:       payment.CustomerID.String(),
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: gatewayPaymentID,
			Amount:           payment.Amount,
			Currency:         payment.Currency,
			OccurredAt:       now,
		}
		if err := recordEvent(ctx, tx, "payment", payment.ID.String(), entity.EventPaymentSettled, evt, now); err != nil {
			return err
		}

		from := booking.Status
		if booking.Apply(entity.EventPaymentVerified, now) {
			if err := tx.Booking.Update(ctx, booking); err != nil {
				return err
			}
			if err := recordEvent(ctx, tx, "booking", booking.ID.String(), entity.EventBookingStatusChanged,
				newBookingEvent(booking, from, now), now); err != nil {
				return err
			}
		} else {
			// money taken for a booking that left pending, typically a cancellation
			result.BookingNoLongerPending = true
			if err := recordEvent(ctx, tx, "payment", payment.ID.String(), entity.EventPaymentRefundRequired, evt, now); err != nil {
				return err
			}
		}

		result.Payment = response.PaymentToResponse(payment)
		result.Booking = response.BookingToResponse(booking)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", paymentID, err)
	}
	if wrongOrder {
		return nil, s.rejectSignature(ctx, req, "order_mismatch")
	}

	if result.AlreadyVerified {
		s.log.Info("Payment callback replayed", zap.String("payment_id", paymentID.String()))
		return &result, nil
	}

	s.count(ctx, s.verified, attribute.Bool("booking_no_longer_pending", result.BookingNoLongerPending))
	if result.BookingNoLongerPending {
		s.log.Warn("Payment verified for booking no longer pending, refund required",
			zap.String("payment_id", paymentID.String()),
			zap.String("booking_id", result.Booking.ID),
			zap.String("booking_status", string(result.Booking.Status)),
		)
	} else {
		s.log.Info("Payment verified",
			zap.String("payment_id", paymentID.String()),
			zap.String("booking_id", result.Booking.ID),
		)
	}

	return &result, nil
}
