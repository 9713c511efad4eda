package usecase

import (
	"context"
	"fmt"
	"time"

	"service-booking/internal/apperr"
	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobService is the provider-facing action surface over bookings.
type JobService interface {
	AcceptReject(ctx context.Context, actor utils.Actor, bookingID string, req *request.AcceptRejectRequest) (*response.BookingResponse, error)
	UpdateStatus(ctx context.Context, actor utils.Actor, bookingID string, req *request.UpdateJobStatusRequest) (*response.BookingResponse, error)

	Accept(ctx context.Context, providerID, bookingID uuid.UUID) (*entity.Booking, error)
	Reject(ctx context.Context, providerID, bookingID uuid.UUID) (*entity.Booking, error)
	Advance(ctx context.Context, providerID, bookingID uuid.UUID, ev entity.BookingEvent, reportRefs []string) (*entity.Booking, error)
}

type jobService struct {
	repo  *repository.Repository
	log   *zap.Logger
	clock clock
}

func NewJobService(repo *repository.Repository, log *zap.Logger) JobService {
	return &jobService{
		repo:  repo,
		log:   log.With(zap.String("service", "job")),
		clock: time.Now,
	}
}

func (s *jobService) AcceptReject(ctx context.Context, actor utils.Actor, bookingID string, req *request.AcceptRejectRequest) (*response.BookingResponse, error) {
	if err := requireRole(actor, entity.RoleProvider); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	var booking *entity.Booking
	if req.Action == "accept" {
		booking, err = s.Accept(ctx, actor.UserID, id)
	} else {
		booking, err = s.Reject(ctx, actor.UserID, id)
	}
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *jobService) UpdateStatus(ctx context.Context, actor utils.Actor, bookingID string, req *request.UpdateJobStatusRequest) (*response.BookingResponse, error) {
	if err := requireRole(actor, entity.RoleProvider); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	ev, ok := entity.ProviderEventFor(entity.BookingStatus(req.Status))
	if !ok {
		return nil, apperr.FieldErrors{"Status": "Must be one of: provider_arriving, in_progress, completed"}
	}

	booking, err := s.Advance(ctx, actor.UserID, id, ev, req.ReportRefs)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// mutate runs fn against the locked booking and persists it with an outbox event when fn reports a change.
func (s *jobService) mutate(ctx context.Context, bookingID uuid.UUID, eventType string,
	fn func(b *entity.Booking, now time.Time) (changed bool, err error)) (*entity.Booking, error) {
	var result *entity.Booking

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		booking, err := tx.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
		}

		now := s.clock()
		from := booking.Status
		changed, err := fn(booking, now)
		if err != nil {
			return err
		}
		result = booking
		if !changed {
			return nil
		}

		if err := tx.Booking.Update(ctx, booking); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "booking", booking.ID.String(), eventType, newBookingEvent(booking, from, now), now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Accept claims an unassigned booking. Status is left alone: only a verified payment moves pending to accepted.
func (s *jobService) Accept(ctx context.Context, providerID, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, bookingID, entity.EventBookingProviderAssigned, func(b *entity.Booking, now time.Time) (bool, error) {
		if b.Status != entity.BookingStatusPending && b.Status != entity.BookingStatusAccepted {
			return false, fmt.Errorf("accept booking in status %s: %w", b.Status, apperr.ErrInvalidTransition)
		}
		if b.ProviderID != nil {
			if *b.ProviderID == providerID {
				return false, nil
			}
			return false, fmt.Errorf("booking %s already taken by another provider: %w", b.ID, apperr.ErrConflict)
		}

		id := providerID
		b.ProviderID = &id
		b.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		s.log.Warn("Accept rejected",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("provider_id", providerID.String()),
		)
		return nil, fmt.Errorf("accept booking %s: %w", bookingID, err)
	}

	s.log.Info("Booking accepted by provider",
		zap.String("booking_id", bookingID.String()),
		zap.String("provider_id", providerID.String()),
	)
	return booking, nil
}

// Reject cancels a pending booking that is unassigned or assigned to the caller.
func (s *jobService) Reject(ctx context.Context, providerID, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, bookingID, entity.EventBookingCancelled, func(b *entity.Booking, now time.Time) (bool, error) {
		if b.ProviderID != nil && *b.ProviderID != providerID {
			return false, fmt.Errorf("booking %s assigned to another provider: %w", b.ID, apperr.ErrForbidden)
		}
		if !b.Apply(entity.EventProviderReject, now) {
			return false, fmt.Errorf("reject booking in status %s: %w", b.Status, apperr.ErrInvalidTransition)
		}

		id := providerID
		b.CancelledBy = &id
		reason := "rejected by provider"
		b.CancellationReason = &reason
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reject booking %s: %w", bookingID, err)
	}

	s.log.Info("Booking rejected by provider",
		zap.String("booking_id", bookingID.String()),
		zap.String("provider_id", providerID.String()),
	)
	return booking, nil
}

// Advance moves an assigned booking along mark-arriving, start or complete.
func (s *jobService) Advance(ctx context.Context, providerID, bookingID uuid.UUID, ev entity.BookingEvent, reportRefs []string) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, bookingID, entity.EventBookingStatusChanged, func(b *entity.Booking, now time.Time) (bool, error) {
		if !b.AssignedTo(providerID) {
			return false, fmt.Errorf("booking %s not assigned to provider: %w", b.ID, apperr.ErrForbidden)
		}

		if _, ok := b.Status.Next(ev); !ok {
			return false, fmt.Errorf("%s booking in status %s: %w", ev, b.Status, apperr.ErrInvalidTransition)
		}

		if ev == entity.EventComplete {
			refs := append(append([]string(nil), b.ReportRefs...), reportRefs...)
			if len(refs) == 0 {
				return false, fmt.Errorf("complete booking %s: %w", b.ID, apperr.ErrMissingReport)
			}
			b.ReportRefs = refs
		}

		return b.Apply(ev, now), nil
	})
	if err != nil {
		return nil, fmt.Errorf("advance booking %s: %w", bookingID, err)
	}

	s.log.Info("Booking advanced",
		zap.String("booking_id", bookingID.String()),
		zap.String("provider_id", providerID.String()),
		zap.String("status", string(booking.Status)),
	)
	return booking, nil
}
