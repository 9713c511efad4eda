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

type BookingService interface {
	// Customer endpoints
	CreateBooking(ctx context.Context, actor utils.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, actor utils.Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error)
	CreateAddress(ctx context.Context, actor utils.Actor, req *request.CreateAddressRequest) (*response.AddressResponse, error)
	ListAddresses(ctx context.Context, actor utils.Actor) ([]response.AddressResponse, error)

	// Any role, scoped by who is asking
	GetBooking(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)
	ListBookings(ctx context.Context, actor utils.Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo  *repository.Repository
	log   *zap.Logger
	clock clock
}

func NewBookingService(repo *repository.Repository, log *zap.Logger) BookingService {
	return &bookingService{
		repo:  repo,
		log:   log.With(zap.String("service", "booking")),
		clock: time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *bookingService) CreateBooking(ctx context.Context, actor utils.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := requireRole(actor, entity.RoleCustomer); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}

	serviceID, err := parseID("service_id", req.ServiceID)
	if err != nil {
		return nil, err
	}
	addressID, err := parseID("address_id", req.AddressID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	scheduledDate, _ := time.Parse("2006-01-02", req.ScheduledDate)
	if scheduledDate.Before(startOfDay(now)) {
		return nil, apperr.FieldErrors{"ScheduledDate": "Must not be in the past"}
	}

	service, err := s.repo.Service.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if service == nil || !service.IsActive {
		return nil, fmt.Errorf("service %s: %w", serviceID, apperr.ErrNotFound)
	}

	address, err := s.repo.Address.FindByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}
	if address == nil {
		return nil, fmt.Errorf("address %s: %w", addressID, apperr.ErrNotFound)
	}
	if address.CustomerID != actor.UserID {
		return nil, fmt.Errorf("address %s belongs to another customer: %w", addressID, apperr.ErrForbidden)
	}

	// priced once here; the amount never follows later catalog changes
	amount, err := service.Quote()
	if err != nil {
		s.log.Error("Service has invalid pricing", zap.Error(err), zap.String("service_id", serviceID.String()))
		return nil, fmt.Errorf("price service %s: %w", serviceID, err)
	}

	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID:    actor.UserID,
		ServiceID:     serviceID,
		AddressID:     addressID,
		Status:        entity.BookingStatusPending,
		ScheduledDate: scheduledDate,
		ScheduledTime: req.ScheduledTime,
		Amount:        amount,
		Notes:         req.Notes,
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Booking.Create(ctx, booking); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "booking", booking.ID.String(), entity.EventBookingCreated,
			newBookingEvent(booking, "", now), now)
	})
	if err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("customer_id", actor.UserID.String()),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", actor.UserID.String()),
		zap.Int64("final_amount", booking.Amount.FinalAmount),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// canView: customers see their own bookings, providers their jobs plus unclaimed open ones, admins everything.
func canView(actor utils.Actor, b *entity.Booking) bool {
	switch entity.UserRole(actor.Role) {
	case entity.RoleAdmin:
		return true
	case entity.RoleCustomer:
		return b.CustomerID == actor.UserID
	case entity.RoleProvider:
		if b.AssignedTo(actor.UserID) {
			return true
		}
		return b.ProviderID == nil &&
			(b.Status == entity.BookingStatusPending || b.Status == entity.BookingStatusAccepted)
	}
	return false
}

func (s *bookingService) GetBooking(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	if !canView(actor, booking) {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrForbidden)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor utils.Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var filter repository.BookingFilter
	switch entity.UserRole(actor.Role) {
	case entity.RoleCustomer:
		filter.CustomerID = &actor.UserID
	case entity.RoleProvider:
		filter.ProviderID = &actor.UserID
		filter.IncludeOpen = true
	case entity.RoleAdmin:
	default:
		return nil, fmt.Errorf("role %q: %w", actor.Role, apperr.ErrForbidden)
	}
	if req.Status != "" {
		status := entity.BookingStatus(req.Status)
		filter.Status = &status
	}

	bookings, err := s.repo.Booking.List(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	total, err := s.repo.Booking.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor utils.Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error) {
	if err := requireRole(actor, entity.RoleCustomer); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	var cancelled *entity.Booking
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		booking, err := tx.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
		}
		if booking.CustomerID != actor.UserID {
			return fmt.Errorf("booking %s belongs to another customer: %w", id, apperr.ErrForbidden)
		}

		switch booking.Status {
		case entity.BookingStatusPending:
		case entity.BookingStatusAccepted:
			// a verified payment got there first
			return fmt.Errorf("booking %s already accepted: %w", id, apperr.ErrConflict)
		default:
			return fmt.Errorf("cancel booking in status %s: %w", booking.Status, apperr.ErrInvalidTransition)
		}

		now := s.clock()
		from := booking.Status
		booking.Apply(entity.EventCustomerCancel, now)
		booking.CancelledBy = &actor.UserID
		booking.CancellationReason = req.Reason

		if err := tx.Booking.Update(ctx, booking); err != nil {
			return err
		}
		cancelled = booking
		return recordEvent(ctx, tx, "booking", booking.ID.String(), entity.EventBookingCancelled,
			newBookingEvent(booking, from, now), now)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", id, err)
	}

	s.log.Info("Booking cancelled by customer",
		zap.String("booking_id", id.String()),
		zap.String("customer_id", actor.UserID.String()),
	)

	resp := response.BookingToResponse(cancelled)
	return &resp, nil
}

func (s *bookingService) CreateAddress(ctx context.Context, actor utils.Actor, req *request.CreateAddressRequest) (*response.AddressResponse, error) {
	if err := requireRole(actor, entity.RoleCustomer); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	address := &entity.Address{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: s.clock()},
		CustomerID: actor.UserID,
		Label:      req.Label,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	}
	if err := s.repo.Address.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	resp := response.AddressToResponse(address)
	return &resp, nil
}

func (s *bookingService) ListAddresses(ctx context.Context, actor utils.Actor) ([]response.AddressResponse, error) {
	if err := requireRole(actor, entity.RoleCustomer); err != nil {
		return nil, err
	}

	addresses, err := s.repo.Address.FindByCustomerID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	data := make([]response.AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		data = append(data, response.AddressToResponse(a))
	}
	return data, nil
}
