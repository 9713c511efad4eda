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

type CatalogService interface {
	// Public endpoints
	ListServices(ctx context.Context, req *request.ListServicesRequest) (*response.PaginatedResponse[response.ServiceResponse], error)
	GetService(ctx context.Context, serviceID string) (*response.ServiceResponse, error)

	// Admin endpoints
	CreateService(ctx context.Context, actor utils.Actor, req *request.CreateServiceRequest) (*response.ServiceResponse, error)
	UpdatePricing(ctx context.Context, actor utils.Actor, serviceID string, req *request.UpdatePricingRequest) (*response.ServiceResponse, error)
	// SetStatus hides or restores a service; inactive services cannot be booked.
	SetStatus(ctx context.Context, actor utils.Actor, serviceID string, req *request.UpdateServiceStatusRequest) (*response.ServiceResponse, error)
}

type catalogService struct {
	repo  *repository.Repository
	log   *zap.Logger
	clock clock
}

func NewCatalogService(repo *repository.Repository, log *zap.Logger) CatalogService {
	return &catalogService{
		repo:  repo,
		log:   log.With(zap.String("service", "catalog")),
		clock: time.Now,
	}
}

func (s *catalogService) ListServices(ctx context.Context, req *request.ListServicesRequest) (*response.PaginatedResponse[response.ServiceResponse], error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	services, err := s.repo.Service.FindActive(ctx, req.Category, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	total, err := s.repo.Service.CountActive(ctx, req.Category)
	if err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}

	data := make([]response.ServiceResponse, 0, len(services))
	for _, svc := range services {
		data = append(data, response.ServiceToResponse(svc))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *catalogService) GetService(ctx context.Context, serviceID string) (*response.ServiceResponse, error) {
	id, err := parseID("id", serviceID)
	if err != nil {
		return nil, err
	}

	svc, err := s.repo.Service.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, fmt.Errorf("service %s: %w", id, apperr.ErrNotFound)
	}

	resp := response.ServiceToResponse(svc)
	return &resp, nil
}

func (s *catalogService) CreateService(ctx context.Context, actor utils.Actor, req *request.CreateServiceRequest) (*response.ServiceResponse, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	svc := &entity.Service{
		Base:               entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:               req.Name,
		Description:        req.Description,
		Category:           req.Category,
		BasePrice:          entity.Minor(req.BasePrice),
		DiscountPercentage: req.DiscountPercentage,
		DurationMinutes:    req.DurationMinutes,
		IsActive:           true,
	}
	if _, err := svc.Quote(); err != nil {
		return nil, apperr.FieldErrors{"BasePrice": err.Error()}
	}

	if err := s.repo.Service.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.log.Info("Service created", zap.String("service_id", svc.ID.String()), zap.String("name", svc.Name))
	resp := response.ServiceToResponse(svc)
	return &resp, nil
}

// UpdatePricing changes the catalog price only; bookings keep the amount they were created with.
func (s *catalogService) UpdatePricing(ctx context.Context, actor utils.Actor, serviceID string, req *request.UpdatePricingRequest) (*response.ServiceResponse, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID("id", serviceID)
	if err != nil {
		return nil, err
	}

	svc, err := s.repo.Service.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("service %s: %w", id, apperr.ErrNotFound)
	}

	if req.BasePrice != nil {
		svc.BasePrice = entity.Minor(*req.BasePrice)
	}
	if req.DiscountPercentage != nil {
		svc.DiscountPercentage = *req.DiscountPercentage
	}
	if _, err := svc.Quote(); err != nil {
		return nil, apperr.FieldErrors{"BasePrice": err.Error()}
	}
	svc.UpdatedAt = s.clock()

	if err := s.repo.Service.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service pricing: %w", err)
	}

	s.log.Info("Service pricing updated",
		zap.String("service_id", id.String()),
		zap.Int64("base_price", svc.BasePrice),
		zap.Float64("discount_percentage", svc.DiscountPercentage),
	)
	resp := response.ServiceToResponse(svc)
	return &resp, nil
}

func (s *catalogService) SetStatus(ctx context.Context, actor utils.Actor, serviceID string, req *request.UpdateServiceStatusRequest) (*response.ServiceResponse, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID("id", serviceID)
	if err != nil {
		return nil, err
	}

	svc, err := s.repo.Service.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("service %s: %w", id, apperr.ErrNotFound)
	}

	if svc.IsActive != *req.IsActive {
		svc.IsActive = *req.IsActive
		svc.UpdatedAt = s.clock()
		if err := s.repo.Service.Update(ctx, svc); err != nil {
			return nil, fmt.Errorf("update service status: %w", err)
		}
		s.log.Info("Service status changed",
			zap.String("service_id", id.String()),
			zap.Bool("is_active", svc.IsActive),
		)
	}

	resp := response.ServiceToResponse(svc)
	return &resp, nil
}
