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

type ServiceRepository interface {
	Create(ctx context.Context, service *entity.Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	FindActive(ctx context.Context, category string, limit, offset int) ([]*entity.Service, error)
	CountActive(ctx context.Context, category string) (int64, error)
	Update(ctx context.Context, service *entity.Service) error
}

type serviceRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewServiceRepository(db database.Querier, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

const serviceColumns = `id, name, description, category, base_price, discount_percentage, duration_minutes,
	is_active, created_at, updated_at, deleted_at`

func scanService(row pgx.Row) (*entity.Service, error) {
	var s entity.Service
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Category,
		&s.BasePrice,
		&s.DiscountPercentage,
		&s.DurationMinutes,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *serviceRepository) Create(ctx context.Context, service *entity.Service) error {
	query := `
		INSERT INTO services (id, name, description, category, base_price, discount_percentage,
		                      duration_minutes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		service.ID,
		service.Name,
		service.Description,
		service.Category,
		service.BasePrice,
		service.DiscountPercentage,
		service.DurationMinutes,
		service.IsActive,
		service.CreatedAt,
		service.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create service",
			zap.Error(err),
			zap.String("name", service.Name),
		)
		return fmt.Errorf("create service: %w", mapPgError(err))
	}

	return nil
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND deleted_at IS NULL`

	service, err := scanService(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service by ID: %w", err)
	}

	return service, nil
}

func (r *serviceRepository) FindActive(ctx context.Context, category string, limit, offset int) ([]*entity.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE is_active = TRUE AND deleted_at IS NULL AND ($1 = '' OR category = $1)
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, category, limit, offset)
	if err != nil {
		r.log.Error("Failed to list services", zap.Error(err))
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []*entity.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			r.log.Error("Failed to scan service row", zap.Error(err))
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		services = append(services, service)
	}

	return services, rows.Err()
}

func (r *serviceRepository) CountActive(ctx context.Context, category string) (int64, error) {
	query := `SELECT COUNT(*) FROM services WHERE is_active = TRUE AND deleted_at IS NULL AND ($1 = '' OR category = $1)`

	var count int64
	if err := r.db.QueryRow(ctx, query, category).Scan(&count); err != nil {
		r.log.Error("Failed to count services", zap.Error(err))
		return 0, fmt.Errorf("count services: %w", err)
	}

	return count, nil
}

func (r *serviceRepository) Update(ctx context.Context, service *entity.Service) error {
	query := `
		UPDATE services
		SET name = $2, description = $3, category = $4, base_price = $5, discount_percentage = $6,
		    duration_minutes = $7, is_active = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		service.ID,
		service.Name,
		service.Description,
		service.Category,
		service.BasePrice,
		service.DiscountPercentage,
		service.DurationMinutes,
		service.IsActive,
		service.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update service",
			zap.Error(err),
			zap.String("service_id", service.ID.String()),
		)
		return fmt.Errorf("update service: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("service %s not found", service.ID)
	}

	return nil
}
