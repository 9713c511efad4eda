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

type AddressRepository interface {
	Create(ctx context.Context, address *entity.Address) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Address, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*entity.Address, error)
}

type addressRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAddressRepository(db database.Querier, log *zap.Logger) AddressRepository {
	return &addressRepository{
		db:  db,
		log: log.With(zap.String("repository", "address")),
	}
}

const addressColumns = `id, customer_id, label, line1, line2, city, state, postal_code, created_at`

func scanAddress(row pgx.Row) (*entity.Address, error) {
	var a entity.Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *addressRepository) Create(ctx context.Context, address *entity.Address) error {
	query := `
		INSERT INTO addresses (id, customer_id, label, line1, line2, city, state, postal_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		address.ID,
		address.CustomerID,
		address.Label,
		address.Line1,
		address.Line2,
		address.City,
		address.State,
		address.PostalCode,
		address.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create address",
			zap.Error(err),
			zap.String("customer_id", address.CustomerID.String()),
		)
		return fmt.Errorf("create address: %w", err)
	}

	return nil
}

func (r *addressRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Address, error) {
	address, err := scanAddress(r.db.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find address by ID",
			zap.Error(err),
			zap.String("address_id", id.String()),
		)
		return nil, fmt.Errorf("find address by ID: %w", err)
	}

	return address, nil
}

func (r *addressRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*entity.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		r.log.Error("Failed to list addresses",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*entity.Address
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		addresses = append(addresses, address)
	}

	return addresses, rows.Err()
}
