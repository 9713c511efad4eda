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

type UserRepository interface {
	// Create fails with ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type userRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewUserRepository(db database.Querier, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

const userColumns = `id, name, email, password, phone, role, email_verified, is_active, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.Role,
		&u.EmailVerified,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, password, phone, role,
		                  email_verified, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := ur.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Role,
		user.EmailVerified,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		err = mapPgError(err)
		if !errors.Is(err, ErrDuplicate) {
			ur.log.Error("Failed to create user",
				zap.Error(err),
				zap.String("email", user.Email),
			)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(ur.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, fmt.Errorf("find user by ID: %w", err)
	}

	return user, nil
}

func (ur *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`

	user, err := scanUser(ur.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by email", zap.Error(err))
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	return user, nil
}

func (ur *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := ur.db.Exec(ctx, query, id)
	if err != nil {
		ur.log.Error("Failed to mark email verified",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("mark email verified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id)
	}

	return nil
}

func (ur *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := ur.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		ur.log.Error("Failed to update password",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("update password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id)
	}

	return nil
}
