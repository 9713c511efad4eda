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

type OTPRepository interface {
	Create(ctx context.Context, otp *entity.OTPCredential) error
	// FindLatest returns the most recently issued credential for the purpose, used or not.
	FindLatest(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*entity.OTPCredential, error)
	// MarkUsed consumes the credential; consuming it twice fails with ErrStaleVersion.
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

type otpRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewOTPRepository(db database.Querier, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

func (r *otpRepository) Create(ctx context.Context, otp *entity.OTPCredential) error {
	query := `
		INSERT INTO otp_credentials (id, user_id, purpose, code_hash, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		otp.ID,
		otp.UserID,
		otp.Purpose,
		otp.CodeHash,
		otp.ExpiresAt,
		otp.UsedAt,
		otp.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create OTP",
			zap.Error(err),
			zap.String("user_id", otp.UserID.String()),
		)
		return fmt.Errorf("create OTP: %w", err)
	}

	return nil
}

func (r *otpRepository) FindLatest(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*entity.OTPCredential, error) {
	query := `
		SELECT id, user_id, purpose, code_hash, expires_at, used_at, created_at
		FROM otp_credentials
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp entity.OTPCredential
	err := r.db.QueryRow(ctx, query, userID, purpose).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Purpose,
		&otp.CodeHash,
		&otp.ExpiresAt,
		&otp.UsedAt,
		&otp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find OTP",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find OTP: %w", err)
	}

	return &otp, nil
}

func (r *otpRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `UPDATE otp_credentials SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		r.log.Error("Failed to mark OTP as used",
			zap.Error(err),
			zap.String("otp_id", id.String()),
		)
		return fmt.Errorf("mark OTP as used: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("OTP %s already used: %w", id, ErrStaleVersion)
	}

	return nil
}
