package entity

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "email_verification"
	OTPPurposePasswordReset     OTPPurpose = "password_reset"
)

// OTPCredential is a short-lived, single-use code owned by the identity layer.
type OTPCredential struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	Purpose   OTPPurpose `db:"purpose"`
	CodeHash  string     `db:"code_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
}

// NewOTPCredential hashes code and stamps an expiry ttl from now.
func NewOTPCredential(userID uuid.UUID, purpose OTPPurpose, code string, now time.Time, ttl time.Duration) (*OTPCredential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &OTPCredential{
		BaseSimple: BaseSimple{ID: uuid.New(), CreatedAt: now},
		UserID:     userID,
		Purpose:    purpose,
		CodeHash:   string(hash),
		ExpiresAt:  now.Add(ttl),
	}, nil
}

func (c *OTPCredential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Redeemable reports whether code matches an unused, unexpired credential.
func (c *OTPCredential) Redeemable(code string, now time.Time) bool {
	if c.UsedAt != nil || c.Expired(now) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil
}
