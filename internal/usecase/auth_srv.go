package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// AuthService is the identity collaborator: accounts, one-time codes and access tokens.
type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	SendOTP(ctx context.Context, req *request.SendOTPRequest) error
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) error
	// ResetPassword redeems a password_reset code and replaces the password.
	ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error
	Profile(ctx context.Context, actor utils.Actor) (*response.UserResponse, error)
}

type authService struct {
	repo   *repository.Repository
	tokens *utils.TokenIssuer
	otp    utils.OTPConfig
	log    *zap.Logger
	clock  clock
}

func NewAuthService(repo *repository.Repository, tokens *utils.TokenIssuer, otp utils.OTPConfig, log *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		otp:    otp,
		log:    log.With(zap.String("service", "auth")),
		clock:  time.Now,
	}
}

var (
	errBadCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)
	errInvalidCode    = fmt.Errorf("invalid or expired code: %w", apperr.ErrUnauthorized)
)

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	if err := validate(req); err != nil {
		s.log.Warn("Register validation failed", zap.Error(err))
		return nil, err
	}

	role := entity.RoleCustomer
	if req.Role == string(entity.RoleProvider) {
		role = entity.RoleProvider
	}

	// 2. Hash password
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 3. Save user; the unique email index decides races
	now := s.clock()
	user := &entity.User{
		Base:         entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashedPassword,
		Phone:        req.Phone,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	// 4. Issue verification code
	if err := s.issueOTP(ctx, user, entity.OTPPurposeEmailVerification); err != nil {
		s.log.Warn("Failed to issue verification code after register", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	s.log.Info("User registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return s.authResponse(user)
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		s.log.Warn("Login failed", zap.String("email", req.Email))
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account disabled: %w", apperr.ErrForbidden)
	}
	if !user.EmailVerified {
		return nil, fmt.Errorf("please verify your account first: %w", apperr.ErrForbidden)
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.authResponse(user)
}

func (s *authService) SendOTP(ctx context.Context, req *request.SendOTPRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		// do not reveal which emails are registered
		s.log.Info("OTP requested for unknown email")
		return nil
	}

	return s.issueOTP(ctx, user, entity.OTPPurpose(req.Purpose))
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return errInvalidCode
	}

	return s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := s.redeemOTP(ctx, tx, user.ID, entity.OTPPurposeEmailVerification, req.Code); err != nil {
			return err
		}
		return tx.User.MarkEmailVerified(ctx, user.ID)
	})
}

func (s *authService) ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return errInvalidCode
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := s.redeemOTP(ctx, tx, user.ID, entity.OTPPurposePasswordReset, req.Code); err != nil {
			return err
		}
		return tx.User.UpdatePassword(ctx, user.ID, hashedPassword)
	})
	if err != nil {
		return err
	}

	s.log.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// redeemOTP consumes the latest code for purpose; a code can be redeemed once.
func (s *authService) redeemOTP(ctx context.Context, tx *repository.Repository, userID uuid.UUID, purpose entity.OTPPurpose, code string) error {
	cred, err := tx.OTP.FindLatest(ctx, userID, purpose)
	if err != nil {
		return err
	}
	if cred == nil || !cred.Redeemable(code, s.clock()) {
		s.log.Warn("OTP verification failed",
			zap.String("user_id", userID.String()),
			zap.String("purpose", string(purpose)),
		)
		return errInvalidCode
	}
	if err := tx.OTP.MarkUsed(ctx, cred.ID); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return errInvalidCode
		}
		return err
	}
	return nil
}

func (s *authService) Profile(ctx context.Context, actor utils.Actor) (*response.UserResponse, error) {
	user, err := s.repo.User.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", actor.UserID, apperr.ErrNotFound)
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

// issueOTP stores a hashed code. The plain code is logged only when OTP.LogCode is set.
func (s *authService) issueOTP(ctx context.Context, user *entity.User, purpose entity.OTPPurpose) error {
	code, err := utils.GenerateOTP(s.otp.Length)
	if err != nil {
		return fmt.Errorf("generate OTP: %w", err)
	}

	ttl := time.Duration(s.otp.ExpiryMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cred, err := entity.NewOTPCredential(user.ID, purpose, code, s.clock(), ttl)
	if err != nil {
		return fmt.Errorf("hash OTP: %w", err)
	}
	if err := s.repo.OTP.Create(ctx, cred); err != nil {
		return fmt.Errorf("store OTP: %w", err)
	}

	fields := []zap.Field{
		zap.String("user_id", user.ID.String()),
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", cred.ExpiresAt),
	}
	if s.otp.LogCode {
		// local development only; there is no delivery channel
		fields = append(fields, zap.String("code", code))
	}
	s.log.Info("OTP issued", fields...)
	return nil
}

func (s *authService) authResponse(user *entity.User) (*response.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		s.log.Error("Failed to issue token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &response.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      response.UserToResponse(user),
	}, nil
}
