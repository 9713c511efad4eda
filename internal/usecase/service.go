package usecase

import (
	"time"

	"service-booking/internal/data/repository"
	"service-booking/pkg/gateway"
	"service-booking/pkg/lock"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth    AuthService
	Catalog CatalogService
	Booking BookingService
	Payment PaymentService
	Job     JobService
}

// Deps are the collaborators the core calls out to.
type Deps struct {
	Gateway gateway.Gateway
	Locker  lock.Locker
	Tokens  *utils.TokenIssuer
}

func NewService(repo *repository.Repository, config *utils.Config, deps Deps, log *zap.Logger) *Service {
	return &Service{
		Auth:    NewAuthService(repo, deps.Tokens, config.OTP, log),
		Catalog: NewCatalogService(repo, log),
		Booking: NewBookingService(repo, log),
		Payment: NewPaymentService(repo, deps.Gateway, deps.Locker, config.Gateway, config.Lock, log),
		Job:     NewJobService(repo, log),
	}
}

type clock func() time.Time
