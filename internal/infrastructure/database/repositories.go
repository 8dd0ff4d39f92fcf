package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verbatone/billing/internal/adapter/repository"
	domainRepo "github.com/verbatone/billing/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription   domainRepo.SubscriptionRepository
	PaymentHistory domainRepo.PaymentHistoryRepository
	User           domainRepo.UserRepository
	Webhook        domainRepo.WebhookRepository
	Stats          domainRepo.StatsRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription:   repository.NewSubscriptionRepository(db, logger),
		PaymentHistory: repository.NewPaymentHistoryRepository(db, logger),
		User:           repository.NewUserRepository(db, logger),
		Webhook:        repository.NewWebhookRepository(db, logger),
		Stats:          repository.NewStatsRepository(db, logger),
	}
}
