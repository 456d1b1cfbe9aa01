package subscription

import (
	"fmt"

	"github.com/botsmith/billing/pkg/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

var (
	ErrSubscriptionNotFound = fmt.Errorf("subscription not found")
	// ErrLifetimeAccess rejects period mutations on lifetime subscriptions.
	ErrLifetimeAccess = fmt.Errorf("user has lifetime access")
)
