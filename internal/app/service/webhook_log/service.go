package webhook_log

import (
	"context"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/logctx"
	"github.com/botsmith/billing/pkg/tool"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a payment webhook log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.PaymentWebhookLog) {
	go func() {
		if log == nil {
			return
		}
		if log.ID == "" {
			log.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook log: %v", err)
		}
	}()
}

var Module = fx.Options(
	fx.Provide(New),
)
