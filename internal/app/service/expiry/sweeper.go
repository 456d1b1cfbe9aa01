package expiry

import (
	"context"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/metrics"
	"github.com/botsmith/billing/pkg/tool"
	"github.com/botsmith/billing/pkg/types"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sweeper periodically flips overdue subscriptions to expired. Expiry is
// also evaluated lazily on read, so the sweep only keeps the stored status
// and the user mirror honest for direct DB consumers.
type Sweeper struct {
	cfg  *config.Config
	db   *gorm.DB
	log  *zap.SugaredLogger
	cron *cron.Cron
}

func NewSweeper(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		cfg:  cfg,
		db:   db,
		log:  log,
		cron: cron.New(cron.WithLocation(time.UTC)),
	}
}

// Sweep runs one pass and returns the number of subscriptions expired.
// Every flipped row gets a before/after change-log entry, same as any other
// subscription mutation.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var overdue []*models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", types.SubscriptionStatusActive).
			Where("lifetime_access = false").
			Where("expires_at IS NOT NULL AND expires_at < ?", now).
			Find(&overdue).Error; err != nil {
			return err
		}
		if len(overdue) == 0 {
			return nil
		}
		ids := lo.Map(overdue, func(sub *models.Subscription, _ int) string { return sub.ID })
		return tx.Model(&models.Subscription{}).
			Where("id IN ?", ids).
			Update("status", types.SubscriptionStatusExpired).Error
	})
	if err != nil {
		return 0, err
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	for _, entry := range expireLogs(overdue) {
		if err := s.db.WithContext(ctx).Save(entry).Error; err != nil {
			s.log.Errorw("failed to save sweep log", "user_id", entry.UserID, "error", err.Error())
		}
	}

	expired := int64(len(overdue))
	metrics.SubscriptionsExpiredTotal.Add(float64(expired))
	s.log.Infow("expiry sweep done", "expired", expired)
	return expired, nil
}

// expireLogs builds one change-log entry per swept row.
func expireLogs(overdue []*models.Subscription) []*models.SubscriptionLog {
	logs := make([]*models.SubscriptionLog, 0, len(overdue))
	for _, before := range overdue {
		after := *before
		after.Status = types.SubscriptionStatusExpired
		logs = append(logs, &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: before.UserID,
			Reason: types.SubscriptionChangeReasonExpireSweep,
			Before: datatypes.NewJSONType(before),
			After:  datatypes.NewJSONType(&after),
			Extra:  datatypes.JSONMap{},
		})
	}
	return logs
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
		s.log.Errorw("expiry sweep failed", "error", err.Error())
	}
}

func registerSweeper(lc fx.Lifecycle, s *Sweeper) error {
	if _, err := s.cron.AddFunc(s.cfg.ExpirySweepSpec, s.run); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			s.log.Infow("expiry sweeper started", "spec", s.cfg.ExpirySweepSpec)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := s.cron.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

var Module = fx.Options(
	fx.Provide(NewSweeper),
	fx.Invoke(registerSweeper),
)
