package payment

import (
	"context"

	subsvc "github.com/botsmith/billing/internal/app/service/subscription"
	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// txStore is the slice of storage Process uses inside its transaction,
// factored out so the flow can be exercised without a database.
type txStore interface {
	CurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	// AppendLedger inserts the idempotency row. A duplicate (payment_id,
	// user_id) must surface as gorm.ErrDuplicatedKey.
	AppendLedger(ctx context.Context, row *models.ProcessedPayment) error
	ApplySubscription(ctx context.Context, next *models.Subscription, extra datatypes.JSONMap) (*models.Subscription, error)
	// CacheResult stores the applied state on the ledger row so a
	// redelivery can be answered without recomputing.
	CacheResult(ctx context.Context, ledgerID string, applied *models.Subscription) error
}

type gormTxStore struct {
	tx     *gorm.DB
	subSvc *subsvc.Service
}

func (g *gormTxStore) CurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	return g.subSvc.GetWithTx(ctx, g.tx, userID)
}

func (g *gormTxStore) AppendLedger(ctx context.Context, row *models.ProcessedPayment) error {
	return g.tx.WithContext(ctx).Create(row).Error
}

func (g *gormTxStore) ApplySubscription(ctx context.Context, next *models.Subscription, extra datatypes.JSONMap) (*models.Subscription, error) {
	return g.subSvc.Apply(ctx, g.tx, next, types.SubscriptionChangeReasonPayment, extra)
}

func (g *gormTxStore) CacheResult(ctx context.Context, ledgerID string, applied *models.Subscription) error {
	return g.tx.WithContext(ctx).Model(&models.ProcessedPayment{}).
		Where("id = ?", ledgerID).
		Update("result", datatypes.NewJSONType(applied)).Error
}
