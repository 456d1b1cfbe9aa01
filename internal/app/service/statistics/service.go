package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/botsmith/billing/internal/models"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Payment ledger
	StatisticTypeDailyPaymentCount StatisticType = "daily_payment_count"
	StatisticTypeDailyRevenue      StatisticType = "daily_revenue"

	// Subscriptions
	StatisticTypeDailyNewSubscriptionCount    StatisticType = "daily_new_subscription_count"
	StatisticTypeTotalActiveSubscriptionCount StatisticType = "total_active_subscription_count"

	// Share of payments that changed the plan rather than renewed it
	StatisticTypeDailyUpgradeShare StatisticType = "daily_upgrade_share"
)

type BillingStatisticFilterType string

const (
	BillingStatisticFilterTypePlanID        BillingStatisticFilterType = "plan_id"
	BillingStatisticFilterTypeActionType    BillingStatisticFilterType = "action_type"
	BillingStatisticFilterTypePaymentSource BillingStatisticFilterType = "payment_source"
)

var filterTypes = []BillingStatisticFilterType{
	BillingStatisticFilterTypePlanID,
	BillingStatisticFilterTypeActionType,
	BillingStatisticFilterTypePaymentSource,
}

var validFilters = map[BillingStatisticFilterType][]StatisticType{
	BillingStatisticFilterTypePlanID:        {StatisticTypeDailyPaymentCount, StatisticTypeDailyRevenue},
	BillingStatisticFilterTypeActionType:    {StatisticTypeDailyPaymentCount},
	BillingStatisticFilterTypePaymentSource: {StatisticTypeDailyPaymentCount},
}

type BillingStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type BillingStatisticRequest struct {
	Filters   []*types.CommonFilter       `json:"filters"`
	DataItems []*BillingStatisticDataItem `json:"data_items"`
}

func (f *BillingStatisticRequest) GetFilters(statisticType StatisticType) *BillingStatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result BillingStatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[BillingStatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause from the applicable filters.
func (f *BillingStatisticRequest) Build(builder clause.Builder) {
	if f == nil || len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type BillingStatisticResponseDataItem struct {
	Date   string `json:"date"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
	Value3 int64  `json:"value3,omitempty"`
}

type BillingStatisticResponse struct {
	DataItems map[StatisticType][]BillingStatisticResponseDataItem `json:"data_items"`
}

type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

func New(cfg *config.Config, db *gorm.DB) *Service { return &Service{cfg: cfg, db: db} }

func (s *Service) getDailyPaymentCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.ProcessedPayment{}).TableName()).
		Select("TO_CHAR(processed_at, 'YYYY-MM-DD') as date, plan_id AS label, count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyPaymentCount)}}).
		Group("TO_CHAR(processed_at, 'YYYY-MM-DD')").
		Group("plan_id").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getDailyRevenue multiplies per-plan payment counts by the catalog price,
// since the ledger does not carry amounts.
func (s *Service) getDailyRevenue(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	counts, err := s.getDailyPaymentCount(ctx, request.GetFilters(StatisticTypeDailyRevenue))
	if err != nil {
		return nil, err
	}
	revenue := make(map[string]*BillingStatisticResponseDataItem)
	var order []string
	for _, row := range counts {
		plan := s.cfg.GetPlanByID(types.PlanID(row.Label))
		if plan == nil || plan.Price == 0 {
			continue
		}
		key := row.Date + "|" + plan.Currency
		item, ok := revenue[key]
		if !ok {
			item = &BillingStatisticResponseDataItem{Date: row.Date, Label: plan.Currency}
			revenue[key] = item
			order = append(order, key)
		}
		item.Value += row.Value * plan.Price
	}
	return lo.Map(order, func(key string, _ int) BillingStatisticResponseDataItem {
		return *revenue[key]
	}), nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, _ *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH distinct_dates AS (
    SELECT DISTINCT DATE(created_at) as date FROM subscription ORDER BY date
),
user_id_date AS (
    SELECT user_id, DATE(created_at) as date FROM subscription
)
SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, COUNT(DISTINCT s.user_id) as value
FROM distinct_dates d
JOIN user_id_date s ON s.date = d.date
GROUP BY d.date
ORDER BY d.date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalActiveSubscriptionCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeTotalActiveSubscriptionCount)}}).
		Where("status = ?", types.SubscriptionStatusActive).
		Where("(lifetime_access = true OR expires_at >= ?)", time.Now().UTC())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyUpgradeShare(ctx context.Context, _ *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	sql := `
WITH daily AS (
  SELECT TO_CHAR(processed_at, 'YYYY-MM-DD') as date,
         COUNT(*) as total,
         COUNT(*) FILTER (WHERE is_upgrade) as upgrades
  FROM processed_payment
  GROUP BY TO_CHAR(processed_at, 'YYYY-MM-DD')
)
SELECT date,
  CASE WHEN total = 0 THEN 0
       ELSE CAST(ROUND(upgrades * 100.0 / total, 2) * 100 AS INTEGER)
  END as value,
  total as value2,
  upgrades as value3
FROM daily
ORDER BY date DESC`
	if err := s.db.WithContext(ctx).Raw(sql).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getBillingStatistic(ctx context.Context, request *BillingStatisticRequest, dataItem *BillingStatisticDataItem) ([]BillingStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyPaymentCount:
		return s.getDailyPaymentCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeTotalActiveSubscriptionCount:
		return s.getTotalActiveSubscriptionCount(ctx, request)
	case StatisticTypeDailyUpgradeShare:
		return s.getDailyUpgradeShare(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

func (s *Service) GetBillingStatistic(ctx context.Context, request *BillingStatisticRequest) (*BillingStatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []BillingStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *BillingStatisticDataItem) {
			defer wg.Done()
			// skip data items the requested filters cannot apply to
			for _, filter := range request.Filters {
				ft := BillingStatisticFilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []BillingStatisticResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getBillingStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []BillingStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]BillingStatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &BillingStatisticResponse{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
