package statistics

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumostore/topup/pkg/types"
)

type StatisticType string

const (
	// Daily counts and GMV over successful transactions
	StatisticTypeDailyTransactionCount StatisticType = "daily_transaction_count"
	StatisticTypeDailyGmv              StatisticType = "daily_gmv"
	StatisticTypeTotalGmv              StatisticType = "total_gmv"
	// Daily count of newly created customers
	StatisticTypeDailyNewCustomerCount StatisticType = "daily_new_customer_count"
)

// Filter fields supported by certain statistic types.
type StatisticFilterType string

const (
	StatisticFilterTypeGameID        StatisticFilterType = "game_id"
	StatisticFilterTypePaymentMethod StatisticFilterType = "payment_method"
)

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypeGameID:        {StatisticTypeDailyTransactionCount, StatisticTypeDailyGmv},
	StatisticFilterTypePaymentMethod: {StatisticTypeDailyTransactionCount, StatisticTypeDailyGmv},
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`
}

// GetFilters keeps only the filters applicable to the given statistic type.
func (f *StatisticRequest) GetFilters(statisticType StatisticType) *StatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result StatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[StatisticFilterType(filter.Field)]; ok {
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
func (f *StatisticRequest) Build(builder clause.Builder) {
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

type StatisticResponseDataItem struct {
	Date  string          `json:"date"`
	Label string          `json:"label,omitempty"`
	Value decimal.Decimal `json:"value"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// Service answers admin statistics queries. GMV only counts transactions
// that reached success; pending and failed rows never contribute.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetStatistics(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	if request == nil || len(request.DataItems) == 0 {
		return nil, fmt.Errorf("no data items requested")
	}

	response := &StatisticResponse{DataItems: map[StatisticType][]StatisticResponseDataItem{}}
	for _, item := range request.DataItems {
		var (
			results []StatisticResponseDataItem
			err     error
		)
		switch item.ID {
		case StatisticTypeDailyTransactionCount:
			results, err = s.getDailyTransactionCount(ctx, request)
		case StatisticTypeDailyGmv:
			results, err = s.getDailyGmv(ctx, request)
		case StatisticTypeTotalGmv:
			results, err = s.getTotalGmv(ctx)
		case StatisticTypeDailyNewCustomerCount:
			results, err = s.getDailyNewCustomerCount(ctx)
		default:
			err = fmt.Errorf("unsupported statistic type: %s", item.ID)
		}
		if err != nil {
			return nil, err
		}
		response.DataItems[item.ID] = results
	}
	return response, nil
}

func (s *Service) getDailyTransactionCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table("transactions").
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("status = ?", types.TransactionStatusSuccess).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyTransactionCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyGmv(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table("transactions").
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, sum(total_amount) as value").
		Where("status = ?", types.TransactionStatusSuccess).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyGmv)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getTotalGmv returns the running GMV total per day, including days with no
// transactions at all.
func (s *Service) getTotalGmv(ctx context.Context) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH min_max_dates AS (
    SELECT MIN(DATE(created_at)) as min_date, MAX(DATE(created_at)) as max_date
    FROM transactions WHERE status = ?
),
dates AS (
    SELECT TO_CHAR(generate_series(min_date, max_date, '1 day'::interval), 'YYYY-MM-DD') as date
    FROM min_max_dates
),
gmv_date AS (
    SELECT d.date, COALESCE(SUM(t.total_amount), 0) as value
    FROM dates d
    LEFT JOIN transactions t
      ON TO_CHAR(t.created_at, 'YYYY-MM-DD') = d.date
     AND t.status = ?
    GROUP BY d.date
)
SELECT d.date as date, SUM(s.value) as value
FROM gmv_date d
LEFT JOIN gmv_date s ON s.date <= d.date
GROUP BY d.date
ORDER BY d.date DESC
`, types.TransactionStatusSuccess, types.TransactionStatusSuccess).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewCustomerCount(ctx context.Context) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table("customers").
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
