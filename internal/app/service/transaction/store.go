package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/pkg/types"
)

// Store is the persistence boundary of the orchestrator. Every state
// transition is a conditional update returning whether this caller won the
// transition; that rows-affected check is the authoritative concurrency
// guard, lock or no lock.
type Store interface {
	CreateWithItems(ctx context.Context, tx *models.Transaction, items []*models.TransactionItem) error
	Get(ctx context.Context, transactionID string) (*models.Transaction, error)
	// GetByRef resolves a provider reference: digiflazz_ref_id first, then
	// transaction_id (the ref we submit is our own transaction_id).
	GetByRef(ctx context.Context, ref string) (*models.Transaction, error)
	MarkProcessing(ctx context.Context, transactionID string, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, transactionID string) (bool, error)
	FinishSuccess(ctx context.Context, transactionID string, providerRef *string, raw datatypes.JSON, at time.Time) (bool, error)
	FinishFailed(ctx context.Context, transactionID string, errorMessage string, raw datatypes.JSON, at time.Time) (bool, error)
	// RecordProviderAccepted stores the provider reference and raw payload of
	// an order the provider accepted but has not finalized yet. The row stays
	// in processing.
	RecordProviderAccepted(ctx context.Context, transactionID string, providerRef *string, raw datatypes.JSON) error
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error)
	Scan(ctx context.Context, req *ScanTransactionsRequest) ([]*models.Transaction, int64, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) CreateWithItems(ctx context.Context, tx *models.Transaction, items []*models.TransactionItem) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(tx).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		for _, item := range items {
			item.TransactionID = tx.TransactionID
		}
		if err := db.Create(items).Error; err != nil {
			return fmt.Errorf("failed to create transaction items: %w", err)
		}
		tx.Items = items
		return nil
	})
}

func (s *gormStore) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("transaction_id = ?", transactionID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (s *gormStore) GetByRef(ctx context.Context, ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("digiflazz_ref_id = ?", ref).
		First(&tx).Error
	if err == nil {
		return &tx, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.Get(ctx, ref)
}

func (s *gormStore) MarkProcessing(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, types.TransactionStatusPending).
		Updates(map[string]any{
			"status":       types.TransactionStatusProcessing,
			"processed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) MarkCancelled(ctx context.Context, transactionID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, types.TransactionStatusPending).
		Update("status", types.TransactionStatusCancelled)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) FinishSuccess(ctx context.Context, transactionID string, providerRef *string, raw datatypes.JSON, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       types.TransactionStatusSuccess,
		"completed_at": at,
	}
	if providerRef != nil {
		updates["digiflazz_ref_id"] = *providerRef
	}
	if len(raw) > 0 {
		updates["digiflazz_response"] = raw
	}
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status IN ?", transactionID, openStatuses()).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) FinishFailed(ctx context.Context, transactionID string, errorMessage string, raw datatypes.JSON, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":        types.TransactionStatusFailed,
		"error_message": errorMessage,
		"completed_at":  at,
	}
	if len(raw) > 0 {
		updates["digiflazz_response"] = raw
	}
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status IN ?", transactionID, openStatuses()).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) RecordProviderAccepted(ctx context.Context, transactionID string, providerRef *string, raw datatypes.JSON) error {
	updates := map[string]any{}
	if providerRef != nil {
		updates["digiflazz_ref_id"] = *providerRef
	}
	if len(raw) > 0 {
		updates["digiflazz_response"] = raw
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, types.TransactionStatusProcessing).
		Updates(updates).Error
}

func (s *gormStore) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error) {
	var rows []*models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND processed_at < ?", types.TransactionStatusProcessing, olderThan).
		Order("processed_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	return rows, nil
}

// filtersAnd combines multiple CommonFilter into a single clause expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (s *gormStore) Scan(ctx context.Context, req *ScanTransactionsRequest) ([]*models.Transaction, int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{
			Column: clause.Column{Name: req.SortBy},
			Desc:   req.SortOrder != "asc",
		}}})
	}

	var rows []*models.Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, total, nil
}

func openStatuses() []types.TransactionStatus {
	return []types.TransactionStatus{types.TransactionStatusPending, types.TransactionStatusProcessing}
}
