package apilog

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumostore/topup/internal/models"
)

// Service is the append-only ledger of external call attempts. Rows are
// never updated or deleted; they back reconciliation audits and the
// dispatch idempotency check.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Append persists one call attempt. It is synchronous: the orchestrator
// must not proceed past a gateway attempt that left no trace.
func (s *Service) Append(ctx context.Context, entry *models.ApiLog) error {
	if entry == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Errorw("failed to append api log", "transaction_id", entry.TransactionID, "err", err)
		return err
	}
	return nil
}

// LastDefinitive returns the most recent entry for the transaction and
// request hash whose outcome is terminal (success or failed), or nil.
func (s *Service) LastDefinitive(ctx context.Context, transactionID, requestHash string) (*models.ApiLog, error) {
	var entry models.ApiLog
	err := s.db.WithContext(ctx).
		Where("transaction_id = ? AND request_hash = ? AND outcome IN ?",
			transactionID, requestHash,
			[]string{models.ApiLogOutcomeSuccess, models.ApiLogOutcomeFailed}).
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// HasAttempt reports whether any attempt for the transaction and request
// hash ever reached the provider.
func (s *Service) HasAttempt(ctx context.Context, transactionID, requestHash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ApiLog{}).
		Where("transaction_id = ? AND request_hash = ?", transactionID, requestHash).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByTransaction returns the full call trail of a transaction in
// chronological order, for diagnostics and reconciliation.
func (s *Service) ListByTransaction(ctx context.Context, transactionID string) ([]*models.ApiLog, error) {
	var entries []*models.ApiLog
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
