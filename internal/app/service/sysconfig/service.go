package sysconfig

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumostore/topup/internal/models"
)

// ErrNotFound is returned for an unknown config key.
var ErrNotFound = errors.New("config key not found")

const redactedValue = "********"

// Service is the operator-maintained key/value store behind the admin
// surface. Secret values are redacted on every read path.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

func (s *Service) Get(ctx context.Context, key string) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	redact(&cfg)
	return &cfg, nil
}

// Set upserts a config entry on its key.
func (s *Service) Set(ctx context.Context, key, value string, description *string, isSecret bool) error {
	entry := &models.SystemConfig{
		Key:         key,
		Value:       value,
		Description: description,
		IsSecret:    isSecret,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "is_secret", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return err
	}
	s.log.Infow("system config updated", "key", key, "secret", isSecret)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*models.SystemConfig, error) {
	var entries []*models.SystemConfig
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		redact(e)
	}
	return entries, nil
}

func redact(cfg *models.SystemConfig) {
	if cfg.IsSecret {
		cfg.Value = redactedValue
	}
}
