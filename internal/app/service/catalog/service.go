package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumostore/topup/internal/models"
)

// ErrNotFound is returned for unknown or inactive catalog entries.
var ErrNotFound = errors.New("catalog entry not found")

const snapshotTTL = 30 * time.Second

// Service exposes read access to games, products and payment methods.
// The transaction core never writes to catalog records.
type Service struct {
	db    *gorm.DB
	log   *zap.SugaredLogger
	cache *snapshotCache
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, cache: newSnapshotCache(snapshotTTL)}
}

func (s *Service) ListGames(ctx context.Context) ([]*models.Game, error) {
	var games []*models.Game
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *Service) GetGameBySlug(ctx context.Context, slug string) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game %q", ErrNotFound, slug)
		}
		return nil, err
	}
	return &game, nil
}

func (s *Service) ListProducts(ctx context.Context, gameID uint) ([]*models.Product, error) {
	var products []*models.Product
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND is_active = ?", gameID, true).
		Order("sort_order ASC, price ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]*models.PaymentMethod, error) {
	var methods []*models.PaymentMethod
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&methods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

func (s *Service) GetPaymentMethod(ctx context.Context, slug string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment method %q", ErrNotFound, slug)
		}
		return nil, err
	}
	return &method, nil
}

// Refresh drops the cached snapshot of a game so the next pricing read sees
// catalog edits immediately instead of after the TTL.
func (s *Service) Refresh(gameID uint) {
	s.cache.invalidate(gameID)
	s.log.Infow("catalog snapshot invalidated", "game_id", gameID)
}

// Snapshot returns the purchasable view of a game for pricing, served from
// the TTL cache when fresh enough.
func (s *Service) Snapshot(ctx context.Context, gameID uint) (*Snapshot, error) {
	if snap := s.cache.get(gameID); snap != nil {
		return snap, nil
	}

	var game models.Game
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", gameID, true).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game %d", ErrNotFound, gameID)
		}
		return nil, err
	}

	var products []*models.Product
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products for snapshot: %w", err)
	}

	snap := &Snapshot{
		GameID:   gameID,
		LoadedAt: time.Now(),
		Products: make(map[uint]*models.Product, len(products)),
	}
	for _, p := range products {
		snap.Products[p.ID] = p
	}
	s.cache.put(snap)
	return snap, nil
}
