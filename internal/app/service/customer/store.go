package customer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumostore/topup/internal/models"
)

// Store abstracts customer persistence. Lookups return (nil, nil) when no
// row matches.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) error
	ApplySuccess(ctx context.Context, id uint, amount decimal.Decimal, at time.Time) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return s.findBy(ctx, "email = ?", email)
}

func (s *gormStore) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	return s.findBy(ctx, "phone = ?", phone)
}

func (s *gormStore) findBy(ctx context.Context, query string, arg string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).Where(query, arg).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *gormStore) Create(ctx context.Context, c *models.Customer) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// ApplySuccess increments the spend counters atomically in SQL so concurrent
// successes on the same customer never lose an update.
func (s *gormStore) ApplySuccess(ctx context.Context, id uint, amount decimal.Decimal, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_spent":         gorm.Expr("total_spent + ?", amount),
			"total_transactions":  gorm.Expr("total_transactions + 1"),
			"last_transaction_at": at,
		}).Error
}
