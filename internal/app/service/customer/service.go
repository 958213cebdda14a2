package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumostore/topup/internal/models"
)

var (
	// ErrAmbiguousIdentity is returned when email and phone each match a
	// different existing customer. Merge policy is deliberately not guessed;
	// the caller or an operator has to resolve the collision.
	ErrAmbiguousIdentity = errors.New("email and phone match different customers")

	// ErrIdentityRequired is returned when neither email nor phone is given.
	ErrIdentityRequired = errors.New("email or phone is required")
)

// Service resolves customer identities and applies spend statistics.
type Service struct {
	store Store
	log   *zap.SugaredLogger
}

func NewService(store Store, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log}
}

// Resolve matches an existing customer by email first, then phone, and
// lazily creates an unregistered customer when neither matches.
func (s *Service) Resolve(ctx context.Context, email, phone, name string) (*models.Customer, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)

	if email == "" && phone == "" {
		return nil, ErrIdentityRequired
	}

	var byEmail, byPhone *models.Customer
	var err error
	if email != "" {
		if byEmail, err = s.store.FindByEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("failed to look up customer by email: %w", err)
		}
	}
	if phone != "" {
		if byPhone, err = s.store.FindByPhone(ctx, phone); err != nil {
			return nil, fmt.Errorf("failed to look up customer by phone: %w", err)
		}
	}

	if byEmail != nil && byPhone != nil && byEmail.ID != byPhone.ID {
		return nil, fmt.Errorf("%w: email -> %d, phone -> %d", ErrAmbiguousIdentity, byEmail.ID, byPhone.ID)
	}
	if byEmail != nil {
		return byEmail, nil
	}
	if byPhone != nil {
		return byPhone, nil
	}

	c := &models.Customer{
		TotalSpent: decimal.Zero,
	}
	if email != "" {
		c.Email = lo.ToPtr(email)
	}
	if phone != "" {
		c.Phone = lo.ToPtr(phone)
	}
	if name != "" {
		c.Name = lo.ToPtr(name)
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.log.Infow("customer created", "customer_id", c.ID, "registered", c.IsRegistered)
	return c, nil
}

// ApplySuccess adds a completed transaction to the customer's statistics.
// The caller guards exactly-once semantics via the transaction status
// transition; this method itself is a plain atomic increment.
func (s *Service) ApplySuccess(ctx context.Context, customerID uint, amount decimal.Decimal, at time.Time) error {
	return s.store.ApplySuccess(ctx, customerID, amount, at)
}
