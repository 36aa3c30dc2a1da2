// Package quota admits or denies AI analyses against a user's credit allotment.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
)

// Store reads and increments quota rows
type Store interface {
	GetQuota(ctx context.Context, userID string) (*domain.Quota, error)
	IncrementUsedCredits(ctx context.Context, userID string) error
}

// Guard checks and consumes AI credits.
//
// Admit and Consume are not atomic with each other: two concurrent analyses for
// the same user can both be admitted with one credit left.
type Guard struct {
	store Store
}

// NewGuard creates a new Guard
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Admit returns nil when the user has at least one unused credit.
func (g *Guard) Admit(ctx context.Context, userID string) error {
	q, err := g.store.GetQuota(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaNotFound) {
			return domain.NewError(domain.KindQuotaExhausted, "No AI credits available", err)
		}
		return domain.NewError(domain.KindPersistenceError, "Failed to read quota", err)
	}

	if q.UsedCredits >= q.AICredits {
		return domain.NewError(domain.KindQuotaExhausted,
			fmt.Sprintf("AI credit limit reached (%d/%d used)", q.UsedCredits, q.AICredits), nil)
	}
	return nil
}

// Consume records one used credit
func (g *Guard) Consume(ctx context.Context, userID string) error {
	if err := g.store.IncrementUsedCredits(ctx, userID); err != nil {
		return fmt.Errorf("consume credit for user %s: %w", userID, err)
	}
	return nil
}
