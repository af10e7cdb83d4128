package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Querier is the source of truth for category membership. Implementations
// resolve variant identities through their parent product.
type Querier interface {
	IsInCategory(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, categoryID uuid.UUID) (bool, error)
}

// Resolver answers category-membership lookups, memoising answers in Redis.
// Cache failures fall back to the querier; querier failures propagate so the
// matcher never mistakes an outage for a non-membership.
type Resolver struct {
	Q     Querier
	Cache *Cache
}

// IsInCategory implements the matcher's CategoryResolver contract.
func (r *Resolver) IsInCategory(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, categoryID uuid.UUID) (bool, error) {
	if r == nil || r.Q == nil {
		return false, errors.New("catalog: resolver not configured")
	}
	key := membershipKey(productID, variantID, categoryID)
	var cached bool
	if ok, err := r.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	in, err := r.Q.IsInCategory(ctx, productID, variantID, categoryID)
	if err != nil {
		return false, fmt.Errorf("catalog: category membership: %w", err)
	}
	_ = r.Cache.SetJSON(ctx, key, in)
	return in, nil
}

func membershipKey(productID uuid.UUID, variantID *uuid.UUID, categoryID uuid.UUID) string {
	variant := ""
	if variantID != nil {
		variant = variantID.String()
	}
	return fmt.Sprintf("catmember:%s:%s:%s", productID, variant, categoryID)
}
