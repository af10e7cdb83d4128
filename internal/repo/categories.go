package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Categories answers category-membership lookups from the purchasable
// relation table. A variant line is a member when either the variant itself
// or its parent product is related to the category.
type Categories struct {
	DB DB
}

// IsInCategory implements the catalog querier contract.
func (r Categories) IsInCategory(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, categoryID uuid.UUID) (bool, error) {
	var variant pgtype.UUID
	if variantID != nil {
		variant = uuidToPg(*variantID)
	}
	var member bool
	err := r.DB.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM purchasable_categories
	WHERE category_id = $1
	  AND (purchasable_id = $2 OR purchasable_id = $3)
)`, uuidToPg(categoryID), uuidToPg(productID), variant).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("repo: category membership: %w", err)
	}
	return member, nil
}
