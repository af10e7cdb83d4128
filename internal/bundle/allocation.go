package bundle

import "github.com/google/uuid"

// LineItem is the read-only view of an order line the engine matches against.
// ProductID is the canonical product identity; VariantID is set when the line
// references a specific variant of that product.
type LineItem struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	UnitPrice Money
}

// AllocationUnit is a working, mutable copy of a line item used only within
// one match attempt. Remaining decreases as rules consume the unit; the unit
// leaves the working sequence once Remaining hits zero.
type AllocationUnit struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Remaining int
	UnitPrice Money
}

// newAllocation clones line items into a fresh working sequence. Lines with
// no quantity are skipped so rules never scan them.
func newAllocation(items []LineItem) []*AllocationUnit {
	units := make([]*AllocationUnit, 0, len(items))
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		units = append(units, &AllocationUnit{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Remaining: it.Qty,
			UnitPrice: it.UnitPrice,
		})
	}
	return units
}

// residualItems converts the working sequence back into line items for the
// caller to adopt as the post-match order state.
func residualItems(units []*AllocationUnit) []LineItem {
	items := make([]LineItem, 0, len(units))
	for _, u := range units {
		if u.Remaining <= 0 {
			continue
		}
		items = append(items, LineItem{
			ProductID: u.ProductID,
			VariantID: u.VariantID,
			Qty:       u.Remaining,
			UnitPrice: u.UnitPrice,
		})
	}
	return items
}

// TotalQuantity sums the quantities across line items.
func TotalQuantity(items []LineItem) int {
	total := 0
	for _, it := range items {
		if it.Qty > 0 {
			total += it.Qty
		}
	}
	return total
}
