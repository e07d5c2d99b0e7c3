package inventory

import "meddispense/m/domain"

// stockLookup reports the current stock for id and whether the id exists.
type stockLookup func(id string) (int64, bool)

// validateDispense checks an order against the catalog without touching it.
// Every id is checked for existence before any quantity is compared, so a
// missing item is always reported ahead of a short one. Lines that repeat an
// id draw down the same remaining stock, so their sum can never exceed it.
func validateDispense(lookup stockLookup, items []domain.DispenseItem) error {
	for _, item := range items {
		if _, ok := lookup(item.ID); !ok {
			return &NotFoundError{ID: item.ID}
		}
	}

	requested := make(map[string]int64, len(items))
	for _, item := range items {
		stock, _ := lookup(item.ID)
		// Compare against what is left rather than a running sum, which could overflow.
		if item.Quantity > stock-requested[item.ID] {
			return &InsufficientStockError{ID: item.ID}
		}
		requested[item.ID] += item.Quantity
	}
	return nil
}
