package salesreport

import "sort"

// tally is a SKU -> quantity map that remembers the order in which SKUs were first seen.
type tally struct {
	pos     map[string]int
	entries []ProductQuantity
}

func (t *tally) add(sku string, qty int) {
	if t.pos == nil {
		t.pos = make(map[string]int)
	}
	i, ok := t.pos[sku]
	if !ok {
		i = len(t.entries)
		t.pos[sku] = i
		t.entries = append(t.entries, ProductQuantity{SKU: sku})
	}
	t.entries[i].Quantity += qty
}

func (t tally) get(sku string) int {
	if i, ok := t.pos[sku]; ok {
		return t.entries[i].Quantity
	}
	return 0
}

func (t tally) list() []ProductQuantity {
	out := make([]ProductQuantity, len(t.entries))
	copy(out, t.entries)
	return out
}

func topProducts(products []ProductQuantity, limit int) []ProductQuantity {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Quantity > products[j].Quantity
	})
	if limit >= 0 && len(products) > limit {
		products = products[:limit]
	}
	return products
}
