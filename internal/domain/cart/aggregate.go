package cart

type merged struct {
	variantID int64
	quantity  int
	note      string
}

// Merge collapses lines citing the same variant. Quantities are summed and saturate
// at MaxQuantity. The last non-empty note wins and first-seen order is preserved.
func Merge(lines []Line) []Line {
	index := make(map[int64]int, len(lines))
	acc := make([]merged, 0, len(lines))

	for _, l := range lines {
		pos, ok := index[l.VariantID]
		if !ok {
			index[l.VariantID] = len(acc)
			acc = append(acc, merged{variantID: l.VariantID, quantity: min(l.Quantity, MaxQuantity), note: l.Note})
			continue
		}
		acc[pos].quantity = saturatingAdd(acc[pos].quantity, l.Quantity)
		if l.Note != "" {
			acc[pos].note = l.Note
		}
	}

	out := make([]Line, len(acc))
	for i, m := range acc {
		out[i] = Line{VariantID: m.variantID, Quantity: m.quantity, Note: m.note}
	}
	return out
}

func saturatingAdd(a, b int) int {
	if b >= MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// VariantIDs returns the distinct variant ids of lines in first-seen order.
func VariantIDs(lines []Line) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.VariantID]; ok {
			continue
		}
		seen[l.VariantID] = struct{}{}
		ids = append(ids, l.VariantID)
	}
	return ids
}

// Group merges lines and prices them against the catalog snapshot. Variants missing
// from the snapshot are reported out of stock with nothing available.
func Group(lines []Line, variants map[int64]VariantSnapshot) *CheckResult {
	res := &CheckResult{
		Items:      []Item{},
		OutOfStock: []Item{},
	}

	for _, l := range Merge(lines) {
		v, ok := variants[l.VariantID]
		if !ok {
			res.OutOfStock = append(res.OutOfStock, Item{
				VariantID: l.VariantID,
				Quantity:  l.Quantity,
				Note:      l.Note,
			})
			continue
		}

		item := Item{
			VariantID:          v.VariantID,
			ProductID:          v.ProductID,
			ProductName:        v.ProductName,
			ProductImage:       v.ProductImage,
			SKU:                v.SKU,
			VariantDescription: v.VariantDescription,
			UnitPrice:          v.Price,
			DiscountPrice:      v.DiscountPrice,
			PurchasePrice:      v.PurchasePrice(),
			Quantity:           l.Quantity,
			Available:          v.Stock,
			WeightGrams:        v.WeightGrams,
			Note:               l.Note,
		}

		if l.Quantity > v.Stock {
			res.OutOfStock = append(res.OutOfStock, item)
			continue
		}
		res.Items = append(res.Items, item)
		res.TotalWeight += item.LineWeight()
	}

	return res
}
