package insight

import "SpendLens/internal/domain/models"

// GroupByMerchant clusters expense transactions by merchant identity.
// Assignment is first-match-wins against existing group keys in input
// order: deterministic for a stable input ordering, and intentionally
// not symmetric (a later name may join an earlier group whose key it
// contains, while the reverse insertion order would create two
// groups). Callers must not rely on symmetry.
func GroupByMerchant(txs []models.Transaction) []models.MerchantGroup {
	var groups []models.MerchantGroup

	for i := range txs {
		t := &txs[i]
		if t.Type != models.EconExpense {
			continue
		}
		display := t.DisplayName()
		key := NormalizeMerchant(display)
		if key == "" {
			continue
		}

		idx := -1
		for g := range groups {
			if SameMerchant(groups[g].NormalizedName, key) {
				idx = g
				break
			}
		}
		if idx == -1 {
			groups = append(groups, models.MerchantGroup{NormalizedName: key})
			idx = len(groups) - 1
		}

		grp := &groups[idx]
		grp.Transactions = append(grp.Transactions, *t)
		if !containsString(grp.OriginalNames, display) {
			grp.OriginalNames = append(grp.OriginalNames, display)
		}
	}
	return groups
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
