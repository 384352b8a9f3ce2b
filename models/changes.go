package models

// PriceChange is a plan whose price text differs between two runs
type PriceChange struct {
	Country string
	Plan    string
	Old     string
	New     string
}

// PriceChanges compares the plans present in both runs. ERROR rows on either
// side are skipped and plans that only exist in one run are not reported.
// Changes come back in the order of curr.
func PriceChanges(prev, curr []PriceRecord) []PriceChange {
	type key struct{ country, plan string }

	before := make(map[key]string, len(prev))
	for _, r := range prev {
		if r.IsError() {
			continue
		}
		before[key{r.Country, r.Plan}] = r.Price
	}

	var changes []PriceChange
	for _, r := range curr {
		if r.IsError() {
			continue
		}
		old, ok := before[key{r.Country, r.Plan}]
		if !ok || old == r.Price {
			continue
		}
		changes = append(changes, PriceChange{Country: r.Country, Plan: r.Plan, Old: old, New: r.Price})
	}
	return changes
}
