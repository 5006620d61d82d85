package weather

// Summarize counts requested stations per flight category. Stations with no
// record, or with an absent, errored or unrecognized category, are counted
// as CategoryUnknown.
func Summarize(results map[string]*Metar) map[Category]int {
	counts := map[Category]int{
		CategoryVFR:     0,
		CategoryMVFR:    0,
		CategoryIFR:     0,
		CategoryLIFR:    0,
		CategoryUnknown: 0,
	}
	for _, m := range results {
		cat, _ := m.Category()
		counts[cat]++
	}
	return counts
}
