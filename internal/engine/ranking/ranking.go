// Package ranking orders portfolios by total gain with competition-style tie
// handling.
package ranking

import (
	"sort"

	"github.com/dharness/stock-tracker/internal/model"
	"github.com/shopspring/decimal"
)

// RankPortfolios ranks every non-empty portfolio of the group by gain: its
// latest computed value minus everything invested in it, cash included.
// Portfolios with an empty definition are left out entirely; a portfolio
// missing from latestValues counts as worth zero.
//
// Sort order is gain descending, name ascending on equal gain. Equal gains
// share the rank of the first member of their group and the next distinct
// gain resumes at its 1-based position, so ranks may skip (1,1,3).
func RankPortfolios(latestValues map[string]decimal.Decimal, portfolios model.PortfolioGroup) []model.RankedEntry {
	entries := make([]model.RankedEntry, 0, len(portfolios))
	for _, name := range portfolios.Names() {
		holdings := portfolios[name]
		if holdings.IsEmpty() {
			continue
		}
		invested := holdings.TotalInvested()
		gain := latestValues[name].Sub(invested)

		entry := model.RankedEntry{Portfolio: name, Gain: gain}
		if !invested.IsZero() {
			entry.GainPercent = gain.Div(invested).Mul(decimal.NewFromInt(100))
			entry.HasPercent = true
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Gain.Equal(entries[j].Gain) {
			return entries[i].Gain.GreaterThan(entries[j].Gain)
		}
		return entries[i].Portfolio < entries[j].Portfolio
	})

	for i := range entries {
		if i > 0 && entries[i].Gain.Equal(entries[i-1].Gain) {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	return entries
}
