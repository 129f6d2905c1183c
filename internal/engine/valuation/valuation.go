// Package valuation reconstructs per-date portfolio values from price series
// and static portfolio definitions. It is pure: no I/O, no logging, no state
// between calls.
package valuation

import (
	"sort"

	"github.com/dharness/stock-tracker/internal/model"
	"github.com/shopspring/decimal"
)

// UnionDates returns the union of observed dates across all series, ascending.
// This is the usual date sequence for ComputePortfolioValues.
func UnionDates(seriesByTicker map[string]model.PriceSeries) []model.Date {
	seen := make(map[model.Date]struct{})
	for _, series := range seriesByTicker {
		for _, p := range series {
			seen[p.Date] = struct{}{}
		}
	}
	dates := make([]model.Date, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ComputePortfolioValues values every portfolio in the group on every date of
// the sequence.
//
// Share counts are reconstructed once per call: investment divided by the
// ticker's first valid price anywhere in its series. Per date the price is the
// day's observation if present, else the most recent prior observation
// (forward-fill, carried as a running last-known price). A ticker with no
// price at or before the date contributes its raw invested dollars instead;
// unpriced holdings count as flat, not as a total loss.
//
// Series must arrive sorted with unique dates; a malformed series fails the
// whole call with a DataIntegrityError rather than being silently re-sorted.
func ComputePortfolioValues(
	seriesByTicker map[string]model.PriceSeries,
	portfolios model.PortfolioGroup,
	dates []model.Date,
) ([]model.PortfolioValuePoint, error) {
	for ticker, series := range seriesByTicker {
		if err := series.Validate(ticker); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			return nil, &model.DataIntegrityError{Reason: "date sequence not strictly ascending"}
		}
	}

	// Share counts are global per ticker for a given investment amount, so
	// only the initial price is precomputed here; the division happens per
	// (portfolio, ticker) below.
	initialPrices := make(map[string]decimal.Decimal, len(seriesByTicker))
	for ticker, series := range seriesByTicker {
		if first, ok := series.FirstValidPrice(); ok {
			initialPrices[ticker] = first.Price
		}
	}

	names := portfolios.Names()
	shareCounts := make(map[string]map[string]decimal.Decimal, len(names))
	for _, name := range names {
		holdings := portfolios[name]
		counts := make(map[string]decimal.Decimal, len(holdings))
		for _, ticker := range holdings.Stocks() {
			if initial, ok := initialPrices[ticker]; ok {
				counts[ticker] = holdings[ticker].Div(initial)
			}
		}
		shareCounts[name] = counts
	}

	// One streaming pass: a cursor and running last-known price per ticker.
	cursors := make(map[string]int, len(seriesByTicker))
	lastPrices := make(map[string]decimal.Decimal, len(seriesByTicker))

	points := make([]model.PortfolioValuePoint, 0, len(dates)*len(names))
	for _, date := range dates {
		for ticker, series := range seriesByTicker {
			i := cursors[ticker]
			for i < len(series) && !series[i].Date.After(date) {
				lastPrices[ticker] = series[i].Price
				i++
			}
			cursors[ticker] = i
		}

		for _, name := range names {
			holdings := portfolios[name]
			value := holdings.Cash()
			for _, ticker := range holdings.Stocks() {
				shares, priced := shareCounts[name][ticker]
				price, resolved := lastPrices[ticker]
				if priced && resolved {
					value = value.Add(shares.Mul(price))
				} else {
					// No price at or before this date: credit the raw
					// investment, assuming "no change yet".
					value = value.Add(holdings[ticker])
				}
			}
			points = append(points, model.PortfolioValuePoint{Date: date, Portfolio: name, Value: value})
		}
	}

	return points, nil
}
