package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CashKey is the reserved holdings key for dollars held as cash. Cash is never
// converted to shares and contributes its literal amount on every date.
const CashKey = "cash_amount"

// Holdings maps ticker to invested dollar amount for one portfolio. The
// reserved CashKey entry, if present, is not a stock position.
type Holdings map[string]decimal.Decimal

// PortfolioGroup maps portfolio name to its holdings. Definitions are static
// for a run; they are loaded by the repository and passed to the engines at
// call time.
type PortfolioGroup map[string]Holdings

// Stocks returns the ticker entries of the holdings, excluding cash, with
// tickers in ascending order for deterministic iteration.
func (h Holdings) Stocks() []string {
	tickers := make([]string, 0, len(h))
	for ticker := range h {
		if ticker == CashKey {
			continue
		}
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// Cash returns the cash amount, zero when the reserved key is absent.
func (h Holdings) Cash() decimal.Decimal {
	return h[CashKey]
}

// TotalInvested sums every entry including cash.
func (h Holdings) TotalInvested() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range h {
		total = total.Add(amount)
	}
	return total
}

// IsEmpty reports whether the definition has no ticker and no cash entries.
// Empty portfolios are excluded from ranking but still eligible for valuation.
func (h Holdings) IsEmpty() bool { return len(h) == 0 }

// Names returns the portfolio names in ascending order.
func (g PortfolioGroup) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tickers returns the union of stock tickers held anywhere in the group,
// ascending.
func (g PortfolioGroup) Tickers() []string {
	seen := make(map[string]struct{})
	for _, holdings := range g {
		for _, ticker := range holdings.Stocks() {
			seen[ticker] = struct{}{}
		}
	}
	tickers := make([]string, 0, len(seen))
	for ticker := range seen {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// PortfolioValuePoint is one valuation result: the value of one portfolio on
// one date.
type PortfolioValuePoint struct {
	Date      Date
	Portfolio string
	Value     decimal.Decimal
}

// ValueObservations regroups a flat valuation result into per-portfolio
// observation series, preserving date order.
func ValueObservations(points []PortfolioValuePoint) map[string][]Observation {
	byPortfolio := make(map[string][]Observation)
	for _, p := range points {
		byPortfolio[p.Portfolio] = append(byPortfolio[p.Portfolio], Observation{Date: p.Date, Value: p.Value})
	}
	return byPortfolio
}

// LatestValues returns the last computed value per portfolio, in input order.
func LatestValues(points []PortfolioValuePoint) map[string]decimal.Decimal {
	latest := make(map[string]decimal.Decimal)
	for _, p := range points {
		latest[p.Portfolio] = p.Value
	}
	return latest
}
