package model

import "github.com/shopspring/decimal"

// Observation is one dated value in a generic per-entity series. The
// aggregation engine consumes these for both tickers (prices) and portfolios
// (computed values).
type Observation struct {
	Date  Date
	Value decimal.Decimal
}

// Trend is the three-way direction of a YTD delta.
type Trend int

const (
	TrendFlat Trend = iota
	TrendUp
	TrendDown
)

// MonthlyCell is one entity's value for one month. Valid distinguishes a
// populated cell from a month with no observations; an absent month is never
// rendered as zero.
type MonthlyCell struct {
	Value decimal.Decimal
	Delta decimal.Decimal
	Valid bool
}

// Trend classifies the cell's delta against the baseline.
func (c MonthlyCell) Trend() Trend {
	switch c.Delta.Sign() {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendFlat
	}
}

// MonthlyRow holds one month's cells keyed by entity name.
type MonthlyRow struct {
	MonthKey string // YYYY-MM
	Label    string // e.g. "January"
	Cells    map[string]MonthlyCell
}

// MonthlyTable is a full year-to-date summary. Baselines holds the reference
// value per entity; an entity missing from it has no data anywhere in the
// year and all of its cells are absent.
type MonthlyTable struct {
	Year      int
	Entities  []string
	Baselines map[string]decimal.Decimal
	Rows      []MonthlyRow
}
