package model

import "github.com/shopspring/decimal"

// RankedEntry is one portfolio's position in a ranking run. Competition
// ranking: tied gains share the rank of the first member of the tie group and
// later ranks skip accordingly (1,1,3).
type RankedEntry struct {
	Portfolio   string
	Rank        int
	Gain        decimal.Decimal
	GainPercent decimal.Decimal
	HasPercent  bool // false when total invested is zero
}
