package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_ParseAndFormat(t *testing.T) {
	d, err := ParseDate("2025-02-01")
	require.NoError(t, err)

	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 1, d.Day())
	assert.Equal(t, "2025-02-01", d.String())
	assert.Equal(t, "2025-02", d.MonthKey())

	_, err = ParseDate("not a date")
	assert.Error(t, err)
}

func TestDate_Ordering(t *testing.T) {
	a := MustParseDate("2025-01-02")
	b := MustParseDate("2025-01-03")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.Equal(t, b, a.AddDays(1))
}

func TestDate_JSONRoundTrip(t *testing.T) {
	point := PricePoint{Date: MustParseDate("2025-06-30"), Price: decimal.NewFromInt(42)}

	raw, err := json.Marshal(point)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"2025-06-30"`)

	decoded := PricePoint{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, point.Date, decoded.Date)
	assert.True(t, point.Price.Equal(decoded.Price))
}

func TestPriceSeries_Validate(t *testing.T) {
	valid := PriceSeries{
		{Date: MustParseDate("2025-01-02"), Price: decimal.NewFromInt(10)},
		{Date: MustParseDate("2025-01-03"), Price: decimal.NewFromInt(11)},
	}
	assert.NoError(t, valid.Validate("AAA"))

	nonPositive := PriceSeries{{Date: MustParseDate("2025-01-02"), Price: decimal.Zero}}
	var integrityErr *DataIntegrityError
	require.ErrorAs(t, nonPositive.Validate("AAA"), &integrityErr)
	assert.Equal(t, "AAA", integrityErr.Ticker)
}

func TestHoldings_StocksExcludeCash(t *testing.T) {
	holdings := Holdings{
		"BBB":   decimal.NewFromInt(100),
		"AAA":   decimal.NewFromInt(200),
		CashKey: decimal.NewFromInt(50),
	}

	assert.Equal(t, []string{"AAA", "BBB"}, holdings.Stocks())
	assert.True(t, decimal.NewFromInt(50).Equal(holdings.Cash()))
	assert.True(t, decimal.NewFromInt(350).Equal(holdings.TotalInvested()))
	assert.False(t, holdings.IsEmpty())
	assert.True(t, Holdings{}.IsEmpty())
}

func TestPortfolioGroup_TickersUnion(t *testing.T) {
	group := PortfolioGroup{
		"P1": {"BBB": decimal.NewFromInt(1), CashKey: decimal.NewFromInt(5)},
		"P2": {"AAA": decimal.NewFromInt(1), "BBB": decimal.NewFromInt(2)},
	}

	assert.Equal(t, []string{"AAA", "BBB"}, group.Tickers())
	assert.Equal(t, []string{"P1", "P2"}, group.Names())
}

func TestLatestValues_LastPointWins(t *testing.T) {
	points := []PortfolioValuePoint{
		{Date: MustParseDate("2025-01-02"), Portfolio: "P", Value: decimal.NewFromInt(1)},
		{Date: MustParseDate("2025-01-03"), Portfolio: "P", Value: decimal.NewFromInt(2)},
	}

	latest := LatestValues(points)
	assert.True(t, decimal.NewFromInt(2).Equal(latest["P"]))
}
