package valuation

import (
	"testing"

	"github.com/dharness/stock-tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricePoint(date string, price int64) model.PricePoint {
	return model.PricePoint{Date: model.MustParseDate(date), Price: decimal.NewFromInt(price)}
}

func values(t *testing.T, points []model.PortfolioValuePoint, portfolio string) map[string]decimal.Decimal {
	t.Helper()
	res := make(map[string]decimal.Decimal)
	for _, p := range points {
		if p.Portfolio == portfolio {
			res[p.Date.String()] = p.Value
		}
	}
	return res
}

func TestComputePortfolioValues_ShareReconstructionAndForwardFill(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 100), pricePoint("2025-02-01", 110)},
		"BBB": {pricePoint("2025-01-02", 50)},
	}
	portfolios := model.PortfolioGroup{
		"P": {"AAA": decimal.NewFromInt(30000), "BBB": decimal.NewFromInt(70000)},
	}

	points, err := ComputePortfolioValues(series, portfolios, UnionDates(series))
	require.NoError(t, err)
	require.Len(t, points, 2)

	got := values(t, points, "P")
	// 300 shares of AAA, 1400 shares of BBB.
	assert.True(t, decimal.NewFromInt(100000).Equal(got["2025-01-02"]), "got %s", got["2025-01-02"])
	// BBB has no February observation and is carried at its last known 50.
	assert.True(t, decimal.NewFromInt(103000).Equal(got["2025-02-01"]), "got %s", got["2025-02-01"])
}

func TestComputePortfolioValues_CashAddedVerbatim(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 100), pricePoint("2025-01-03", 120)},
	}
	portfolios := model.PortfolioGroup{
		"P": {"AAA": decimal.NewFromInt(1000), model.CashKey: decimal.NewFromInt(500)},
	}

	points, err := ComputePortfolioValues(series, portfolios, UnionDates(series))
	require.NoError(t, err)

	got := values(t, points, "P")
	assert.True(t, decimal.NewFromInt(1500).Equal(got["2025-01-02"]))
	assert.True(t, decimal.NewFromInt(1700).Equal(got["2025-01-03"]))
}

func TestComputePortfolioValues_RawDollarsBeforeFirstPrice(t *testing.T) {
	// BBB lists mid-sequence: before its first price the position is credited
	// at its raw invested amount, afterwards it is priced normally.
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 10), pricePoint("2025-01-03", 10), pricePoint("2025-01-06", 10)},
		"BBB": {pricePoint("2025-01-03", 200)},
	}
	portfolios := model.PortfolioGroup{
		"P": {"AAA": decimal.NewFromInt(100), "BBB": decimal.NewFromInt(400)},
	}

	points, err := ComputePortfolioValues(series, portfolios, UnionDates(series))
	require.NoError(t, err)

	got := values(t, points, "P")
	assert.True(t, decimal.NewFromInt(500).Equal(got["2025-01-02"]))
	assert.True(t, decimal.NewFromInt(500).Equal(got["2025-01-03"]))
	assert.True(t, decimal.NewFromInt(500).Equal(got["2025-01-06"]))
}

func TestComputePortfolioValues_NeverPricedTickerStaysFlat(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 10)},
	}
	portfolios := model.PortfolioGroup{
		"P": {"AAA": decimal.NewFromInt(100), "GHOST": decimal.NewFromInt(250)},
	}

	points, err := ComputePortfolioValues(series, portfolios, UnionDates(series))
	require.NoError(t, err)

	got := values(t, points, "P")
	assert.True(t, decimal.NewFromInt(350).Equal(got["2025-01-02"]))
}

func TestComputePortfolioValues_ZeroInvestmentContributesNothing(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 10), pricePoint("2025-01-03", 99)},
	}
	portfolios := model.PortfolioGroup{
		"P": {"AAA": decimal.Zero},
	}

	points, err := ComputePortfolioValues(series, portfolios, UnionDates(series))
	require.NoError(t, err)

	for _, p := range points {
		assert.True(t, p.Value.IsZero(), "value on %s = %s", p.Date, p.Value)
	}
}

func TestComputePortfolioValues_ConstantSeriesRoundTrip(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 42), pricePoint("2025-03-10", 42), pricePoint("2025-07-01", 42)},
	}
	invested := decimal.NewFromInt(12345)
	portfolios := model.PortfolioGroup{"P": {"AAA": invested}}

	points, err := ComputePortfolioValues(series, portfolios, UnionDates(series))
	require.NoError(t, err)
	require.Len(t, points, 3)

	for _, p := range points {
		assert.True(t, invested.Equal(p.Value), "value on %s = %s", p.Date, p.Value)
	}
}

func TestComputePortfolioValues_MalformedSeries(t *testing.T) {
	tests := []struct {
		name   string
		series model.PriceSeries
	}{
		{
			name:   "unsorted dates",
			series: model.PriceSeries{pricePoint("2025-01-03", 10), pricePoint("2025-01-02", 10)},
		},
		{
			name:   "duplicate dates",
			series: model.PriceSeries{pricePoint("2025-01-02", 10), pricePoint("2025-01-02", 11)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := map[string]model.PriceSeries{"AAA": tt.series}
			portfolios := model.PortfolioGroup{"P": {"AAA": decimal.NewFromInt(100)}}

			_, err := ComputePortfolioValues(series, portfolios, UnionDates(series))

			var integrityErr *model.DataIntegrityError
			require.ErrorAs(t, err, &integrityErr)
			assert.Equal(t, "AAA", integrityErr.Ticker)
		})
	}
}

func TestComputePortfolioValues_Idempotent(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-02", 100), pricePoint("2025-02-01", 110)},
		"BBB": {pricePoint("2025-01-02", 50), pricePoint("2025-03-01", 55)},
	}
	portfolios := model.PortfolioGroup{
		"P1": {"AAA": decimal.NewFromInt(30000)},
		"P2": {"BBB": decimal.NewFromInt(70000), model.CashKey: decimal.NewFromInt(100)},
	}
	dates := UnionDates(series)

	first, err := ComputePortfolioValues(series, portfolios, dates)
	require.NoError(t, err)
	second, err := ComputePortfolioValues(series, portfolios, dates)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUnionDates(t *testing.T) {
	series := map[string]model.PriceSeries{
		"AAA": {pricePoint("2025-01-03", 1), pricePoint("2025-01-05", 1)},
		"BBB": {pricePoint("2025-01-02", 1), pricePoint("2025-01-03", 1)},
	}

	got := UnionDates(series)

	want := []model.Date{
		model.MustParseDate("2025-01-02"),
		model.MustParseDate("2025-01-03"),
		model.MustParseDate("2025-01-05"),
	}
	assert.Equal(t, want, got)
}
