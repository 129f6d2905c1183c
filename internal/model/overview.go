package model

// YearOverview bundles everything the presentation layer shows for one group
// and year: the monthly YTD table over portfolio values, the same table over
// raw ticker prices, and the gain ranking as of the latest computed values.
type YearOverview struct {
	Year           int
	Group          string
	PortfolioTable MonthlyTable
	TickerTable    MonthlyTable
	Rankings       []RankedEntry
}
