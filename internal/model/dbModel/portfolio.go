package dbModel

import "github.com/shopspring/decimal"

type HoldingRow struct {
	PortfolioName string           `db:"name"`
	Ticker        *string          `db:"ticker"`
	Amount        *decimal.Decimal `db:"amount"`
}
