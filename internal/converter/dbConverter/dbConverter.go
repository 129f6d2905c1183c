package dbConverter

import (
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/model/dbModel"
)

// ConvertHoldingRows folds the left-joined portfolio/holding rows into a
// group. A portfolio whose join produced no holding (nil ticker) comes back
// with an empty definition.
func ConvertHoldingRows(rows []dbModel.HoldingRow) model.PortfolioGroup {
	group := make(model.PortfolioGroup)
	for _, row := range rows {
		holdings, ok := group[row.PortfolioName]
		if !ok {
			holdings = model.Holdings{}
			group[row.PortfolioName] = holdings
		}
		if row.Ticker != nil && row.Amount != nil {
			holdings[*row.Ticker] = *row.Amount
		}
	}
	return group
}
