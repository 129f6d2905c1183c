package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, overview model.YearOverview) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(overview.PortfolioTable.Entities) == 0 {
		return nil, "", errors.New("empty overview")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	err = g.fillMonthlySheet(f, "Portfolios", fmt.Sprintf("Portfolio values %d", overview.Year), overview.PortfolioTable)
	if err != nil {
		return nil, "", err
	}

	err = g.fillMonthlySheet(f, "Tickers", fmt.Sprintf("Ticker prices %d", overview.Year), overview.TickerTable)
	if err != nil {
		return nil, "", err
	}

	err = g.fillRankingsSheet(f, overview.Rankings)
	if err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

// fillMonthlySheet lays out one month per row and two columns per entity:
// the month's value and its delta against the baseline. Absent months stay
// blank; they are missing data, not zeros.
func (g *XLSXGenerator) fillMonthlySheet(f *excelize.File, sheetName, title string, table model.MonthlyTable) error {
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	lastColumn, err := excelize.ColumnNumberToName(1 + 2*len(table.Entities))
	if err != nil {
		return err
	}

	err = f.MergeCell(sheetName, "A1", lastColumn+"1")
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", title)

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("style error: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "month")
	for i, entity := range table.Entities {
		valueColumn, err := excelize.ColumnNumberToName(2 + 2*i)
		if err != nil {
			return err
		}
		deltaColumn, err := excelize.ColumnNumberToName(3 + 2*i)
		if err != nil {
			return err
		}

		err = f.MergeCell(sheetName, valueColumn+"2", deltaColumn+"2")
		if err != nil {
			return err
		}
		_ = f.SetCellStr(sheetName, valueColumn+"2", entity)
		_ = f.SetCellStr(sheetName, valueColumn+"3", "value")
		_ = f.SetCellStr(sheetName, deltaColumn+"3", "YTD")
	}

	for rowIdx, row := range table.Rows {
		rowNum := rowIdx + 4
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), row.Label)

		for i, entity := range table.Entities {
			cell, ok := row.Cells[entity]
			if !ok {
				continue
			}

			valueColumn, err := excelize.ColumnNumberToName(2 + 2*i)
			if err != nil {
				return err
			}
			deltaColumn, err := excelize.ColumnNumberToName(3 + 2*i)
			if err != nil {
				return err
			}

			_ = f.SetCellValue(sheetName, fmt.Sprintf("%s%d", valueColumn, rowNum), cell.Value.InexactFloat64())
			_ = f.SetCellValue(sheetName, fmt.Sprintf("%s%d", deltaColumn, rowNum), cell.Delta.InexactFloat64())
		}
	}

	return nil
}

func (g *XLSXGenerator) fillRankingsSheet(f *excelize.File, entries []model.RankedEntry) error {
	sheetName := "Rankings"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	err = f.MergeCell(sheetName, "A1", "D1")
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Rankings")

	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("style error: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "rank")
	_ = f.SetCellStr(sheetName, "B2", "portfolio")
	_ = f.SetCellStr(sheetName, "C2", "gain")
	_ = f.SetCellStr(sheetName, "D2", "gain %")

	for i, entry := range entries {
		rowNum := i + 3
		_ = f.SetCellInt(sheetName, fmt.Sprintf("A%d", rowNum), int64(entry.Rank))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), entry.Portfolio)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), entry.Gain.InexactFloat64())
		if entry.HasPercent {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), entry.GainPercent.InexactFloat64())
		}
	}

	return nil
}
