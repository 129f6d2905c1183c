package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/dharness/stock-tracker/internal/model"
)

func trendEmoji(t model.Trend) string {
	switch t {
	case model.TrendUp:
		return "📈"
	case model.TrendDown:
		return "📉"
	default:
		return "➖"
	}
}

func RankingsResponse(year int, entries []model.RankedEntry) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🏆 Rankings %d\n\n", year))
	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("%d. %s: %s", entry.Rank, entry.Portfolio, entry.Gain.StringFixed(2)))
		if entry.HasPercent {
			sb.WriteString(fmt.Sprintf(" (%s%%)", entry.GainPercent.StringFixed(2)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func MonthlyTableResponse(table model.MonthlyTable) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📅 Year-to-date %d\n", table.Year))
	for _, entity := range table.Entities {
		sb.WriteString(fmt.Sprintf("\n%s\n", entity))

		if _, ok := table.Baselines[entity]; !ok {
			sb.WriteString("  no data\n")
			continue
		}

		for _, row := range table.Rows {
			cell, ok := row.Cells[entity]
			if !ok {
				sb.WriteString(fmt.Sprintf("  %s: —\n", row.Label))
				continue
			}
			sb.WriteString(fmt.Sprintf(
				"  %s: %s (%s %s)\n",
				row.Label,
				cell.Value.StringFixed(2),
				trendEmoji(cell.Trend()),
				cell.Delta.StringFixed(2),
			))
		}
	}

	return sb.String()
}

func ReportResponse(downloadLink string) string {
	return fmt.Sprintf("📄 Report is ready: %s", downloadLink)
}
