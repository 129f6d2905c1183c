// Package aggregation buckets dated value series into monthly year-to-date
// summaries. Like the other engines it is a pure computation.
package aggregation

import (
	"fmt"
	"time"

	"github.com/dharness/stock-tracker/internal/model"
	"github.com/shopspring/decimal"
)

// BuildMonthlyTable summarizes the given per-entity observation series for one
// calendar year. Entities may be tickers (price series) or portfolios (value
// series); the engine does not care which.
//
// The baseline per entity is the observation exactly on January 1 of the year
// when one exists, otherwise the chronologically first observation of the
// whole series. An entity with no observations at all gets no baseline and
// only absent cells.
//
// Rows cover months 1..12 for past years and 1..today's month for the current
// year. A month's cell holds the last observation recorded within that month;
// months without observations stay absent, distinct from a computed zero. The
// delta of a populated cell is its value minus the baseline.
//
// today only decides how many months of the current year have elapsed; for a
// fixed input series, year and today the result is identical on every call.
func BuildMonthlyTable(
	seriesByEntity map[string][]model.Observation,
	year int,
	entities []string,
	today model.Date,
) model.MonthlyTable {
	table := model.MonthlyTable{
		Year:      year,
		Entities:  append([]string(nil), entities...),
		Baselines: make(map[string]decimal.Decimal, len(entities)),
	}

	janFirst := model.NewDate(year, time.January, 1)
	for _, entity := range entities {
		if baseline, ok := selectBaseline(seriesByEntity[entity], janFirst); ok {
			table.Baselines[entity] = baseline
		}
	}

	lastMonth := time.December
	if year == today.Year() {
		lastMonth = today.Month()
	}

	for month := time.January; month <= lastMonth; month++ {
		row := model.MonthlyRow{
			MonthKey: fmt.Sprintf("%04d-%02d", year, month),
			Label:    month.String(),
			Cells:    make(map[string]model.MonthlyCell, len(entities)),
		}
		for _, entity := range entities {
			baseline, hasBaseline := table.Baselines[entity]
			if !hasBaseline {
				continue
			}
			value, ok := lastValueInMonth(seriesByEntity[entity], year, month)
			if !ok {
				continue
			}
			row.Cells[entity] = model.MonthlyCell{
				Value: value,
				Delta: value.Sub(baseline),
				Valid: true,
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

func selectBaseline(series []model.Observation, janFirst model.Date) (decimal.Decimal, bool) {
	if len(series) == 0 {
		return decimal.Decimal{}, false
	}
	for _, obs := range series {
		if obs.Date == janFirst {
			return obs.Value, true
		}
	}
	earliest := series[0]
	for _, obs := range series[1:] {
		if obs.Date.Before(earliest.Date) {
			earliest = obs
		}
	}
	return earliest.Value, true
}

func lastValueInMonth(series []model.Observation, year int, month time.Month) (decimal.Decimal, bool) {
	var value decimal.Decimal
	var last model.Date
	found := false
	for _, obs := range series {
		if obs.Date.Year() != year || obs.Date.Month() != month {
			continue
		}
		if !found || obs.Date.After(last) {
			value, last, found = obs.Value, obs.Date, true
		}
	}
	return value, found
}
