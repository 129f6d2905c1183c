package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily closing price observation. Price is always positive:
// a day without a usable price has no point at all.
type PricePoint struct {
	Date  Date            `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// PriceSeries is the ordered observations for one ticker. Dates are unique and
// ascending; producers (fetch, cache) guarantee that and consumers verify it
// with Validate rather than re-sorting, so upstream defects stay visible.
type PriceSeries []PricePoint

// DataIntegrityError reports a malformed series. It is fatal to the one
// computation that hit it; the caller decides whether to skip the ticker or
// abort the run.
type DataIntegrityError struct {
	Ticker string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error for ticker %s: %s", e.Ticker, e.Reason)
}

// Validate checks the ordering and positivity invariants for the ticker's series.
func (s PriceSeries) Validate(ticker string) error {
	for i, p := range s {
		if !p.Price.IsPositive() {
			return &DataIntegrityError{Ticker: ticker, Reason: fmt.Sprintf("non-positive price %s on %s", p.Price, p.Date)}
		}
		if i == 0 {
			continue
		}
		prev := s[i-1]
		if p.Date == prev.Date {
			return &DataIntegrityError{Ticker: ticker, Reason: fmt.Sprintf("duplicate date %s", p.Date)}
		}
		if p.Date.Before(prev.Date) {
			return &DataIntegrityError{Ticker: ticker, Reason: fmt.Sprintf("dates out of order: %s after %s", p.Date, prev.Date)}
		}
	}
	return nil
}

// FirstValidPrice returns the earliest observation in the series, if any.
// Share counts are reconstructed from it.
func (s PriceSeries) FirstValidPrice() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[0], true
}

// Observations converts the series to the generic per-entity form the
// aggregation engine consumes.
func (s PriceSeries) Observations() []Observation {
	obs := make([]Observation, 0, len(s))
	for _, p := range s {
		obs = append(obs, Observation{Date: p.Date, Value: p.Price})
	}
	return obs
}
