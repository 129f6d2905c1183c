package moexApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/internal/externalApi"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/model/moexModel"
	"github.com/dharness/stock-tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const historyPageSize = 100

type MoexApi struct {
	client *resty.Client

	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func New(cfg *config.Config) *MoexApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MoexApi.Url).
		SetRetryCount(cfg.API.MoexApi.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		})

	var minInterval time.Duration
	if rpm := cfg.API.MoexApi.RequestsPerMinute; rpm > 0 {
		minInterval = time.Minute / time.Duration(rpm)
	}

	return &MoexApi{client: client, minInterval: minInterval}
}

// GetDailyCloses fetches the ticker's daily closing prices for the date range,
// following the ISS cursor across pages. Days without a usable close (null or
// non-positive) are omitted from the result; a ticker with no rows at all
// yields externalApi.ErrNotFound.
func (a *MoexApi) GetDailyCloses(ctx context.Context, ticker string, from, till model.Date) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MoexApi.GetDailyCloses"
	url := fmt.Sprintf("/iss/history/engines/stock/markets/shares/boards/TQBR/securities/%s.json", ticker)

	slog.Debug("GetDailyCloses start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	series := make(model.PriceSeries, 0, historyPageSize)
	start := 0
	for {
		a.throttle()

		params := map[string]string{
			"iss.meta":        "off",
			"history.columns": "TRADEDATE,CLOSE",
			"from":            from.String(),
			"till":            till.String(),
			"start":           strconv.Itoa(start),
		}

		resp, err := a.client.R().
			SetContext(ctx).
			SetHeader("Accept", "application/json").
			SetQueryParams(params).
			Get(url)
		if err != nil {
			slog.Error("error while dialing MoexApi", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
			return nil, err
		}

		if resp.StatusCode() == http.StatusTooManyRequests {
			return nil, externalApi.ErrRateLimited
		}

		rawHistory := moexModel.RawHistory{}
		err = json.Unmarshal(resp.Body(), &rawHistory)
		if err != nil {
			slog.Error("can't unmarshall response into moexModel.RawHistory", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
			return nil, err
		}

		rows := len(rawHistory.History.Data)
		if rows == 0 {
			break
		}

		err = a.appendHistoryRows(&series, rawHistory)
		if err != nil {
			slog.Error("can't parse raw history", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
			return nil, err
		}

		start += rows
	}

	if len(series) == 0 {
		return nil, externalApi.ErrNotFound
	}

	slog.Debug("GetDailyCloses request complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("points", len(series)))

	return series, nil
}

func (a *MoexApi) appendHistoryRows(series *model.PriceSeries, rawHistory moexModel.RawHistory) error {
	for i, row := range rawHistory.History.Data {
		if len(row) != len(rawHistory.History.Columns) {
			return fmt.Errorf("invalid history row %d", i)
		}

		var point model.PricePoint
		hasClose := false
		for j, column := range rawHistory.History.Columns {
			switch column {
			case "TRADEDATE":
				raw, ok := row[j].(string)
				if !ok {
					return fmt.Errorf("invalid type TRADEDATE = %v", row[j])
				}
				date, err := model.ParseDate(raw)
				if err != nil {
					return err
				}
				point.Date = date
			case "CLOSE":
				if row[j] == nil {
					continue
				}
				closePrice, ok := row[j].(float64)
				if !ok {
					return fmt.Errorf("invalid type CLOSE = %v", row[j])
				}
				if closePrice <= 0 {
					continue
				}
				point.Price = decimal.NewFromFloat(closePrice)
				hasClose = true
			default:
				return fmt.Errorf("unknown column %s", column)
			}
		}

		if hasClose {
			*series = append(*series, point)
		}
	}
	return nil
}

// throttle spaces requests to stay inside the provider's per-minute budget.
func (a *MoexApi) throttle() {
	if a.minInterval == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if wait := a.minInterval - time.Since(a.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	a.lastRequest = time.Now()
}
