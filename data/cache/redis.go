package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error not found")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func priceSeriesKey(year int, ticker string) string {
	return fmt.Sprintf("prices:%d:%s", year, ticker)
}

func (r *RedisCache) GetPriceSeries(ctx context.Context, year int, ticker string) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPriceSeries start", slog.String("rqID", rqID), slog.String("ticker", ticker))

	res, err := r.redis.Get(ctx, priceSeriesKey(year, ticker)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("ticker", ticker))
		return nil, err
	}

	series := model.PriceSeries{}
	err = json.Unmarshal([]byte(res), &series)
	if err != nil {
		slog.Error(
			"can't unmarshall series in GetPriceSeries",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("ticker", ticker),
		)
		return nil, errors.New("can't unmarshall price series")
	}

	slog.Debug("GetPriceSeries finished", slog.String("rqID", rqID), slog.String("ticker", ticker))

	return series, nil
}

// SetPriceSnapshot stores a whole per-ticker snapshot in one pipeline.
func (r *RedisCache) SetPriceSnapshot(ctx context.Context, year int, snapshot map[string]model.PriceSeries) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPriceSnapshot start", slog.String("rqID", rqID), slog.Int("tickers", len(snapshot)))

	pipe := r.redis.Pipeline()
	for ticker, series := range snapshot {
		seriesJson, err := json.Marshal(series)
		if err != nil {
			slog.Error(
				"can't marshall series in SetPriceSnapshot",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.String("ticker", ticker),
			)
			return errors.New("can't marshall price series")
		}

		pipe.Set(ctx, priceSeriesKey(year, ticker), seriesJson, r.cfg.Cache.PricesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPriceSnapshot completed", slog.String("rqID", rqID))

	return nil
}
