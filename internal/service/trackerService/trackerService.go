package trackerService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/data/repository"
	"github.com/dharness/stock-tracker/internal/engine/aggregation"
	"github.com/dharness/stock-tracker/internal/engine/ranking"
	"github.com/dharness/stock-tracker/internal/engine/valuation"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/service"
	"github.com/dharness/stock-tracker/utils"
	"github.com/shopspring/decimal"
)

type MoexApi interface {
	GetDailyCloses(ctx context.Context, ticker string, from, till model.Date) (model.PriceSeries, error)
}

type Cache interface {
	GetPriceSeries(ctx context.Context, year int, ticker string) (model.PriceSeries, error)
	SetPriceSnapshot(ctx context.Context, year int, snapshot map[string]model.PriceSeries) error
}

type Repository interface {
	LoadPortfolioGroup(ctx context.Context, groupName string) (model.PortfolioGroup, error)
	CreatePortfolio(ctx context.Context, groupName, portfolioName string) (int64, error)
	UpsertHolding(ctx context.Context, groupName, portfolioName, ticker string, amount decimal.Decimal) error
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, overview model.YearOverview) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader *bytes.Reader, filename string) (downloadLink string, err error)
}

type TrackerService struct {
	cfg     *config.Config
	repo    Repository
	cache   Cache
	moexApi MoexApi
	reports ReportGenerator
	storage CloudStorage
}

func New(cfg *config.Config, repo Repository, cache Cache, moexApi MoexApi, reports ReportGenerator, storage CloudStorage) *TrackerService {
	return &TrackerService{
		cfg:     cfg,
		repo:    repo,
		cache:   cache,
		moexApi: moexApi,
		reports: reports,
		storage: storage,
	}
}

// GetYearOverview assembles the full presentation payload for a group and
// year: per-portfolio and per-ticker monthly YTD tables plus the ranking as
// of the latest valuation.
func (s *TrackerService) GetYearOverview(ctx context.Context, groupName string, year int) (overview model.YearOverview, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.GetYearOverview"

	slog.Debug("GetYearOverview start", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.Int("year", year))
	defer func() {
		slog.Debug("GetYearOverview finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.Int("year", year))
	}()

	group, err := s.loadGroup(ctx, groupName)
	if err != nil {
		return model.YearOverview{}, err
	}

	snapshot := s.loadPriceSnapshot(ctx, year, group.Tickers())
	if len(snapshot) == 0 {
		slog.Warn("no prices available for any ticker", slog.String("rqID", rqID), slog.String("op", op), slog.Int("year", year))
		return model.YearOverview{}, service.ErrNoPrices
	}

	points, err := valuation.ComputePortfolioValues(snapshot, group, valuation.UnionDates(snapshot))
	if err != nil {
		slog.Error("got error from valuation.ComputePortfolioValues", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.YearOverview{}, err
	}

	today := model.Today()

	tickerSeries := make(map[string][]model.Observation, len(snapshot))
	for ticker, series := range snapshot {
		tickerSeries[ticker] = series.Observations()
	}

	overview = model.YearOverview{
		Year:           year,
		Group:          groupName,
		PortfolioTable: aggregation.BuildMonthlyTable(model.ValueObservations(points), year, group.Names(), today),
		TickerTable:    aggregation.BuildMonthlyTable(tickerSeries, year, group.Tickers(), today),
		Rankings:       ranking.RankPortfolios(model.LatestValues(points), group),
	}

	return overview, nil
}

// GetRankings values the group over the year and ranks it by gain.
func (s *TrackerService) GetRankings(ctx context.Context, groupName string, year int) (entries []model.RankedEntry, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.GetRankings"

	slog.Debug("GetRankings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.Int("year", year))
	defer func() {
		slog.Debug("GetRankings finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.Int("year", year))
	}()

	group, err := s.loadGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}

	snapshot := s.loadPriceSnapshot(ctx, year, group.Tickers())
	if len(snapshot) == 0 {
		return nil, service.ErrNoPrices
	}

	points, err := valuation.ComputePortfolioValues(snapshot, group, valuation.UnionDates(snapshot))
	if err != nil {
		slog.Error("got error from valuation.ComputePortfolioValues", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return ranking.RankPortfolios(model.LatestValues(points), group), nil
}

// GenerateYearReport renders the overview to a workbook and uploads it,
// returning the download link.
func (s *TrackerService) GenerateYearReport(ctx context.Context, groupName string, year int) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.GenerateYearReport"

	slog.Debug("GenerateYearReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.Int("year", year))
	defer func() {
		slog.Debug("GenerateYearReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.Int("year", year))
	}()

	overview, err := s.GetYearOverview(ctx, groupName, year)
	if err != nil {
		return "", err
	}

	fileBytes, fileExtension, err := s.reports.Generate(ctx, overview)
	if err != nil {
		slog.Error("got error from reports.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("%s_%d%s", groupName, year, fileExtension)
	downloadLink, err = s.storage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from storage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// SetHolding writes one position of a portfolio, creating the portfolio on
// first use. Create and upsert run in one transaction so a failed upsert
// never leaves an empty portfolio behind.
func (s *TrackerService) SetHolding(ctx context.Context, groupName, portfolioName, ticker string, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.SetHolding"

	slog.Debug("SetHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.String("portfolio", portfolioName), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("SetHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("group", groupName), slog.String("portfolio", portfolioName), slog.String("ticker", ticker))
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.repo.CreatePortfolio(ctx, groupName, portfolioName)
		if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			return err
		}
		return s.repo.UpsertHolding(ctx, groupName, portfolioName, ticker, amount)
	})
	if err != nil {
		slog.Error("got error from repo within transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// RefreshPrices re-fetches the current year for the configured group and
// rewrites the cache. Used by the scheduler job.
func (s *TrackerService) RefreshPrices(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.RefreshPrices"

	slog.Debug("RefreshPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshPrices finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	group, err := s.loadGroup(ctx, s.cfg.PortfolioGroup)
	if err != nil {
		return err
	}

	year := model.Today().Year()
	from, till := yearRange(year)

	snapshot := make(map[string]model.PriceSeries)
	for _, ticker := range group.Tickers() {
		series, err := s.moexApi.GetDailyCloses(ctx, ticker, from, till)
		if err != nil {
			slog.Warn("can't fetch prices for ticker", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
			continue
		}
		snapshot[ticker] = series
	}

	if len(snapshot) == 0 {
		return service.ErrNoPrices
	}

	return s.cache.SetPriceSnapshot(ctx, year, snapshot)
}

func (s *TrackerService) loadGroup(ctx context.Context, groupName string) (model.PortfolioGroup, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	group, err := s.repo.LoadPortfolioGroup(ctx, groupName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("portfolio group not found", slog.String("rqID", rqID), slog.String("group", groupName))
			return nil, service.ErrNotFound
		}
		slog.Error("got error from repo.LoadPortfolioGroup", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	return group, nil
}

// loadPriceSnapshot assembles the per-ticker series for a year, preferring the
// cache and falling back to the provider. A ticker failing both ways is left
// out of the snapshot; valuation degrades per its fallback rules.
func (s *TrackerService) loadPriceSnapshot(ctx context.Context, year int, tickers []string) map[string]model.PriceSeries {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TrackerService.loadPriceSnapshot"

	from, till := yearRange(year)

	snapshot := make(map[string]model.PriceSeries, len(tickers))
	fetched := make(map[string]model.PriceSeries)
	for _, ticker := range tickers {
		series, err := s.cache.GetPriceSeries(ctx, year, ticker)
		if err == nil {
			snapshot[ticker] = series
			continue
		}

		series, err = s.moexApi.GetDailyCloses(ctx, ticker, from, till)
		if err != nil {
			slog.Warn("ticker left out of snapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
			continue
		}

		snapshot[ticker] = series
		fetched[ticker] = series
	}

	if len(fetched) > 0 {
		go s.cache.SetPriceSnapshot(context.WithoutCancel(ctx), year, fetched)
	}

	return snapshot
}

func yearRange(year int) (from, till model.Date) {
	return model.NewDate(year, time.January, 1), model.NewDate(year, time.December, 31)
}
