package trackerService

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/data/repository"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upsertCall struct {
	portfolio string
	ticker    string
	amount    decimal.Decimal
}

type fakeRepo struct {
	group model.PortfolioGroup
	err   error

	createErr    error
	created      []string
	upserts      []upsertCall
	transactions int
}

func (f *fakeRepo) LoadPortfolioGroup(ctx context.Context, groupName string) (model.PortfolioGroup, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.group, nil
}

func (f *fakeRepo) CreatePortfolio(ctx context.Context, groupName, portfolioName string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, portfolioName)
	return int64(len(f.created)), nil
}

func (f *fakeRepo) UpsertHolding(ctx context.Context, groupName, portfolioName, ticker string, amount decimal.Decimal) error {
	f.upserts = append(f.upserts, upsertCall{portfolio: portfolioName, ticker: ticker, amount: amount})
	return nil
}

func (f *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	f.transactions++
	return tFunc(ctx)
}

type fakeCache struct {
	series map[string]model.PriceSeries
	stored chan map[string]model.PriceSeries
}

func (f *fakeCache) GetPriceSeries(ctx context.Context, year int, ticker string) (model.PriceSeries, error) {
	if series, ok := f.series[ticker]; ok {
		return series, nil
	}
	return nil, errors.New("cache miss")
}

func (f *fakeCache) SetPriceSnapshot(ctx context.Context, year int, snapshot map[string]model.PriceSeries) error {
	if f.stored != nil {
		f.stored <- snapshot
	}
	return nil
}

type fakeMoexApi struct {
	series map[string]model.PriceSeries
	calls  []string
}

func (f *fakeMoexApi) GetDailyCloses(ctx context.Context, ticker string, from, till model.Date) (model.PriceSeries, error) {
	f.calls = append(f.calls, ticker)
	if series, ok := f.series[ticker]; ok {
		return series, nil
	}
	return nil, errors.New("provider error")
}

type fakeReports struct{}

func (f *fakeReports) Generate(ctx context.Context, overview model.YearOverview) ([]byte, string, error) {
	return []byte("workbook"), ".xlsx", nil
}

type fakeStorage struct {
	uploaded string
}

func (f *fakeStorage) UploadFile(ctx context.Context, reader *bytes.Reader, filename string) (string, error) {
	f.uploaded = filename
	return "https://example.com/" + filename, nil
}

func testConfig() *config.Config {
	return &config.Config{PortfolioGroup: "family"}
}

func seriesOf(points ...model.PricePoint) model.PriceSeries { return points }

func pricePoint(date string, price int64) model.PricePoint {
	return model.PricePoint{Date: model.MustParseDate(date), Price: decimal.NewFromInt(price)}
}

func TestGetYearOverview_FromCachedPrices(t *testing.T) {
	group := model.PortfolioGroup{
		"P": {"AAA": decimal.NewFromInt(30000), "BBB": decimal.NewFromInt(70000)},
	}
	cacheStub := &fakeCache{series: map[string]model.PriceSeries{
		"AAA": seriesOf(pricePoint("2025-01-02", 100), pricePoint("2025-02-01", 110)),
		"BBB": seriesOf(pricePoint("2025-01-02", 50)),
	}}
	api := &fakeMoexApi{}

	srv := New(testConfig(), &fakeRepo{group: group}, cacheStub, api, &fakeReports{}, &fakeStorage{})

	overview, err := srv.GetYearOverview(context.Background(), "family", 2025)
	require.NoError(t, err)

	assert.Empty(t, api.calls, "cached tickers must not hit the provider")
	assert.Equal(t, 2025, overview.Year)
	assert.Equal(t, []string{"P"}, overview.PortfolioTable.Entities)
	assert.Equal(t, []string{"AAA", "BBB"}, overview.TickerTable.Entities)

	require.Len(t, overview.Rankings, 1)
	// latest value 103000 against 100000 invested
	assert.True(t, decimal.NewFromInt(3000).Equal(overview.Rankings[0].Gain))

	require.Contains(t, overview.PortfolioTable.Baselines, "P")
	assert.True(t, decimal.NewFromInt(100000).Equal(overview.PortfolioTable.Baselines["P"]))
}

func TestGetYearOverview_CacheMissFallsBackToProviderAndStores(t *testing.T) {
	group := model.PortfolioGroup{"P": {"AAA": decimal.NewFromInt(1000)}}
	cacheStub := &fakeCache{stored: make(chan map[string]model.PriceSeries, 1)}
	api := &fakeMoexApi{series: map[string]model.PriceSeries{
		"AAA": seriesOf(pricePoint("2025-01-02", 10)),
	}}

	srv := New(testConfig(), &fakeRepo{group: group}, cacheStub, api, &fakeReports{}, &fakeStorage{})

	_, err := srv.GetYearOverview(context.Background(), "family", 2025)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA"}, api.calls)

	select {
	case stored := <-cacheStub.stored:
		assert.Contains(t, stored, "AAA")
	case <-time.After(time.Second):
		t.Fatal("fetched prices were never written back to the cache")
	}
}

func TestGetYearOverview_FailedTickerLeftOutOfSnapshot(t *testing.T) {
	group := model.PortfolioGroup{
		"P": {"AAA": decimal.NewFromInt(1000), "DEAD": decimal.NewFromInt(500)},
	}
	cacheStub := &fakeCache{series: map[string]model.PriceSeries{
		"AAA": seriesOf(pricePoint("2025-01-02", 10)),
	}}
	api := &fakeMoexApi{}

	srv := New(testConfig(), &fakeRepo{group: group}, cacheStub, api, &fakeReports{}, &fakeStorage{})

	overview, err := srv.GetYearOverview(context.Background(), "family", 2025)
	require.NoError(t, err)

	// DEAD is credited at its raw invested dollars, so the portfolio is flat.
	require.Len(t, overview.Rankings, 1)
	assert.True(t, overview.Rankings[0].Gain.IsZero(), "gain = %s", overview.Rankings[0].Gain)
}

func TestGetYearOverview_GroupNotFound(t *testing.T) {
	srv := New(testConfig(), &fakeRepo{err: repository.ErrNotFound}, &fakeCache{}, &fakeMoexApi{}, &fakeReports{}, &fakeStorage{})

	_, err := srv.GetYearOverview(context.Background(), "missing", 2025)

	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetYearOverview_NoPricesAtAll(t *testing.T) {
	group := model.PortfolioGroup{"P": {"AAA": decimal.NewFromInt(1000)}}

	srv := New(testConfig(), &fakeRepo{group: group}, &fakeCache{}, &fakeMoexApi{}, &fakeReports{}, &fakeStorage{})

	_, err := srv.GetYearOverview(context.Background(), "family", 2025)

	assert.ErrorIs(t, err, service.ErrNoPrices)
}

func TestGenerateYearReport_UploadsWorkbook(t *testing.T) {
	group := model.PortfolioGroup{"P": {"AAA": decimal.NewFromInt(1000)}}
	cacheStub := &fakeCache{series: map[string]model.PriceSeries{
		"AAA": seriesOf(pricePoint("2025-01-02", 10)),
	}}
	storage := &fakeStorage{}

	srv := New(testConfig(), &fakeRepo{group: group}, cacheStub, &fakeMoexApi{}, &fakeReports{}, storage)

	downloadLink, err := srv.GenerateYearReport(context.Background(), "family", 2025)
	require.NoError(t, err)

	assert.Equal(t, "family_2025.xlsx", storage.uploaded)
	assert.Equal(t, "https://example.com/family_2025.xlsx", downloadLink)
}

func TestSetHolding_CreatesPortfolioAndUpsertsInOneTransaction(t *testing.T) {
	repo := &fakeRepo{}

	srv := New(testConfig(), repo, &fakeCache{}, &fakeMoexApi{}, &fakeReports{}, &fakeStorage{})

	err := srv.SetHolding(context.Background(), "family", "alice", "AAA", decimal.NewFromInt(30000))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.transactions)
	assert.Equal(t, []string{"alice"}, repo.created)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "alice", repo.upserts[0].portfolio)
	assert.Equal(t, "AAA", repo.upserts[0].ticker)
	assert.True(t, decimal.NewFromInt(30000).Equal(repo.upserts[0].amount))
}

func TestSetHolding_ExistingPortfolioIsNotAnError(t *testing.T) {
	repo := &fakeRepo{createErr: repository.ErrAlreadyExists}

	srv := New(testConfig(), repo, &fakeCache{}, &fakeMoexApi{}, &fakeReports{}, &fakeStorage{})

	err := srv.SetHolding(context.Background(), "family", "alice", model.CashKey, decimal.NewFromInt(500))
	require.NoError(t, err)

	require.Len(t, repo.upserts, 1)
	assert.Equal(t, model.CashKey, repo.upserts[0].ticker)
}

func TestSetHolding_CreateFailureAbortsUpsert(t *testing.T) {
	failure := errors.New("connection reset")
	repo := &fakeRepo{createErr: failure}

	srv := New(testConfig(), repo, &fakeCache{}, &fakeMoexApi{}, &fakeReports{}, &fakeStorage{})

	err := srv.SetHolding(context.Background(), "family", "alice", "AAA", decimal.NewFromInt(100))

	assert.ErrorIs(t, err, failure)
	assert.Empty(t, repo.upserts)
}

func TestRefreshPrices_FetchesWholeGroupAndStores(t *testing.T) {
	group := model.PortfolioGroup{
		"P1": {"AAA": decimal.NewFromInt(100)},
		"P2": {"BBB": decimal.NewFromInt(200), model.CashKey: decimal.NewFromInt(50)},
	}
	year := model.Today().Year()
	cacheStub := &fakeCache{stored: make(chan map[string]model.PriceSeries, 1)}
	api := &fakeMoexApi{series: map[string]model.PriceSeries{
		"AAA": seriesOf(model.PricePoint{Date: model.NewDate(year, time.January, 3), Price: decimal.NewFromInt(10)}),
		"BBB": seriesOf(model.PricePoint{Date: model.NewDate(year, time.January, 3), Price: decimal.NewFromInt(20)}),
	}}

	srv := New(testConfig(), &fakeRepo{group: group}, cacheStub, api, &fakeReports{}, &fakeStorage{})

	err := srv.RefreshPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, api.calls)
	stored := <-cacheStub.stored
	assert.Len(t, stored, 2)
}
