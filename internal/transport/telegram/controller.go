package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/data/session"
	"github.com/dharness/stock-tracker/internal/converter/telebotConverter"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/service"
	"github.com/dharness/stock-tracker/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const internalErrMsg = "something went wrong..."

type TrackerService interface {
	GetYearOverview(ctx context.Context, groupName string, year int) (model.YearOverview, error)
	GetRankings(ctx context.Context, groupName string, year int) ([]model.RankedEntry, error)
	GenerateYearReport(ctx context.Context, groupName string, year int) (downloadLink string, err error)
	SetHolding(ctx context.Context, groupName, portfolioName, ticker string, amount decimal.Decimal) error
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, chatSession model.Session) error
}

type Controller struct {
	cfg            *config.Config
	trackerService TrackerService
	session        Session
}

func NewController(cfg *config.Config, trackerService TrackerService, chatSession Session) *Controller {
	return &Controller{
		cfg:            cfg,
		trackerService: trackerService,
		session:        chatSession,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Reply("Hello! Commands: /rankings, /monthly, /report, /set <portfolio> <ticker> <amount>")
}

// SetHolding handles "/set <portfolio> <ticker> <amount>". The ticker
// cash_amount sets the uninvested cash of the portfolio.
func (ctrl *Controller) SetHolding(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	args := c.Args()
	if len(args) != 3 {
		return c.Send("usage: /set <portfolio> <ticker> <amount>")
	}

	portfolioName := args[0]
	ticker := strings.ToUpper(args[1])
	if strings.EqualFold(args[1], model.CashKey) {
		ticker = model.CashKey
	}

	amount, err := decimal.NewFromString(args[2])
	if err != nil || amount.IsNegative() {
		return c.Send("amount must be a non-negative number")
	}

	err = ctrl.trackerService.SetHolding(ctx, ctrl.cfg.PortfolioGroup, portfolioName, ticker, amount)
	if err != nil {
		slog.Error("got error from trackerService.SetHolding", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(fmt.Sprintf("saved: %s %s = %s", portfolioName, ticker, amount.String()))
}

func (ctrl *Controller) Rankings(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	year := model.Today().Year()
	entries, err := ctrl.trackerService.GetRankings(ctx, ctrl.cfg.PortfolioGroup, year)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("portfolio group is not configured")
		}
		if errors.Is(err, service.ErrNoPrices) {
			return c.Send("no price data available yet")
		}
		slog.Error("got error from trackerService.GetRankings", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if len(entries) == 0 {
		return c.Send("nothing to rank: all portfolios are empty")
	}

	return c.Send(telebotConverter.RankingsResponse(year, entries))
}

func (ctrl *Controller) InitMonthly(c tele.Context) error {
	return ctrl.initYearInput(c, model.ExpectingMonthlyYear)
}

func (ctrl *Controller) InitReport(c tele.Context) error {
	return ctrl.initYearInput(c, model.ExpectingReportYear)
}

func (ctrl *Controller) initYearInput(c tele.Context, state model.SessionState) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	strChatID := strconv.FormatInt(c.Chat().ID, 10)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}

	chatSession.State = state
	err = ctrl.session.SetSession(ctx, strChatID, chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter a year (e.g. 2025):")
}

func (ctrl *Controller) ProcessMonthly(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	year, err := ctrl.finishYearInput(ctx, c)
	if err != nil {
		return c.Send("that doesn't look like a year, try /monthly again")
	}

	overview, err := ctrl.trackerService.GetYearOverview(ctx, ctrl.cfg.PortfolioGroup, year)
	if err != nil {
		if errors.Is(err, service.ErrNoPrices) {
			return c.Send("no price data available for that year")
		}
		slog.Error("got error from trackerService.GetYearOverview", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if err := c.Send(telebotConverter.MonthlyTableResponse(overview.PortfolioTable)); err != nil {
		return err
	}
	return c.Send(telebotConverter.MonthlyTableResponse(overview.TickerTable))
}

func (ctrl *Controller) ProcessReport(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	year, err := ctrl.finishYearInput(ctx, c)
	if err != nil {
		return c.Send("that doesn't look like a year, try /report again")
	}

	downloadLink, err := ctrl.trackerService.GenerateYearReport(ctx, ctrl.cfg.PortfolioGroup, year)
	if err != nil {
		if errors.Is(err, service.ErrNoPrices) {
			return c.Send("no price data available for that year")
		}
		slog.Error("got error from trackerService.GenerateYearReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.ReportResponse(downloadLink))
}

// finishYearInput parses the typed year and resets the dialog state either way.
func (ctrl *Controller) finishYearInput(ctx context.Context, c tele.Context) (int, error) {
	strChatID := strconv.FormatInt(c.Chat().ID, 10)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err == nil {
		chatSession.State = model.DefaultState
		_ = ctrl.session.SetSession(ctx, strChatID, chatSession)
	}

	year, err := strconv.Atoi(strings.TrimSpace(c.Message().Text))
	if err != nil || year < 1990 || year > model.Today().Year() {
		return 0, errors.New("invalid year")
	}

	return year, nil
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return chatSession, nil
}
