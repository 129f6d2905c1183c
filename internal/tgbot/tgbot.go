package tgbot

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/transport/telegram"
	customMW "github.com/dharness/stock-tracker/internal/transport/telegram/middleware"
	"github.com/dharness/stock-tracker/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, chatSession model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, chatSession Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: chatSession}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	// Plain text is dispatched on the chat's dialog state.
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("please start with one of the commands")
		}

		c.Set("session", chatSession)

		switch chatSession.State {
		case model.ExpectingMonthlyYear:
			return b.ctrl.ProcessMonthly(c)
		case model.ExpectingReportYear:
			return b.ctrl.ProcessReport(c)
		default:
			slog.Error("unexpected chatSession state", slog.String("rqID", rqID), slog.Any("state", chatSession.State))
			return c.Send("please start with one of the commands")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)

	b.bot.Handle("/rankings", b.ctrl.Rankings)

	b.bot.Handle("/monthly", b.ctrl.InitMonthly)

	b.bot.Handle("/report", b.ctrl.InitReport)

	b.bot.Handle("/set", b.ctrl.SetHolding)
}
