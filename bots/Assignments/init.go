package assignments

import (
	"context"

	"studybot/bot"
	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/form"
	"studybot/bots/Assignments/metrics"
	"studybot/bots/Assignments/reminder"
	"studybot/bots/Assignments/tgbot"
	"studybot/bots/Assignments/timezone"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

type Assignments struct {
	cfg     *bot.Config
	botCtx  *bot.Context
	tbot    *tgbot.TBot
	manager *reminder.Manager
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

func (a *Assignments) Init(cfg *bot.Config, l *zap.SugaredLogger) error {
	a.logger = l

	loc, err := timezone.Load(cfg.TimeZone)
	if err != nil {
		l.Errorw("failed to load reference time zone", "err", err)
		return err
	}

	bctx, err := bot.Connect(context.Background(), cfg, l)
	if err != nil {
		l.Errorw("failed to connect", "err", err)
		return err
	}

	clk := clock.New()
	store := newStore(bctx, cfg, clk, l)
	m := metrics.New()

	tb := tgbot.NewTBot(bctx.Bot, bctx.Bot.Self.ID, store, form.NewParser(loc, clk), cfg.ContinuationTTL, clk, l)
	tb.Metrics = m
	tb.SelfUserName = bctx.Bot.Self.UserName
	tb.RetryAttempts = cfg.SendRetryAttempts
	tb.RetryDelay = cfg.SendRetryDelay

	sweeper := reminder.NewSweeper(store, tb, loc, clk, cfg.NotifyExpired, l)
	sweep := func(ctx context.Context) {
		r := sweeper.Sweep(ctx)
		m.Sweep(len(r.Sent), len(r.Failed), len(r.Expired), r.Took)
	}

	manager := reminder.NewManager(sweep, loc, cfg.ReminderTick, clk, l)
	for _, at := range cfg.RemindAt {
		if err = manager.Schedule(at); err != nil {
			l.Errorw("failed to schedule reminders", "err", err)
			bctx.Close()
			return err
		}
	}

	*a = Assignments{cfg: cfg, botCtx: bctx, tbot: tb, manager: manager, metrics: m, logger: l}
	return nil
}

// newStore picks the store by configuration: PostgreSQL or process memory,
// optionally behind the Redis listing cache.
func newStore(ctx *bot.Context, cfg *bot.Config, clk clock.Clock, l *zap.SugaredLogger) db.Store {
	var s db.Store
	if ctx.DB != nil {
		s = db.NewPgStore(ctx.DB, clk)
	} else {
		l.Warn("keeping assignments in memory, they'll be lost on restart")
		s = db.NewMemStore(clk)
	}

	if ctx.Redis != nil {
		s = db.NewCachedStore(s, ctx.Redis, cfg.CacheTTL, l)
	}
	return s
}

// Run handles updates one by one until ctx is done. Reminders and metrics run
// alongside.
func (a *Assignments) Run(ctx context.Context) {
	if a.tbot == nil {
		a.logger.Error("can't run the bot because it's uninitialized")
		return
	}
	defer a.botCtx.Close()

	go a.manager.Run(ctx)

	if a.cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.cfg.MetricsAddr, a.logger); err != nil {
				a.logger.Errorw("metrics listener stopped", "err", err)
			}
		}()
	}

	uCfg := tg.NewUpdate(0)
	uCfg.Timeout = 60

	updates := a.botCtx.Bot.GetUpdatesChan(uCfg)
	for {
		select {
		case <-ctx.Done():
			a.botCtx.Bot.StopReceivingUpdates()
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			a.handle(ctx, u)
		}
	}
}

func (a *Assignments) handle(ctx context.Context, u tg.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorw("panic while handling update", "update", u.UpdateID, "panic", r)
		}
	}()

	a.tbot.HandleUpdate(ctx, u)
}

func init() {
	bot.Register("AssignmentsBot", &Assignments{})
}
