package bot

import (
	"context"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Bot context keeps references to common (Telegram Bot API, database, cache,
// logger) resources of a bot.
type Context struct {
	Bot    *tg.BotAPI
	DB     *pgxpool.Pool // nil when assignments are kept in memory
	Redis  *redis.Client // nil when the cache is disabled
	Logger *zap.SugaredLogger
}

// Connect opens the connections listed in the configuration. Everything opened
// so far is closed if a later step fails.
func Connect(ctx context.Context, cfg *Config, l *zap.SugaredLogger) (*Context, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DBConnStr != MemoryDB {
		var err error
		// connection string should look like postgresql://localhost:5432/assignments?user=admn&password=passwd
		pool, err = pgxpool.New(ctx, cfg.DBConnStr)
		if err != nil {
			return nil, errors.Wrap(err, "failed creating database pool")
		}

		if err = pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "failed pinging database")
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			closePool(pool)
			return nil, errors.Wrap(err, "failed pinging redis")
		}
	}

	b, err := tg.NewBotAPI(cfg.TgToken)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		closePool(pool)
		return nil, errors.Wrap(err, "failed to initialize Telegram Bot")
	}

	b.Debug = false

	l.Infof("authorized on account %q (%q, %d)", b.Self.FirstName, b.Self.UserName, b.Self.ID)

	return &Context{Bot: b, DB: pool, Redis: rdb, Logger: l}, nil
}

// Close releases database and cache connections.
func (ctx *Context) Close() {
	if ctx.Redis != nil {
		if err := ctx.Redis.Close(); err != nil {
			ctx.Logger.Warnw("failed closing redis client", "err", err)
		}
	}
	closePool(ctx.DB)
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
