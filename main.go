package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"studybot/bot"

	_ "studybot/bots/Assignments"
)

const stopOnFailure = false

// Botfarm entry point
func main() {
	cfg, cfgErr := bot.LoadConfig()

	env, level := bot.EnvDevelopment, ""
	if cfg != nil {
		env, level = cfg.Env, cfg.LogLevel
	}

	logger, syncLogs, err := bot.NewLogger(env, level, "Global")
	if err != nil {
		fmt.Fprintf(os.Stderr, "couldn't create logger: %v\n", err)
		os.Exit(1)
	}
	defer syncLogs()

	if cfgErr != nil {
		logger.Fatalw("couldn't read configuration", "err", cfgErr)
	}

	if missing := cfg.Missing(); len(missing) > 0 {
		logger.Fatalw("configuration is missing required parameters", "missing", strings.Join(missing, ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, rec := range bot.GetThemAll() {
		l, syncBotLogs, err := bot.NewLogger(cfg.Env, cfg.LogLevel, rec.Name)
		if err != nil {
			logger.Errorw("couldn't create bot logger", "bot", rec.Name, "err", err)
			if stopOnFailure {
				return
			}
			continue
		}
		defer syncBotLogs()

		if err = rec.Bot.Init(cfg, l); err != nil {
			l.Errorw("couldn't initialize bot", "err", err)
			if stopOnFailure {
				return
			}
			continue
		}

		wg.Add(1)
		go func(b bot.Bot) {
			defer wg.Done()
			b.Run(ctx)
		}(rec.Bot)
	}

	wg.Wait()
	logger.Info("all bots stopped")
}
