package bot

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Each bot should implement the Bot interface.
type Bot interface {
	// Init connects the bot to its collaborators (Telegram Bot API, database,
	// cache) and prepares the handlers. On failure, Init should return an
	// error rather than panic.
	Init(*Config, *zap.SugaredLogger) error
	// Run handles updates from the Telegram Bot API until ctx is done. Multiple
	// bots are supposed to run concurrently, so Run should be started in a new
	// goroutine.
	Run(context.Context)
}

var (
	botsRegistry = make(map[string]Bot)
	botsMu       sync.Mutex
)

// Register adds the bot to the list of bots to run. To register a bot call
// Register in the init function.
func Register(name string, bot Bot) bool {
	botsMu.Lock()
	defer botsMu.Unlock()

	_, ok := botsRegistry[name]
	if ok {
		return false
	}

	botsRegistry[name] = bot
	return true
}

// Named bot record in the bots registry.
type Record struct {
	Name string
	Bot  Bot
}

// GetThemAll returns the list of bots sorted by name.
func GetThemAll() []Record {
	botsMu.Lock()
	defer botsMu.Unlock()

	bots := make([]Record, 0, len(botsRegistry))
	for n, b := range botsRegistry {
		bots = append(bots, Record{Name: n, Bot: b})
	}

	sort.Slice(bots, func(i, j int) bool { return bots[i].Name < bots[j].Name })
	return bots
}
