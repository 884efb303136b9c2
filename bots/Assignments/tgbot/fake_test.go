package tgbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/form"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	botID    int64 = 7
	adminID  int64 = 10
	memberID int64 = 20
	groupID  int64 = -100
	otherID  int64 = -200
)

var lagos, _ = time.LoadLocation("Africa/Lagos")

type fakeAPI struct {
	mux      sync.Mutex
	nextID   int
	sent     []tg.MessageConfig
	requests []tg.Chattable
	admins   map[int64][]int64
	adminErr error
	sendErr  map[int64]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:  1000,
		admins:  map[int64][]int64{groupID: {adminID, botID}, otherID: {adminID, botID}},
		sendErr: map[int64]error{},
	}
}

func (f *fakeAPI) Send(c tg.Chattable) (tg.Message, error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	m, ok := c.(tg.MessageConfig)
	if !ok {
		return tg.Message{}, errors.New("unexpected chattable")
	}
	if err := f.sendErr[m.ChatID]; err != nil {
		return tg.Message{}, err
	}

	f.nextID++
	f.sent = append(f.sent, m)
	return tg.Message{MessageID: f.nextID, Chat: &tg.Chat{ID: m.ChatID}, Text: m.Text}, nil
}

func (f *fakeAPI) Request(c tg.Chattable) (*tg.APIResponse, error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.requests = append(f.requests, c)
	return &tg.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatAdministrators(cfg tg.ChatAdministratorsConfig) ([]tg.ChatMember, error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	if f.adminErr != nil {
		return nil, f.adminErr
	}

	var members []tg.ChatMember
	for _, id := range f.admins[cfg.ChatID] {
		members = append(members, tg.ChatMember{User: &tg.User{ID: id}, Status: "administrator"})
	}
	return members, nil
}

func (f *fakeAPI) last() tg.MessageConfig {
	f.mux.Lock()
	defer f.mux.Unlock()

	if len(f.sent) == 0 {
		return tg.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) lastID() int {
	f.mux.Lock()
	defer f.mux.Unlock()

	return f.nextID
}

func (f *fakeAPI) answers() []tg.CallbackConfig {
	f.mux.Lock()
	defer f.mux.Unlock()

	var res []tg.CallbackConfig
	for _, r := range f.requests {
		if c, ok := r.(tg.CallbackConfig); ok {
			res = append(res, c)
		}
	}
	return res
}

func (f *fakeAPI) demote(chatID, usr int64) {
	f.mux.Lock()
	defer f.mux.Unlock()

	var kept []int64
	for _, id := range f.admins[chatID] {
		if id != usr {
			kept = append(kept, id)
		}
	}
	f.admins[chatID] = kept
}

type fixture struct {
	api   *fakeAPI
	store *db.MemStore
	bot   *TBot
	clk   clock.FakeClock
	msgID int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clock.NewFake()
	clk.Set(time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC))

	api := newFakeAPI()
	store := db.NewMemStore(clk)
	b := NewTBot(api, botID, store, form.NewParser(lagos, clk), time.Hour, clk, zap.NewNop().Sugar())
	b.SelfUserName = "StudyBot"
	b.RetryAttempts = 1
	b.RetryDelay = 0

	return &fixture{api: api, store: store, bot: b, clk: clk, msgID: 1}
}

func group(id int64) *tg.Chat {
	return &tg.Chat{ID: id, Type: "supergroup"}
}

func private(id int64) *tg.Chat {
	return &tg.Chat{ID: id, Type: "private"}
}

func (f *fixture) message(chat *tg.Chat, from int64, text string) *tg.Message {
	f.msgID++
	m := &tg.Message{
		MessageID: f.msgID,
		From:      &tg.User{ID: from},
		Chat:      chat,
		Text:      text,
	}

	if strings.HasPrefix(text, "/") {
		end := strings.IndexAny(text, " \n")
		if end < 0 {
			end = len(text)
		}
		m.Entities = []tg.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return m
}

// send delivers a message to the bot the way the update loop would.
func (f *fixture) send(chat *tg.Chat, from int64, text string) *tg.Message {
	m := f.message(chat, from, text)
	f.bot.HandleUpdate(context.Background(), tg.Update{Message: m})
	return m
}

// replyTo delivers a reply to the message with the given ID.
func (f *fixture) replyTo(chat *tg.Chat, from int64, promptID int, text string) *tg.Message {
	m := f.message(chat, from, text)
	m.ReplyToMessage = &tg.Message{MessageID: promptID, Chat: chat}
	f.bot.HandleUpdate(context.Background(), tg.Update{Message: m})
	return m
}

func (f *fixture) press(chat *tg.Chat, from int64, msgID int, data string) {
	f.bot.HandleUpdate(context.Background(), tg.Update{CallbackQuery: &tg.CallbackQuery{
		ID:      "cbq",
		From:    &tg.User{ID: from},
		Message: &tg.Message{MessageID: msgID, Chat: chat},
		Data:    data,
	}})
}

func (f *fixture) assignments(t *testing.T, chatID int64) []db.Assignment {
	t.Helper()

	set, err := db.GetByChat(context.Background(), f.store, chatID)
	require.NoError(t, err)
	return db.SortByDeadline(set)
}

func (f *fixture) add(t *testing.T, chatID int64, code string, deadline time.Time) string {
	t.Helper()

	id, err := f.store.Create(context.Background(), &db.Assignment{
		Details: db.Details{
			CourseCode:  code,
			Title:       code + " essay",
			Deadline:    deadline,
			Description: "two pages",
		},
		ChatID:    chatID,
		CreatedIn: chatID,
	})
	require.NoError(t, err)
	return id
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
