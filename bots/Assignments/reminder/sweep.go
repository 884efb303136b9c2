package reminder

import (
	"context"
	"sort"
	"time"

	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/format"
	"studybot/bots/Assignments/timezone"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

// Store is the part of the assignment store the sweep needs.
type Store interface {
	GetAll(ctx context.Context) (map[string]db.Assignment, error)
	Delete(ctx context.Context, id string) error
}

// Notifier delivers a message to a chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Report is the result of one sweep.
type Report struct {
	Sent    []int64 // chats that got a reminder
	Failed  []int64 // chats the reminder couldn't be delivered to
	Expired []db.Assignment
	Took    time.Duration
}

// Sweeper removes expired assignments and reminds every chat of the rest.
type Sweeper struct {
	store         Store
	notifier      Notifier
	loc           *time.Location
	clk           clock.Clock
	notifyExpired bool
	logger        *zap.SugaredLogger
}

func NewSweeper(s Store, n Notifier, loc *time.Location, clk clock.Clock, notifyExpired bool, l *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		store:         s,
		notifier:      n,
		loc:           loc,
		clk:           clk,
		notifyExpired: notifyExpired,
		logger:        l,
	}
}

// Sweep runs one pass over all stored assignments. It never stops half way:
// failures are logged and the rest of the chats are still served.
func (s *Sweeper) Sweep(ctx context.Context) Report {
	start := s.clk.Now()
	var report Report

	all, err := s.store.GetAll(ctx)
	if err != nil {
		s.logger.Errorw("failed loading assignments for reminders", "err", err)
		return report
	}

	byChat := make(map[int64][]format.Due)
	for _, a := range db.SortByDeadline(all) {
		days := timezone.DaysUntil(a.Deadline, start, s.loc)
		if days < 0 {
			s.expire(ctx, a)
			report.Expired = append(report.Expired, a)
			continue
		}
		byChat[a.ChatID] = append(byChat[a.ChatID], format.Due{Assignment: a, Days: days})
	}

	chats := make([]int64, 0, len(byChat))
	for chatID := range byChat {
		chats = append(chats, chatID)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })

	for _, chatID := range chats {
		err = s.remind(chatID, byChat[chatID])
		if err != nil {
			s.logger.Errorw("failed sending reminder", "chat", chatID, "err", err)
			report.Failed = append(report.Failed, chatID)
			continue
		}
		report.Sent = append(report.Sent, chatID)
	}

	report.Took = s.clk.Now().Sub(start)
	s.logger.Infow("reminder sweep done",
		"sent", len(report.Sent), "failed", len(report.Failed), "expired", len(report.Expired))
	return report
}

// remind sends the chat's reminder, which may take several messages. It stops
// at the first message that can't be delivered.
func (s *Sweeper) remind(chatID int64, items []format.Due) error {
	for _, page := range format.Reminder(items) {
		if err := s.notifier.Notify(chatID, page); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweeper) expire(ctx context.Context, a db.Assignment) {
	err := s.store.Delete(ctx, a.ID)
	if err != nil {
		s.logger.Errorw("failed removing expired assignment", "id", a.ID, "chat", a.ChatID, "err", err)
		return
	}

	if !s.notifyExpired {
		return
	}

	err = s.notifier.Notify(a.ChatID, format.Expired(a))
	if err != nil {
		s.logger.Errorw("failed sending expiry notice", "id", a.ID, "chat", a.ChatID, "err", err)
	}
}
