// Package reminder runs the daily assignment sweep.
package reminder

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"studybot/bots/Assignments/timezone"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Job is what runs at every trigger.
type Job func(ctx context.Context)

// Manager fires the job at configured times of day in its location. Each
// trigger fires at most once per day.
type Manager struct {
	mux    sync.Mutex
	queue  *triggerQueue
	job    Job
	loc    *time.Location
	tick   time.Duration
	clk    clock.Clock
	logger *zap.SugaredLogger
}

func NewManager(job Job, loc *time.Location, tick time.Duration, clk clock.Clock, l *zap.SugaredLogger) *Manager {
	return &Manager{
		queue:  newTriggerQueue(),
		job:    job,
		loc:    loc,
		tick:   tick,
		clk:    clk,
		logger: l,
	}
}

// Schedule adds a daily trigger at HH:MM. A time that has already passed today
// first fires tomorrow.
func (m *Manager) Schedule(at string) error {
	hh, mm, err := timezone.ParseClock(at)
	if err != nil {
		return errors.Wrapf(err, "bad reminder time %q", at)
	}

	name := fmt.Sprintf("%02d:%02d", hh, mm)

	m.mux.Lock()
	defer m.mux.Unlock()

	if m.queue.Has(name) {
		return nil
	}

	t := &trigger{
		name: name,
		hh:   hh,
		mm:   mm,
		at:   timezone.NextOccurrence(m.clk.Now(), hh, mm, m.loc).UTC(),
	}
	heap.Push(m.queue, t)

	m.logger.Infow("reminder scheduled", "at", name, "next", t.at)
	return nil
}

// Next returns the time of the earliest trigger.
func (m *Manager) Next() (time.Time, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()

	t := m.queue.Peek()
	if t == nil {
		return time.Time{}, false
	}
	return t.at, true
}

// Run checks triggers every tick until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fireDue(ctx)
		}
	}
}

// fireDue runs the job once if any trigger is due, moves every due trigger to
// its next day and returns how many were due.
func (m *Manager) fireDue(ctx context.Context) int {
	now := m.clk.Now()

	m.mux.Lock()
	var due []*trigger
	for {
		t := m.queue.Peek()
		if t == nil || now.Before(t.at) {
			break
		}
		heap.Pop(m.queue)
		due = append(due, t)
	}
	for _, t := range due {
		t.at = timezone.NextOccurrence(now, t.hh, t.mm, m.loc).UTC()
		heap.Push(m.queue, t)
	}
	m.mux.Unlock()

	if len(due) > 0 {
		m.runJob(ctx)
	}
	return len(due)
}

func (m *Manager) runJob(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorw("reminder sweep panicked", "panic", r)
		}
	}()

	m.job(ctx)
}
