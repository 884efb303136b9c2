// Package correlator matches replies to the prompts that asked for them.
//
// A handler that needs more input from a user sends a prompt and registers a
// continuation under the prompt's chat and message ID. The first reply to that
// prompt consumes the continuation. The handler runs only when the reply comes
// from the user who started the action and that user is still an admin of the
// chat. A handler that wants another round registers a fresh continuation.
package correlator

import (
	"sync"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
)

// Outcome tells what happened to a reply.
type Outcome int

const (
	// NoContinuation means the reply doesn't target a pending prompt.
	NoContinuation Outcome = iota
	// Handled means the continuation ran.
	Handled
	// NotOriginator means someone else replied to the prompt.
	NotOriginator
	// NotAdmin means the originator lost admin rights since the prompt.
	NotAdmin
	// Failed means admin rights couldn't be checked.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NoContinuation:
		return "none"
	case Handled:
		return "handled"
	case NotOriginator:
		return "not_originator"
	case NotAdmin:
		return "not_admin"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Handler continues an action with the user's reply. Arguments the action
// needs are captured by the closure.
type Handler func(reply *tg.Message)

// Authorizer checks admin rights at the moment a reply arrives.
type Authorizer interface {
	IsAdmin(chatID, usr int64) (bool, error)
}

type key struct {
	chat int64
	msg  int
}

type continuation struct {
	originator int64
	handler    Handler
	at         time.Time
}

// Table keeps pending continuations. It's safe for concurrent use.
type Table struct {
	mux     sync.Mutex
	pending map[key]continuation
	auth    Authorizer
	ttl     time.Duration // zero keeps continuations until consumed
	clk     clock.Clock
}

func New(auth Authorizer, ttl time.Duration, clk clock.Clock) *Table {
	return &Table{
		pending: make(map[key]continuation),
		auth:    auth,
		ttl:     ttl,
		clk:     clk,
	}
}

// Register stores a continuation for the prompt. A continuation registered
// earlier for the same prompt is replaced.
func (t *Table) Register(chatID int64, promptID int, originator int64, h Handler) {
	t.mux.Lock()
	defer t.mux.Unlock()

	t.pruneLocked()
	t.pending[key{chatID, promptID}] = continuation{
		originator: originator,
		handler:    h,
		at:         t.clk.Now(),
	}
}

// Take consumes the continuation the reply targets and runs it if the sender
// is allowed to continue. The continuation is removed whatever the outcome.
func (t *Table) Take(reply *tg.Message) (Outcome, error) {
	if reply == nil || reply.Chat == nil || reply.ReplyToMessage == nil {
		return NoContinuation, nil
	}

	k := key{reply.Chat.ID, reply.ReplyToMessage.MessageID}

	t.mux.Lock()
	c, ok := t.pending[k]
	if ok {
		delete(t.pending, k)
	}
	expired := ok && t.expired(c)
	t.mux.Unlock()

	if !ok || expired {
		return NoContinuation, nil
	}

	if reply.From == nil || reply.From.ID != c.originator {
		return NotOriginator, nil
	}

	isAdmin, err := t.auth.IsAdmin(reply.Chat.ID, reply.From.ID)
	if err != nil {
		return Failed, err
	}
	if !isAdmin {
		return NotAdmin, nil
	}

	c.handler(reply)
	return Handled, nil
}

// Pending reports whether a continuation waits for a reply to the prompt.
func (t *Table) Pending(chatID int64, promptID int) bool {
	t.mux.Lock()
	defer t.mux.Unlock()

	c, ok := t.pending[key{chatID, promptID}]
	return ok && !t.expired(c)
}

// Len returns the number of stored continuations, expired ones included.
func (t *Table) Len() int {
	t.mux.Lock()
	defer t.mux.Unlock()

	return len(t.pending)
}

// Prune drops expired continuations and returns how many were dropped.
func (t *Table) Prune() int {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.pruneLocked()
}

func (t *Table) pruneLocked() int {
	if t.ttl <= 0 {
		return 0
	}

	n := 0
	for k, c := range t.pending {
		if t.expired(c) {
			delete(t.pending, k)
			n++
		}
	}
	return n
}

func (t *Table) expired(c continuation) bool {
	return t.ttl > 0 && t.clk.Now().Sub(c.at) > t.ttl
}
