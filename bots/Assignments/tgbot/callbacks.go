package tgbot

import (
	"context"
	"strings"

	"studybot/bots/Assignments/correlator"
	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/format"
	"studybot/bots/Assignments/logger"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Button data is the action prefix followed by the assignment ID.
const (
	cbqView   = "VIEW_"
	cbqEdit   = "EDIT_"
	cbqDelete = "DELETE_"
)

type action struct {
	prefix string
	need   need
	verb   string
	run    func(b *TBot, ctx context.Context, cbq *tg.CallbackQuery, a *db.Assignment) string
}

var actions = []action{
	{prefix: cbqView, need: needGroup | needAdmin, verb: "view", run: (*TBot).view},
	{prefix: cbqEdit, need: needGroup | needAdmin, verb: "edit", run: (*TBot).edit},
	{prefix: cbqDelete, need: needGroup | needAdmin | needBotAdmin, verb: "delete", run: (*TBot).remove},
}

func parseCallback(data string) (action, string, bool) {
	for _, a := range actions {
		if id, ok := strings.CutPrefix(data, a.prefix); ok && id != "" {
			return a, id, true
		}
	}
	return action{}, "", false
}

// HandleCallback runs the action of a pressed button. The query is always
// answered, denials are shown as alerts.
func (b *TBot) HandleCallback(ctx context.Context, cbq *tg.CallbackQuery) {
	act, id, ok := parseCallback(cbq.Data)
	if !ok || cbq.From == nil || cbq.Message == nil || cbq.Message.Chat == nil {
		b.answer(cbq, "", false)
		return
	}

	name := strings.TrimSuffix(act.prefix, "_")
	chat := cbq.Message.Chat
	l := logger.ForChat(b.Logger, chat.ID, cbq.From.ID)

	if err := b.authorize(chat, cbq.From.ID, act.need); err != nil {
		if result(err) == "error" {
			l.Errorw("failed checking preconditions", "action", name, "err", err)
		}
		b.answer(cbq, denial(err, act.verb), true)
		b.Metrics.Callback(name, result(err))
		return
	}

	a, err := b.Store.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) || (err == nil && a.ChatID != chat.ID) {
		b.answer(cbq, txtNotFound, true)
		b.Metrics.Callback(name, "not_found")
		return
	}
	if err != nil {
		l.Errorw("failed getting assignment", "id", id, "err", err)
		b.answer(cbq, txtFailedFetch, true)
		b.Metrics.Callback(name, "error")
		return
	}

	b.Metrics.Callback(name, act.run(b, ctx, cbq, a))
	b.answer(cbq, "", false)
}

func (b *TBot) answer(cbq *tg.CallbackQuery, txt string, alert bool) {
	c := tg.NewCallback(cbq.ID, txt)
	c.ShowAlert = alert
	if err := b.request(c); err != nil {
		b.Logger.Warnw("failed answering callback query", "err", err)
	}
}

func (b *TBot) view(_ context.Context, cbq *tg.CallbackQuery, a *db.Assignment) string {
	if _, err := b.SendMessage(cbq.Message.Chat.ID, format.Single(*a), cbq.Message.MessageID, nil); err != nil {
		return "error"
	}
	return "ok"
}

// edit asks for the new details. The assignment is replaced as a whole once the
// admin who pressed the button replies.
func (b *TBot) edit(ctx context.Context, cbq *tg.CallbackQuery, a *db.Assignment) string {
	err := b.prompt(cbq.Message.Chat.ID, cbq.Message.MessageID, cbq.From.ID, txtEditPrompt, b.updateFromReply(ctx, a.ID))
	if err != nil {
		return "error"
	}
	return "prompted"
}

func (b *TBot) updateFromReply(ctx context.Context, id string) correlator.Handler {
	var h correlator.Handler
	h = func(reply *tg.Message) {
		l := logger.ForChat(b.Logger, reply.Chat.ID, reply.From.ID)

		d, err := b.Parser.Lines(replyText(reply))
		if err != nil {
			b.reprompt(reply, err, h)
			return
		}

		err = b.Store.Update(ctx, id, d)
		if errors.Is(err, db.ErrNotFound) {
			b.reply(reply, txtNotFound)
			return
		}
		if err != nil {
			l.Errorw("failed updating assignment", "id", id, "err", err)
			b.reply(reply, txtFailedUpdate)
			return
		}

		l.Infow("assignment updated", "id", id, "title", d.Title)
		b.reply(reply, txtUpdated)
	}
	return h
}

// remove deletes the assignment and the message with its buttons.
func (b *TBot) remove(ctx context.Context, cbq *tg.CallbackQuery, a *db.Assignment) string {
	chatID := cbq.Message.Chat.ID
	l := logger.ForChat(b.Logger, chatID, cbq.From.ID)

	if err := b.Store.Delete(ctx, a.ID); err != nil {
		l.Errorw("failed deleting assignment", "id", a.ID, "err", err)
		_, _ = b.SendMessage(chatID, txtFailedDelete, cbq.Message.MessageID, nil)
		return "error"
	}

	l.Infow("assignment deleted", "id", a.ID, "title", a.Title)
	_, _ = b.SendMessage(chatID, txtDeleted, 0, nil)

	if err := b.request(tg.NewDeleteMessage(chatID, cbq.Message.MessageID)); err != nil {
		l.Warnw("failed removing buttons message", "err", err)
	}
	return "ok"
}
