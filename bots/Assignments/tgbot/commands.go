package tgbot

import (
	"context"
	"fmt"
	"strings"

	"studybot/bots/Assignments/correlator"
	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/format"
	"studybot/bots/Assignments/logger"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type command struct {
	need need
	verb string // what the admin denial says the command does
	run  func(b *TBot, ctx context.Context, msg *tg.Message) string
}

var commands = map[string]command{
	"start":             {run: (*TBot).start},
	"help":              {run: (*TBot).help},
	"addassignment":     {need: needGroup | needAdmin | needBotAdmin, verb: "set", run: (*TBot).addAssignment},
	"getassignments":    {need: needGroup, run: (*TBot).getAssignments},
	"manageassignments": {need: needGroup | needAdmin, verb: "edit", run: (*TBot).manageAssignments},
	"editassignment":    {need: needGroup | needAdmin, verb: "edit", run: (*TBot).manageAssignments},
}

// HandleCommand checks the command's preconditions and runs it. Unknown
// commands are ignored in groups, other bots may serve them.
func (b *TBot) HandleCommand(ctx context.Context, msg *tg.Message) {
	if b.forOtherBot(msg) {
		return
	}

	name := msg.Command()
	cmd, ok := commands[name]
	if !ok {
		if msg.Chat.IsPrivate() {
			b.reply(msg, txtUnknownCommand)
		}
		return
	}

	if err := b.authorize(msg.Chat, msg.From.ID, cmd.need); err != nil {
		if result(err) == "error" {
			logger.ForChat(b.Logger, msg.Chat.ID, msg.From.ID).Errorw("failed checking preconditions", "cmd", name, "err", err)
		}
		b.reply(msg, denial(err, cmd.verb))
		b.Metrics.Command(name, result(err))
		return
	}

	b.Metrics.Command(name, cmd.run(b, ctx, msg))
}

// forOtherBot tells if the command is addressed to another bot, as in
// /help@OtherBot.
func (b *TBot) forOtherBot(msg *tg.Message) bool {
	_, to, ok := strings.Cut(msg.CommandWithAt(), "@")
	return ok && b.SelfUserName != "" && !strings.EqualFold(to, b.SelfUserName)
}

func (b *TBot) start(_ context.Context, msg *tg.Message) string {
	if isGroup(msg.Chat) {
		b.reply(msg, txtWelcomeGroup)
	} else {
		b.reply(msg, txtWelcomePrivate)
	}
	return "ok"
}

func (b *TBot) help(_ context.Context, msg *tg.Message) string {
	if isGroup(msg.Chat) {
		b.reply(msg, txtHelpGroup)
	} else {
		b.reply(msg, txtHelpPrivate)
	}
	return "ok"
}

// addAssignment creates an assignment from the command arguments. Without
// arguments it asks for the details and waits for a reply.
func (b *TBot) addAssignment(ctx context.Context, msg *tg.Message) string {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		if err := b.prompt(msg.Chat.ID, msg.MessageID, msg.From.ID, txtCreatePrompt, b.createFromReply(ctx)); err != nil {
			return "error"
		}
		return "prompted"
	}

	d, err := b.Parser.Inline(args)
	if err != nil {
		b.reply(msg, inputProblem(err)+"\n\n"+txtInlineFormat)
		return "invalid"
	}

	return b.create(ctx, msg, d)
}

func (b *TBot) createFromReply(ctx context.Context) correlator.Handler {
	var h correlator.Handler
	h = func(reply *tg.Message) {
		if err := b.authorize(reply.Chat, reply.From.ID, needBotAdmin); err != nil {
			if result(err) == "error" {
				logger.ForChat(b.Logger, reply.Chat.ID, reply.From.ID).Errorw("failed checking bot admin rights", "err", err)
			}
			b.reply(reply, denial(err, "set"))
			return
		}

		d, err := b.Parser.Lines(replyText(reply))
		if err != nil {
			b.reprompt(reply, err, h)
			return
		}
		b.create(ctx, reply, d)
	}
	return h
}

func (b *TBot) create(ctx context.Context, msg *tg.Message, d db.Details) string {
	l := logger.ForChat(b.Logger, msg.Chat.ID, msg.From.ID)

	a := &db.Assignment{Details: d, ChatID: msg.Chat.ID, CreatedIn: msg.Chat.ID}
	id, err := b.Store.Create(ctx, a)
	if err != nil {
		l.Errorw("failed creating assignment", "err", err)
		b.reply(msg, txtFailedCreate)
		return "error"
	}

	l.Infow("assignment created", "id", id, "title", a.Title)
	b.reply(msg, txtCreated)
	return "ok"
}

// reprompt explains what was wrong with the reply and waits for another one.
func (b *TBot) reprompt(reply *tg.Message, cause error, h correlator.Handler) {
	txt := inputProblem(cause) + " " + txtRetryPrompt + "\n\n" + txtFormFields
	if err := b.prompt(reply.Chat.ID, reply.MessageID, reply.From.ID, txt, h); err != nil {
		logger.ForChat(b.Logger, reply.Chat.ID, reply.From.ID).Errorw("failed asking for corrected details", "err", err)
	}
}

func (b *TBot) getAssignments(ctx context.Context, msg *tg.Message) string {
	set, err := db.GetByChat(ctx, b.Store, msg.Chat.ID)
	if err != nil {
		logger.ForChat(b.Logger, msg.Chat.ID, msg.From.ID).Errorw("failed listing assignments", "err", err)
		b.reply(msg, txtFailedFetch)
		return "error"
	}

	if len(set) == 0 {
		b.reply(msg, txtNoAssignments)
		return "ok"
	}

	for _, page := range format.Listing(db.SortByDeadline(set)) {
		b.reply(msg, page)
	}
	return "ok"
}

// manageAssignments sends every assignment of the chat as a separate message
// with buttons to view, edit or delete it.
func (b *TBot) manageAssignments(ctx context.Context, msg *tg.Message) string {
	set, err := db.GetByChat(ctx, b.Store, msg.Chat.ID)
	if err != nil {
		logger.ForChat(b.Logger, msg.Chat.ID, msg.From.ID).Errorw("failed listing assignments", "err", err)
		b.reply(msg, txtFailedFetch)
		return "error"
	}

	if len(set) == 0 {
		b.reply(msg, txtNoAssignments)
		return "ok"
	}

	b.reply(msg, fmt.Sprintf(fmtFound, len(set)))
	for _, a := range db.SortByDeadline(set) {
		_, _ = b.SendMessage(msg.Chat.ID, format.Manage(a), msg.MessageID, manageKeyboard(a.ID))
	}
	return "ok"
}

func manageKeyboard(id string) tg.InlineKeyboardMarkup {
	return tg.NewInlineKeyboardMarkup(
		tg.NewInlineKeyboardRow(
			tg.NewInlineKeyboardButtonData("Edit", cbqEdit+id),
			tg.NewInlineKeyboardButtonData("Delete", cbqDelete+id),
		),
		tg.NewInlineKeyboardRow(
			tg.NewInlineKeyboardButtonData("View", cbqView+id),
		),
	)
}

// replyText drops a leading command, if the user started the reply with one.
func replyText(msg *tg.Message) string {
	if msg.IsCommand() {
		return msg.CommandArguments()
	}
	return msg.Text
}
