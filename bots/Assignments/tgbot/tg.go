package tgbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studybot/bot"
	"studybot/bots/Assignments/correlator"
	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/form"
	"studybot/bots/Assignments/logger"
	"studybot/bots/Assignments/metrics"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BotAPI is the part of the Telegram Bot API the bot talks to.
type BotAPI interface {
	Send(c tg.Chattable) (tg.Message, error)
	Request(c tg.Chattable) (*tg.APIResponse, error)
	GetChatAdministrators(config tg.ChatAdministratorsConfig) ([]tg.ChatMember, error)
}

// need is a set of preconditions a command or a button declares.
type need uint8

const (
	needGroup need = 1 << iota
	needAdmin
	needBotAdmin
)

var (
	errNeedGroup    = errors.New("not a group chat")
	errNeedAdmin    = errors.New("user isn't an admin")
	errNeedBotAdmin = errors.New("bot isn't an admin")
)

const (
	txtWelcomePrivate = "Welcome to the Assignments Bot!\nI'm here to help admins manage assignments. Please add me to a group and make me an admin to get started."
	txtWelcomeGroup   = "Hi everyone! I'm here to help admins manage assignments and I'll remind you about deadlines every day. Use /help to see what I can do."
	txtHelpPrivate    = "I'm here to help admins manage assignments. Please add me to a group to get started."
	txtHelpGroup      = `I'm here to help admins manage assignments. Commands:
/addassignment - add an assignment (admins)
/getassignments - list pending assignments
/manageassignments - view, edit or delete assignments (admins)`
	txtUnknownCommand  = "I don't know this command. Use /help to list commands I know"
	txtNeedGroup       = "Please add me to a group to get started."
	txtTryLater        = "Something went wrong on my side. Please try again later."
	txtNotOriginator   = "It seems you did not initiate this action."
	txtNotAdminAnymore = "You are not an admin of this group anymore, so I dropped this action."
	txtNoAssignments   = "No assignments found."
	txtNotFound        = "I couldn't find this assignment. It may have been deleted already."

	txtFormFields = `<b>Course Code</b>: course code
<b>Title</b>: assignment title
<b>Deadline</b>: dd/mm/yy
<b>Description</b>: assignment description`
	txtInlineFormat = "Please write the assignment details in the following format:\n\n/addassignment\n" + txtFormFields
	txtCreatePrompt = "Please reply to this message with the assignment details in the following format:\n\n" + txtFormFields
	txtEditPrompt   = "Please reply to this message with the new assignment details in the following format. All fields must be re-entered for update.\n\n" + txtFormFields
	txtRetryPrompt  = "Please reply to this message with the corrected details."
	txtFieldCount   = "I need all four fields: course code, title, deadline and description."
	txtDeadlinePast = "Please re-enter the assignment with a future deadline."
	txtDeadlineBad  = "Please re-enter the assignment with the deadline in the right format: dd/mm/yy"
	txtCreated      = "Assignment has been created successfully."
	txtUpdated      = "Assignment has been updated successfully."
	txtDeleted      = "Assignment has been deleted successfully."
	txtFailedCreate = "An error occurred while setting assignment. Please try again later."
	txtFailedFetch  = "An error occurred while fetching assignments. Please try again later."
	txtFailedUpdate = "An error occurred while updating assignment. Please try again later."
	txtFailedDelete = "An error occurred while deleting assignment. Please try again later."

	fmtNeedAdmin    = "You must be an admin to %s assignments."
	fmtNeedBotAdmin = "Please make me an admin to %s assignments."
	fmtFound        = "Found %d assignments. Listing all."
	fmtInvalidField = "The %s is either empty or too long. Please check it and try again."
)

var fieldNames = map[string]string{
	"CourseCode":  "course code",
	"Title":       "title",
	"Deadline":    "deadline",
	"Description": "description",
}

type TBot struct {
	API           BotAPI
	SelfID        int64
	SelfUserName  string
	Store         db.Store
	Parser        *form.Parser
	Admins        *Admins
	Replies       *correlator.Table
	Metrics       *metrics.Metrics
	Logger        *zap.SugaredLogger
	RetryDelay    time.Duration
	RetryAttempts int
}

// NewTBot wires the dispatcher. Continuations left without a reply for longer
// than ttl are forgotten.
func NewTBot(api BotAPI, self int64, s db.Store, p *form.Parser, ttl time.Duration, clk clock.Clock, l *zap.SugaredLogger) *TBot {
	admins := NewAdmins(api, self)
	return &TBot{
		API:           api,
		SelfID:        self,
		Store:         s,
		Parser:        p,
		Admins:        admins,
		Replies:       correlator.New(admins, ttl, clk),
		Logger:        l,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// HandleUpdate routes an update. Replies to pending prompts go to their
// continuation even when they look like a command.
func (b *TBot) HandleUpdate(ctx context.Context, u tg.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.HandleCallback(ctx, u.CallbackQuery)

	case u.Message != nil && u.Message.Chat != nil && u.Message.From != nil:
		msg := u.Message
		if msg.ReplyToMessage != nil && b.Replies.Pending(msg.Chat.ID, msg.ReplyToMessage.MessageID) {
			b.HandleReply(msg)
			return
		}
		if msg.IsCommand() {
			b.HandleCommand(ctx, msg)
		}
	}
}

// HandleReply hands a reply over to the continuation waiting for it.
func (b *TBot) HandleReply(msg *tg.Message) {
	outcome, err := b.Replies.Take(msg)
	b.Metrics.Reply(outcome.String())

	switch outcome {
	case correlator.NotOriginator:
		b.reply(msg, txtNotOriginator)
	case correlator.NotAdmin:
		b.reply(msg, txtNotAdminAnymore)
	case correlator.Failed:
		logger.ForChat(b.Logger, msg.Chat.ID, msg.From.ID).Errorw("failed checking admin rights for a reply", "err", err)
		b.reply(msg, txtTryLater)
	}
}

// Notify sends a message to the chat. It lets the reminder sweep deliver
// through the bot.
func (b *TBot) Notify(chatID int64, txt string) error {
	_, err := b.SendMessage(chatID, txt, 0, nil)
	return err
}

func (b *TBot) SendMessage(chatID int64, txt string, replyTo int, markup any) (tg.Message, error) {
	m := tg.NewMessage(chatID, txt)
	if replyTo > 0 {
		m.ReplyToMessageID = replyTo
	}
	m.ParseMode = tg.ModeHTML
	m.DisableWebPagePreview = true
	if markup != nil {
		m.ReplyMarkup = markup
	}

	var sent tg.Message
	var err error
	bot.RobustExecute(b.RetryAttempts, b.RetryDelay, func() bool {
		sent, err = b.API.Send(m)
		return err == nil
	})
	if err != nil {
		b.Logger.Errorw("failed sending message", "chat", chatID, "err", err)
	}
	return sent, err
}

func (b *TBot) reply(msg *tg.Message, txt string) {
	_, _ = b.SendMessage(msg.Chat.ID, txt, msg.MessageID, nil)
}

// prompt asks the user for input with a forced reply and waits for the reply
// to the prompt.
func (b *TBot) prompt(chatID int64, replyTo int, originator int64, txt string, h correlator.Handler) error {
	sent, err := b.SendMessage(chatID, txt, replyTo, tg.ForceReply{ForceReply: true, Selective: true})
	if err != nil {
		return err
	}

	b.Replies.Register(chatID, sent.MessageID, originator, h)
	return nil
}

func (b *TBot) request(c tg.Chattable) error {
	var err error
	bot.RobustExecute(b.RetryAttempts, b.RetryDelay, func() bool {
		_, err = b.API.Request(c)
		return err == nil
	})
	return err
}

// authorize checks preconditions in order: group chat, then the user, then the
// bot being an admin.
func (b *TBot) authorize(chat *tg.Chat, usr int64, n need) error {
	if n&needGroup != 0 && !isGroup(chat) {
		return errNeedGroup
	}
	if n&(needAdmin|needBotAdmin) == 0 {
		return nil
	}

	admins, err := b.Admins.List(chat.ID)
	if err != nil {
		return err
	}
	if n&needAdmin != 0 && !admins[usr] {
		return errNeedAdmin
	}
	if n&needBotAdmin != 0 && !admins[b.SelfID] {
		return errNeedBotAdmin
	}
	return nil
}

// denial explains why authorize failed.
func denial(err error, verb string) string {
	switch {
	case errors.Is(err, errNeedGroup):
		return txtNeedGroup
	case errors.Is(err, errNeedAdmin):
		return fmt.Sprintf(fmtNeedAdmin, verb)
	case errors.Is(err, errNeedBotAdmin):
		return fmt.Sprintf(fmtNeedBotAdmin, verb)
	}
	return txtTryLater
}

// result labels an authorize failure for metrics.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errNeedGroup), errors.Is(err, errNeedAdmin), errors.Is(err, errNeedBotAdmin):
		return "denied"
	}
	return "error"
}

func isGroup(chat *tg.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}

// inputProblem explains what's wrong with the entered details.
func inputProblem(err error) string {
	var fe *form.FieldError
	switch {
	case errors.Is(err, form.ErrDeadlinePast):
		return txtDeadlinePast
	case errors.Is(err, form.ErrDeadlineFormat):
		return txtDeadlineBad
	case errors.As(err, &fe):
		name, ok := fieldNames[fe.Field]
		if !ok {
			name = strings.ToLower(fe.Field)
		}
		return fmt.Sprintf(fmtInvalidField, name)
	}
	return txtFieldCount
}
