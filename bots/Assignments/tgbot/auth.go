package tgbot

import (
	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Admins answers admin questions from the live administrator list of a chat.
// Nothing is cached: demoted admins lose their rights immediately.
type Admins struct {
	api  BotAPI
	self int64
}

func NewAdmins(api BotAPI, self int64) *Admins {
	return &Admins{api: api, self: self}
}

// List returns the IDs of the chat's administrators.
func (a *Admins) List(chatID int64) (map[int64]bool, error) {
	members, err := a.api.GetChatAdministrators(tg.ChatAdministratorsConfig{
		ChatConfig: tg.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed getting chat administrators")
	}

	ids := make(map[int64]bool, len(members))
	for _, m := range members {
		if m.User != nil {
			ids[m.User.ID] = true
		}
	}
	return ids, nil
}

func (a *Admins) IsAdmin(chatID, usr int64) (bool, error) {
	ids, err := a.List(chatID)
	if err != nil {
		return false, err
	}
	return ids[usr], nil
}

func (a *Admins) BotIsAdmin(chatID int64) (bool, error) {
	return a.IsAdmin(chatID, a.self)
}
