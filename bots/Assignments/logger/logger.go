package logger

import "go.uber.org/zap"

// ForChat returns l with the chat and the user attached to every entry.
func ForChat(l *zap.SugaredLogger, chat, usr int64) *zap.SugaredLogger {
	return l.With("chat", chat, "usr", usr)
}
