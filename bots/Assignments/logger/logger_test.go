package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestForChat(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	ForChat(zap.New(core).Sugar(), -100, 42).Infow("assignment created", "title", "Essay")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(-100), fields["chat"])
	assert.Equal(t, int64(42), fields["usr"])
	assert.Equal(t, "Essay", fields["title"])
}
