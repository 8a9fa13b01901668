package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeChatID(t *testing.T) {
	id, err := NormalizeChatID("-1001234567890")
	require.NoError(t, err)
	require.Equal(t, int64(-1001234567890), id)

	id, err = NormalizeChatID("  42  ")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	_, err = NormalizeChatID("")
	require.ErrorIs(t, err, ErrInvalidChatID)

	_, err = NormalizeChatID("not-a-number")
	require.ErrorIs(t, err, ErrInvalidChatID)
}

func TestGroupOperational(t *testing.T) {
	require.True(t, TelegramGroup{BotStatus: BotStatusConnected}.Operational())
	require.False(t, TelegramGroup{BotStatus: BotStatusPending}.Operational())
	require.False(t, TelegramGroup{BotStatus: BotStatusInactive}.Operational())
	require.False(t, TelegramGroup{BotStatus: BotStatusMigrationNeeded}.Operational())
}

func TestAdminRightCurrent(t *testing.T) {
	now := time.Now()
	fresh := AdminRight{IsAdmin: true, ExpiresAt: now.Add(time.Hour)}
	expired := AdminRight{IsAdmin: true, ExpiresAt: now.Add(-time.Minute)}

	require.True(t, fresh.Current(now))
	// The stored flags are irrelevant once the row has expired.
	require.False(t, expired.Current(now))
	require.False(t, AdminRight{IsOwner: true, ExpiresAt: now}.Current(now))
}
