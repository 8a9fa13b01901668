package models

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bot connection states for a Telegram group. Anything other than
// BotStatusConnected means the group is not operational yet.
const (
	BotStatusConnected       = "connected"
	BotStatusPending         = "pending"
	BotStatusInactive        = "inactive"
	BotStatusMigrationNeeded = "migration_needed"
)

// Mapping status values for an organization's claim over a group.
const (
	MappingStatusActive   = "active"
	MappingStatusArchived = "archived"
)

var ErrInvalidChatID = errors.New("invalid telegram chat id")

// TelegramGroup is the local record of one chat on Telegram, keyed by the
// canonical chat id. At most one row exists per chat regardless of how many
// organizations reference it.
type TelegramGroup struct {
	ChatID      int64     `db:"tg_chat_id" json:"tg_chat_id"`
	Title       string    `db:"title" json:"title"`
	BotStatus   string    `db:"bot_status" json:"bot_status"`
	MemberCount int       `db:"member_count" json:"member_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Operational reports whether the bot connection allows acting on the group.
func (g TelegramGroup) Operational() bool {
	return g.BotStatus == BotStatusConnected
}

// GroupMapping links an organization to a Telegram group. Mappings are never
// hard-deleted; detaching flips Status to archived and records the reason.
// ChatID is stored as text because legacy rows predate the bigint migration.
type GroupMapping struct {
	ID             int64          `db:"id" json:"id"`
	OrgID          uuid.UUID      `db:"org_id" json:"org_id"`
	ChatID         string         `db:"tg_chat_id" json:"tg_chat_id"`
	Status         string         `db:"status" json:"status"`
	ArchivedReason sql.NullString `db:"archived_reason" json:"archived_reason,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// ResolvedGroup is a TelegramGroup viewed from one organization's standpoint.
// IsPrimary is always true relative to the querying organization; MappedOrgIDs
// lists every organization holding any mapping to the chat and is purely
// informational, never an authorization input.
type ResolvedGroup struct {
	TelegramGroup
	IsPrimary    bool        `json:"is_primary"`
	MappedOrgIDs []uuid.UUID `json:"mapped_org_ids"`
}

// NormalizeChatID converts a stored chat id, which may be a canonical number
// or a legacy textual value, into the canonical int64 form.
func NormalizeChatID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidChatID
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidChatID
	}
	return id, nil
}
