package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"group-sync-service/internal/models"
)

var ErrGroupNotFound = errors.New("telegram group not found")

// GroupRepository abstracts telegram group persistence.
type GroupRepository interface {
	GetGroup(ctx context.Context, chatID int64) (models.TelegramGroup, error)
	GetByMappingChatIDs(ctx context.Context, rawChatIDs []string) ([]models.TelegramGroup, error)
	UpsertGroup(ctx context.Context, group models.TelegramGroup) error
	RefreshMetadata(ctx context.Context, chatID int64, title string, memberCount int) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// GetGroup fetches a single group by canonical chat id.
func (r *GroupRepo) GetGroup(ctx context.Context, chatID int64) (models.TelegramGroup, error) {
	var group models.TelegramGroup
	err := r.db.GetContext(ctx, &group, `SELECT tg_chat_id, title, bot_status, member_count, created_at, updated_at FROM telegram_groups WHERE tg_chat_id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TelegramGroup{}, ErrGroupNotFound
	}
	return group, err
}

// GetByMappingChatIDs resolves group rows for chat ids as stored on mapping
// rows, where legacy values may be textual. Ids that normalize to a number
// are looked up by the bigint key; the rest fall back to a text comparison
// against the key. Results are merged without duplicates, and ids that match
// no group row are dropped.
func (r *GroupRepo) GetByMappingChatIDs(ctx context.Context, rawChatIDs []string) ([]models.TelegramGroup, error) {
	numeric := make([]int64, 0, len(rawChatIDs))
	textual := make([]string, 0)
	for _, raw := range rawChatIDs {
		if id, err := models.NormalizeChatID(raw); err == nil {
			numeric = append(numeric, id)
		} else {
			textual = append(textual, raw)
		}
	}

	byID := map[int64]models.TelegramGroup{}

	if len(numeric) > 0 {
		query, args, err := sqlx.In(`SELECT tg_chat_id, title, bot_status, member_count, created_at, updated_at FROM telegram_groups WHERE tg_chat_id IN (?)`, numeric)
		if err != nil {
			return nil, err
		}
		var groups []models.TelegramGroup
		if err := r.db.SelectContext(ctx, &groups, r.db.Rebind(query), args...); err != nil {
			return nil, err
		}
		for _, g := range groups {
			byID[g.ChatID] = g
		}
	}

	if len(textual) > 0 {
		query, args, err := sqlx.In(`SELECT tg_chat_id, title, bot_status, member_count, created_at, updated_at FROM telegram_groups WHERE tg_chat_id::text IN (?)`, textual)
		if err != nil {
			return nil, err
		}
		var groups []models.TelegramGroup
		if err := r.db.SelectContext(ctx, &groups, r.db.Rebind(query), args...); err != nil {
			return nil, err
		}
		for _, g := range groups {
			byID[g.ChatID] = g
		}
	}

	result := make([]models.TelegramGroup, 0, len(byID))
	for _, g := range byID {
		result = append(result, g)
	}
	return result, nil
}

// UpsertGroup creates or updates the group record keyed by chat id.
func (r *GroupRepo) UpsertGroup(ctx context.Context, group models.TelegramGroup) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO telegram_groups (tg_chat_id, title, bot_status, member_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        ON CONFLICT (tg_chat_id) DO UPDATE SET
            title = EXCLUDED.title,
            bot_status = EXCLUDED.bot_status,
            member_count = EXCLUDED.member_count,
            updated_at = NOW()`,
		group.ChatID, group.Title, group.BotStatus, group.MemberCount)
	return err
}

// RefreshMetadata updates display attributes observed during a sync pass
// without touching the bot connection state.
func (r *GroupRepo) RefreshMetadata(ctx context.Context, chatID int64, title string, memberCount int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE telegram_groups SET title=$2, member_count=$3, updated_at=NOW() WHERE tg_chat_id=$1`, chatID, title, memberCount)
	return err
}
