package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"group-sync-service/internal/models"
)

// AdminRightRepository abstracts the reconciled admin-rights table. Plain
// inserts are deliberately absent: the uniqueness constraint on
// (tg_chat_id, tg_user_id) makes the upsert the only valid write path.
type AdminRightRepository interface {
	DeactivateForChat(ctx context.Context, chatID int64, now time.Time) (int64, error)
	UpsertAdminRight(ctx context.Context, right models.AdminRight) error
	ListCurrentForChat(ctx context.Context, chatID int64, now time.Time) ([]models.AdminRight, error)
	ListForChat(ctx context.Context, chatID int64) ([]models.AdminRight, error)
}

// AdminRightRepo is a sqlx implementation of AdminRightRepository.
type AdminRightRepo struct {
	db *sqlx.DB
}

// NewAdminRightRepo constructs an AdminRightRepo.
func NewAdminRightRepo(db *sqlx.DB) *AdminRightRepo {
	return &AdminRightRepo{db: db}
}

// DeactivateForChat clears admin and owner flags and expires every row for
// the chat. It runs unconditionally over all rows so a pass that previously
// failed halfway leaves nothing stale behind. Returns the number of rows
// touched.
func (r *AdminRightRepo) DeactivateForChat(ctx context.Context, chatID int64, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE telegram_group_admins SET is_admin=FALSE, is_owner=FALSE, expires_at=$2 WHERE tg_chat_id=$1`, chatID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertAdminRight writes one observed administrator, replacing the stored
// flag set wholesale.
func (r *AdminRightRepo) UpsertAdminRight(ctx context.Context, right models.AdminRight) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO telegram_group_admins (
            tg_chat_id, tg_user_id, is_admin, is_owner,
            can_manage_chat, can_delete_messages, can_restrict_members, can_promote_members,
            can_change_info, can_invite_users, can_pin_messages, can_post_messages, can_edit_messages,
            verified_at, expires_at
        ) VALUES (
            :tg_chat_id, :tg_user_id, :is_admin, :is_owner,
            :can_manage_chat, :can_delete_messages, :can_restrict_members, :can_promote_members,
            :can_change_info, :can_invite_users, :can_pin_messages, :can_post_messages, :can_edit_messages,
            :verified_at, :expires_at
        )
        ON CONFLICT (tg_chat_id, tg_user_id) DO UPDATE SET
            is_admin = EXCLUDED.is_admin,
            is_owner = EXCLUDED.is_owner,
            can_manage_chat = EXCLUDED.can_manage_chat,
            can_delete_messages = EXCLUDED.can_delete_messages,
            can_restrict_members = EXCLUDED.can_restrict_members,
            can_promote_members = EXCLUDED.can_promote_members,
            can_change_info = EXCLUDED.can_change_info,
            can_invite_users = EXCLUDED.can_invite_users,
            can_pin_messages = EXCLUDED.can_pin_messages,
            can_post_messages = EXCLUDED.can_post_messages,
            can_edit_messages = EXCLUDED.can_edit_messages,
            verified_at = EXCLUDED.verified_at,
            expires_at = EXCLUDED.expires_at`,
		right)
	return err
}

// ListCurrentForChat returns rows still authoritative at the given time.
// Consumers must use this, never the raw table, when deciding privilege.
func (r *AdminRightRepo) ListCurrentForChat(ctx context.Context, chatID int64, now time.Time) ([]models.AdminRight, error) {
	var rights []models.AdminRight
	err := r.db.SelectContext(ctx, &rights, `SELECT * FROM telegram_group_admins WHERE tg_chat_id=$1 AND expires_at > $2`, chatID, now)
	return rights, err
}

// ListForChat returns every row for the chat, expired ones included.
func (r *AdminRightRepo) ListForChat(ctx context.Context, chatID int64) ([]models.AdminRight, error) {
	var rights []models.AdminRight
	err := r.db.SelectContext(ctx, &rights, `SELECT * FROM telegram_group_admins WHERE tg_chat_id=$1`, chatID)
	return rights, err
}
