package models

import "time"

// AdminRightTTL bounds how long a synced admin record stays authoritative
// without re-verification.
const AdminRightTTL = 7 * 24 * time.Hour

// AdminRight is one (chat, user) administrative relationship as last observed
// from Telegram. Rows are unique per (ChatID, UserID); writes always go
// through an upsert. A row grants nothing once ExpiresAt has passed, whatever
// the stored flags say.
type AdminRight struct {
	ChatID             int64     `db:"tg_chat_id" json:"tg_chat_id"`
	UserID             int64     `db:"tg_user_id" json:"tg_user_id"`
	IsAdmin            bool      `db:"is_admin" json:"is_admin"`
	IsOwner            bool      `db:"is_owner" json:"is_owner"`
	CanManageChat      bool      `db:"can_manage_chat" json:"can_manage_chat"`
	CanDeleteMessages  bool      `db:"can_delete_messages" json:"can_delete_messages"`
	CanRestrictMembers bool      `db:"can_restrict_members" json:"can_restrict_members"`
	CanPromoteMembers  bool      `db:"can_promote_members" json:"can_promote_members"`
	CanChangeInfo      bool      `db:"can_change_info" json:"can_change_info"`
	CanInviteUsers     bool      `db:"can_invite_users" json:"can_invite_users"`
	CanPinMessages     bool      `db:"can_pin_messages" json:"can_pin_messages"`
	CanPostMessages    bool      `db:"can_post_messages" json:"can_post_messages"`
	CanEditMessages    bool      `db:"can_edit_messages" json:"can_edit_messages"`
	VerifiedAt         time.Time `db:"verified_at" json:"verified_at"`
	ExpiresAt          time.Time `db:"expires_at" json:"expires_at"`
}

// Current reports whether the row is still authoritative at the given time.
func (r AdminRight) Current(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
