package models

import (
	"time"

	"github.com/google/uuid"
)

// VerifiedIdentity is a local user's confirmed binding to a Telegram account,
// scoped to an organization. It selects whose Telegram session is used when
// querying on the organization's behalf; it is not itself part of the
// reconciled authorization model.
type VerifiedIdentity struct {
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	OrgID      uuid.UUID `db:"org_id" json:"org_id"`
	TgUserID   int64     `db:"tg_user_id" json:"tg_user_id"`
	IsVerified bool      `db:"is_verified" json:"is_verified"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
