package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS telegram_groups (
            tg_chat_id BIGINT PRIMARY KEY,
            title TEXT NOT NULL DEFAULT '',
            bot_status TEXT NOT NULL DEFAULT 'pending',
            member_count INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS org_telegram_groups (
            id SERIAL PRIMARY KEY,
            org_id UUID NOT NULL,
            tg_chat_id TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            archived_reason TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(org_id, tg_chat_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_org_telegram_groups_chat
            ON org_telegram_groups (tg_chat_id);`,
		`CREATE TABLE IF NOT EXISTS telegram_group_admins (
            tg_chat_id BIGINT NOT NULL,
            tg_user_id BIGINT NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            is_owner BOOLEAN NOT NULL DEFAULT FALSE,
            can_manage_chat BOOLEAN NOT NULL DEFAULT FALSE,
            can_delete_messages BOOLEAN NOT NULL DEFAULT FALSE,
            can_restrict_members BOOLEAN NOT NULL DEFAULT FALSE,
            can_promote_members BOOLEAN NOT NULL DEFAULT FALSE,
            can_change_info BOOLEAN NOT NULL DEFAULT FALSE,
            can_invite_users BOOLEAN NOT NULL DEFAULT FALSE,
            can_pin_messages BOOLEAN NOT NULL DEFAULT FALSE,
            can_post_messages BOOLEAN NOT NULL DEFAULT FALSE,
            can_edit_messages BOOLEAN NOT NULL DEFAULT FALSE,
            verified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            expires_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(tg_chat_id, tg_user_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_telegram_group_admins_expiry
            ON telegram_group_admins (tg_chat_id, expires_at);`,
		`CREATE TABLE IF NOT EXISTS user_telegram_accounts (
            user_id UUID NOT NULL,
            org_id UUID NOT NULL,
            tg_user_id BIGINT NOT NULL,
            is_verified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(user_id, org_id, tg_user_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
