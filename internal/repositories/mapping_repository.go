package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"group-sync-service/internal/models"
)

var ErrMappingNotFound = errors.New("group mapping not found")

// MappingRepository abstracts the org <-> telegram group relation.
type MappingRepository interface {
	ListActiveMappings(ctx context.Context, orgID uuid.UUID) ([]models.GroupMapping, error)
	ListOrgIDsForChats(ctx context.Context, chatIDs []int64) (map[int64][]uuid.UUID, error)
	AttachGroup(ctx context.Context, orgID uuid.UUID, chatID int64) (models.GroupMapping, error)
	ArchiveMapping(ctx context.Context, orgID uuid.UUID, chatID int64, reason string) error
	ListOrgIDsWithActiveMappings(ctx context.Context) ([]uuid.UUID, error)
}

// MappingRepo is a sqlx implementation of MappingRepository.
type MappingRepo struct {
	db *sqlx.DB
}

// NewMappingRepo constructs a MappingRepo.
func NewMappingRepo(db *sqlx.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

// ListActiveMappings returns the organization's active claims. Archived rows
// never appear here.
func (r *MappingRepo) ListActiveMappings(ctx context.Context, orgID uuid.UUID) ([]models.GroupMapping, error) {
	var mappings []models.GroupMapping
	err := r.db.SelectContext(ctx, &mappings, `SELECT id, org_id, tg_chat_id, status, archived_reason, created_at FROM org_telegram_groups WHERE org_id=$1 AND status=$2`, orgID, models.MappingStatusActive)
	return mappings, err
}

// ListOrgIDsForChats returns, per chat, every organization holding any
// mapping to it, archived ones included. The result is context for display,
// never an authorization input.
func (r *MappingRepo) ListOrgIDsForChats(ctx context.Context, chatIDs []int64) (map[int64][]uuid.UUID, error) {
	result := make(map[int64][]uuid.UUID, len(chatIDs))
	if len(chatIDs) == 0 {
		return result, nil
	}

	textIDs := make([]string, 0, len(chatIDs))
	for _, id := range chatIDs {
		textIDs = append(textIDs, strconv.FormatInt(id, 10))
	}

	query, args, err := sqlx.In(`SELECT org_id, tg_chat_id FROM org_telegram_groups WHERE btrim(tg_chat_id) IN (?)`, textIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		OrgID  uuid.UUID `db:"org_id"`
		ChatID string    `db:"tg_chat_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, row := range rows {
		chatID, err := models.NormalizeChatID(row.ChatID)
		if err != nil {
			continue
		}
		result[chatID] = append(result[chatID], row.OrgID)
	}
	return result, nil
}

// AttachGroup creates an active mapping for the organization, reactivating a
// previously archived one if present.
func (r *MappingRepo) AttachGroup(ctx context.Context, orgID uuid.UUID, chatID int64) (models.GroupMapping, error) {
	var mapping models.GroupMapping
	err := r.db.QueryRowxContext(ctx, `
        INSERT INTO org_telegram_groups (org_id, tg_chat_id, status)
        VALUES ($1, $2, $3)
        ON CONFLICT (org_id, tg_chat_id) DO UPDATE SET
            status = EXCLUDED.status,
            archived_reason = NULL
        RETURNING id, org_id, tg_chat_id, status, archived_reason, created_at`,
		orgID, strconv.FormatInt(chatID, 10), models.MappingStatusActive).
		StructScan(&mapping)
	return mapping, err
}

// ArchiveMapping flips the organization's mapping to archived with a reason.
// Other organizations' mappings to the same chat are untouched.
func (r *MappingRepo) ArchiveMapping(ctx context.Context, orgID uuid.UUID, chatID int64, reason string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE org_telegram_groups SET status=$3, archived_reason=$4 WHERE org_id=$1 AND btrim(tg_chat_id)=$2`,
		orgID, strconv.FormatInt(chatID, 10), models.MappingStatusArchived, sql.NullString{String: reason, Valid: reason != ""})
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// ListOrgIDsWithActiveMappings returns organizations holding at least one
// active mapping, for the periodic sync worker.
func (r *MappingRepo) ListOrgIDsWithActiveMappings(ctx context.Context) ([]uuid.UUID, error) {
	var orgIDs []uuid.UUID
	err := r.db.SelectContext(ctx, &orgIDs, `SELECT DISTINCT org_id FROM org_telegram_groups WHERE status=$1`, models.MappingStatusActive)
	return orgIDs, err
}
