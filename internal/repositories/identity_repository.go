package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"group-sync-service/internal/models"
)

// IdentityRepository reads verified telegram account bindings. This subsystem
// never writes them.
type IdentityRepository interface {
	ListVerifiedForUser(ctx context.Context, userID, orgID uuid.UUID) ([]models.VerifiedIdentity, error)
	ListOrgIDsWithVerifiedAccounts(ctx context.Context) ([]uuid.UUID, error)
	FirstVerifiedForOrg(ctx context.Context, orgID uuid.UUID) (models.VerifiedIdentity, bool, error)
}

// IdentityRepo is a sqlx implementation of IdentityRepository.
type IdentityRepo struct {
	db *sqlx.DB
}

// NewIdentityRepo constructs an IdentityRepo.
func NewIdentityRepo(db *sqlx.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

// ListVerifiedForUser returns the user's verified bindings within the org.
func (r *IdentityRepo) ListVerifiedForUser(ctx context.Context, userID, orgID uuid.UUID) ([]models.VerifiedIdentity, error) {
	var identities []models.VerifiedIdentity
	err := r.db.SelectContext(ctx, &identities, `SELECT user_id, org_id, tg_user_id, is_verified, created_at FROM user_telegram_accounts WHERE user_id=$1 AND org_id=$2 AND is_verified=TRUE`, userID, orgID)
	return identities, err
}

// ListOrgIDsWithVerifiedAccounts returns organizations with at least one
// verified binding, for the periodic sync worker.
func (r *IdentityRepo) ListOrgIDsWithVerifiedAccounts(ctx context.Context) ([]uuid.UUID, error) {
	var orgIDs []uuid.UUID
	err := r.db.SelectContext(ctx, &orgIDs, `SELECT DISTINCT org_id FROM user_telegram_accounts WHERE is_verified=TRUE`)
	return orgIDs, err
}

// FirstVerifiedForOrg picks any verified binding within the org, used as the
// acting context for scheduled passes. The second return is false when the
// org has none.
func (r *IdentityRepo) FirstVerifiedForOrg(ctx context.Context, orgID uuid.UUID) (models.VerifiedIdentity, bool, error) {
	var identities []models.VerifiedIdentity
	err := r.db.SelectContext(ctx, &identities, `SELECT user_id, org_id, tg_user_id, is_verified, created_at FROM user_telegram_accounts WHERE org_id=$1 AND is_verified=TRUE ORDER BY created_at LIMIT 1`, orgID)
	if err != nil {
		return models.VerifiedIdentity{}, false, err
	}
	if len(identities) == 0 {
		return models.VerifiedIdentity{}, false, nil
	}
	return identities[0], true, nil
}
