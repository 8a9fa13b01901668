package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RoleDeriver recomputes internal membership roles from the reconciled
// admin-rights table. The procedure is owned by the platform, not by this
// service: the synchronizer calls it once per pass and only logs a failure.
type RoleDeriver interface {
	DeriveRoles(ctx context.Context, orgID uuid.UUID) error
}

// PGRoleDeriver invokes the platform's role derivation stored procedure.
type PGRoleDeriver struct {
	db *sqlx.DB
}

// NewPGRoleDeriver constructs a PGRoleDeriver.
func NewPGRoleDeriver(db *sqlx.DB) *PGRoleDeriver {
	return &PGRoleDeriver{db: db}
}

// DeriveRoles calls derive_org_roles for the organization.
func (d *PGRoleDeriver) DeriveRoles(ctx context.Context, orgID uuid.UUID) error {
	if _, err := d.db.ExecContext(ctx, `SELECT derive_org_roles($1)`, orgID); err != nil {
		return fmt.Errorf("derive org roles: %w", err)
	}
	return nil
}
