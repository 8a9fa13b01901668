package workers

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"group-sync-service/internal/models"
	"group-sync-service/internal/observability"
	"group-sync-service/internal/repositories"
	syncer "group-sync-service/internal/sync"
)

const perOrgTimeout = 5 * time.Minute

// Synchronizer is the slice of the sync engine the worker consumes.
type Synchronizer interface {
	SynchronizeAdminRights(ctx context.Context, orgID, actingUserID uuid.UUID) (models.SyncReport, error)
}

// OrgSyncWorker periodically re-runs the admin-rights reconciliation for
// every organization that has at least one active mapping and one verified
// identity. Each org is an independent pass; one org failing never stops the
// sweep.
type OrgSyncWorker struct {
	synchronizer Synchronizer
	mappings     repositories.MappingRepository
	identities   repositories.IdentityRepository
	interval     time.Duration
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewOrgSyncWorker creates the periodic sync worker.
func NewOrgSyncWorker(s Synchronizer, mappings repositories.MappingRepository, identities repositories.IdentityRepository, interval time.Duration) *OrgSyncWorker {
	return &OrgSyncWorker{
		synchronizer: s,
		mappings:     mappings,
		identities:   identities,
		interval:     interval,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *OrgSyncWorker) Start() {
	w.wg.Add(1)
	go w.run()
	log.Printf("org sync worker started interval=%s", w.interval)
}

// Stop signals the worker to stop and waits for the current sweep to finish.
func (w *OrgSyncWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	log.Println("org sync worker stopped")
}

func (w *OrgSyncWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep runs one pass per syncable organization.
func (w *OrgSyncWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	orgIDs, err := w.mappings.ListOrgIDsWithActiveMappings(ctx)
	cancel()
	if err != nil {
		log.Printf("sync sweep: list orgs failed: %v", err)
		return
	}

	for _, orgID := range orgIDs {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.syncOrg(orgID)
	}
}

func (w *OrgSyncWorker) syncOrg(orgID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), perOrgTimeout)
	defer cancel()

	identity, ok, err := w.identities.FirstVerifiedForOrg(ctx, orgID)
	if err != nil {
		log.Printf("sync sweep: identity lookup failed org_id=%s: %v", orgID, err)
		return
	}
	if !ok {
		return
	}

	start := time.Now()
	report, err := w.synchronizer.SynchronizeAdminRights(ctx, orgID, identity.UserID)
	if err != nil {
		if errors.Is(err, syncer.ErrNoVerifiedIdentity) {
			observability.ObserveSyncPass("scheduled", "no_identity", time.Since(start))
			return
		}
		observability.ObserveSyncPass("scheduled", "error", time.Since(start))
		log.Printf("sync sweep: pass failed org_id=%s: %v", orgID, err)
		return
	}

	result := "success"
	if report.GroupsFailed > 0 {
		result = "partial"
		if report.GroupsFailed == report.GroupsAttempted {
			result = "failed"
		}
	}
	observability.ObserveSyncPass("scheduled", result, time.Since(start))
	log.Printf("sync sweep: org_id=%s groups=%d failed=%d admins=%d",
		orgID, report.GroupsAttempted, report.GroupsFailed, report.AdminsWritten)
}
