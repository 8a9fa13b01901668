package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"group-sync-service/internal/models"
	"group-sync-service/internal/observability"
	"group-sync-service/internal/repositories"
	"group-sync-service/internal/telegram"
)

// ErrNoVerifiedIdentity means the acting user has no verified Telegram
// binding within the organization, so the pass cannot authenticate against
// the platform. This is a precondition outcome, not a sync failure.
var ErrNoVerifiedIdentity = errors.New("no verified telegram identity for user in organization")

// Synchronizer reconciles the local admin-rights table against the live
// administrator lists held by Telegram. One call is one full pass for one
// organization: groups are processed serially and in isolation, so the
// deactivate/reactivate write pair for a chat never races with itself and a
// failing group never aborts the rest.
type Synchronizer struct {
	resolver   GroupResolver
	identities repositories.IdentityRepository
	admins     repositories.AdminRightRepository
	groups     repositories.GroupRepository
	tg         telegram.API
	roles      RoleDeriver
	now        func() time.Time
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(
	resolver GroupResolver,
	identities repositories.IdentityRepository,
	admins repositories.AdminRightRepository,
	groups repositories.GroupRepository,
	tg telegram.API,
	roles RoleDeriver,
) *Synchronizer {
	return &Synchronizer{
		resolver:   resolver,
		identities: identities,
		admins:     admins,
		groups:     groups,
		tg:         tg,
		roles:      roles,
		now:        time.Now,
	}
}

// SynchronizeAdminRights runs one reconciliation pass for the organization,
// acting as the given user. The returned report always describes every group
// attempted; it is the caller's source of truth, not the logs.
//
// Returns ErrNoVerifiedIdentity when the acting user holds no verified
// binding for the organization. Any other error means the pass could not
// start; once group processing begins, per-group failures land in the report
// and the error is nil.
func (s *Synchronizer) SynchronizeAdminRights(ctx context.Context, orgID, actingUserID uuid.UUID) (models.SyncReport, error) {
	tracer := otel.Tracer("group-sync-service/sync")
	ctx, span := tracer.Start(ctx, "sync.pass")
	defer span.End()
	span.SetAttributes(attribute.String("org_id", orgID.String()))

	report := models.SyncReport{OrgID: orgID, StartedAt: s.now()}

	identities, err := s.identities.ListVerifiedForUser(ctx, actingUserID, orgID)
	if err != nil {
		return report, fmt.Errorf("list verified identities: %w", err)
	}
	if len(identities) == 0 {
		report.FinishedAt = s.now()
		return report, ErrNoVerifiedIdentity
	}

	groups, err := s.resolver.ResolveOperationalGroups(ctx, orgID)
	if err != nil {
		return report, fmt.Errorf("resolve groups: %w", err)
	}
	if len(groups) == 0 {
		report.FinishedAt = s.now()
		return report, nil
	}

	for _, group := range groups {
		// Cancellation is honored only between groups: a started
		// deactivate/reactivate pair must run to completion so a chat is
		// never left fully deactivated with no reactivation write.
		if ctx.Err() != nil {
			report.Record(models.GroupResult{
				ChatID:  group.ChatID,
				Title:   group.Title,
				Outcome: models.OutcomeSkipped,
				Reason:  "pass cancelled",
			})
			observability.IncSyncGroup(models.OutcomeSkipped)
			continue
		}

		result := s.syncGroup(ctx, group)
		report.Record(result)
		observability.IncSyncGroup(result.Outcome)
		if result.Outcome == models.OutcomeSuccess {
			observability.AddAdminsWritten(result.AdminsWritten)
		}
	}

	// Fire-and-log: a derivation failure is surfaced in the report but never
	// rolls back the admin-rights writes already committed.
	if err := s.roles.DeriveRoles(ctx, orgID); err != nil {
		log.Printf("role derivation failed org_id=%s: %v", orgID, err)
		report.RolesError = err.Error()
	} else {
		report.RolesDerived = true
	}

	report.FinishedAt = s.now()
	span.SetAttributes(
		attribute.Int("groups_attempted", report.GroupsAttempted),
		attribute.Int("groups_failed", report.GroupsFailed),
		attribute.Int("admins_written", report.AdminsWritten),
	)
	return report, nil
}

// syncGroup reconciles a single chat: fetch the live administrator list,
// expire every stored row, then rewrite the observed administrators. The
// deactivation always happens before any reactivation write so a removed
// administrator can never be observed as still privileged, even transiently.
func (s *Synchronizer) syncGroup(ctx context.Context, group models.ResolvedGroup) models.GroupResult {
	tracer := otel.Tracer("group-sync-service/sync")
	ctx, span := tracer.Start(ctx, "sync.group")
	defer span.End()
	span.SetAttributes(attribute.Int64("tg_chat_id", group.ChatID))

	result := models.GroupResult{ChatID: group.ChatID, Title: group.Title}

	admins, err := s.tg.ListAdministrators(ctx, group.ChatID)
	if err != nil {
		observability.IncTelegramRequest("getChatAdministrators", "error")
		result.Outcome = models.OutcomeFailed
		result.Reason = err.Error()
		return result
	}
	observability.IncTelegramRequest("getChatAdministrators", "ok")

	// The deactivate/reactivate pair must complete once started. The store
	// writes run on a context detached from the caller's cancellation so a
	// client disconnect mid-pair cannot leave the chat fully deactivated
	// with no reactivation writes.
	writeCtx := context.WithoutCancel(ctx)

	now := s.now()
	if _, err := s.admins.DeactivateForChat(writeCtx, group.ChatID, now); err != nil {
		result.Outcome = models.OutcomeFailed
		result.Reason = fmt.Sprintf("deactivate admin rights: %v", err)
		return result
	}

	written := 0
	var upsertErr error
	for _, admin := range admins {
		if admin.UserID == 0 {
			log.Printf("skipping admin without user id chat_id=%d", group.ChatID)
			continue
		}
		right := models.AdminRight{
			ChatID:             group.ChatID,
			UserID:             admin.UserID,
			IsAdmin:            true,
			IsOwner:            admin.IsOwner,
			CanManageChat:      admin.CanManageChat,
			CanDeleteMessages:  admin.CanDeleteMessages,
			CanRestrictMembers: admin.CanRestrictMembers,
			CanPromoteMembers:  admin.CanPromoteMembers,
			CanChangeInfo:      admin.CanChangeInfo,
			CanInviteUsers:     admin.CanInviteUsers,
			CanPinMessages:     admin.CanPinMessages,
			CanPostMessages:    admin.CanPostMessages,
			CanEditMessages:    admin.CanEditMessages,
			VerifiedAt:         now,
			ExpiresAt:          now.Add(models.AdminRightTTL),
		}
		if err := s.admins.UpsertAdminRight(writeCtx, right); err != nil {
			log.Printf("upsert admin right failed chat_id=%d tg_user_id=%d: %v", group.ChatID, admin.UserID, err)
			upsertErr = err
			continue
		}
		written++
	}

	// A write failure leaves the chat in the deactivated state for the
	// missed administrators; that is a failed group, not a success with a
	// low count.
	if upsertErr != nil {
		result.Outcome = models.OutcomeFailed
		result.Reason = fmt.Sprintf("upsert admin rights: %v", upsertErr)
		result.AdminsWritten = written
		return result
	}

	// Metadata refresh is decoration, not authorization: a failure here does
	// not fail the group.
	if info, err := s.tg.GetChat(ctx, group.ChatID); err != nil {
		observability.IncTelegramRequest("getChat", "error")
		log.Printf("chat metadata refresh failed chat_id=%d: %v", group.ChatID, err)
	} else {
		observability.IncTelegramRequest("getChat", "ok")
		if err := s.groups.RefreshMetadata(ctx, group.ChatID, info.Title, info.MemberCount); err != nil {
			log.Printf("store metadata refresh failed chat_id=%d: %v", group.ChatID, err)
		}
	}

	result.Outcome = models.OutcomeSuccess
	result.AdminsWritten = written
	return result
}
