package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"group-sync-service/internal/models"
	"group-sync-service/internal/observability"
	"group-sync-service/internal/repositories"
	"group-sync-service/internal/sync"
	"group-sync-service/internal/telegram"
	"group-sync-service/internal/telemetry"
)

// AdminSynchronizer is the slice of the synchronizer the handlers consume.
type AdminSynchronizer interface {
	SynchronizeAdminRights(ctx context.Context, orgID, actingUserID uuid.UUID) (models.SyncReport, error)
}

// GroupHandler manages the organization-scoped telegram group endpoints.
type GroupHandler struct {
	resolver     sync.GroupResolver
	synchronizer AdminSynchronizer
	mappings     repositories.MappingRepository
	groups       repositories.GroupRepository
	tg           telegram.API
	audit        *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(
	resolver sync.GroupResolver,
	synchronizer AdminSynchronizer,
	mappings repositories.MappingRepository,
	groups repositories.GroupRepository,
	tg telegram.API,
	audit *telemetry.AuditEmitter,
) *GroupHandler {
	return &GroupHandler{
		resolver:     resolver,
		synchronizer: synchronizer,
		mappings:     mappings,
		groups:       groups,
		tg:           tg,
		audit:        audit,
	}
}

// ListGroups handles GET /orgs/:org_id/telegram-groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	groups, err := h.resolver.ResolveOperationalGroups(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// SyncAdminRights handles POST /orgs/:org_id/telegram-groups/sync.
func (h *GroupHandler) SyncAdminRights(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}
	actingUserID, ok := actingUser(c)
	if !ok {
		return
	}

	start := time.Now()
	report, err := h.synchronizer.SynchronizeAdminRights(c.Request.Context(), orgID, actingUserID)
	if err != nil {
		if errors.Is(err, sync.ErrNoVerifiedIdentity) {
			observability.ObserveSyncPass("http", "no_identity", time.Since(start))
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no verified telegram identity for this organization"})
			return
		}
		observability.ObserveSyncPass("http", "error", time.Since(start))
		h.emitAudit(c, "ERROR", fmt.Sprintf("admin rights sync failed to start: %v", err), orgID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed to start"})
		return
	}

	result := "success"
	if report.GroupsFailed > 0 {
		result = "partial"
		if report.GroupsFailed == report.GroupsAttempted {
			result = "failed"
		}
	}
	observability.ObserveSyncPass("http", result, time.Since(start))

	h.emitAudit(c, "INFO", fmt.Sprintf("admin rights sync: %d groups, %d failed, %d admins written",
		report.GroupsAttempted, report.GroupsFailed, report.AdminsWritten), orgID)
	h.publishEvent(c, observability.RoutingKeySyncCompleted, "sync_completed", report)

	c.JSON(http.StatusOK, gin.H{"report": report, "partial": report.Partial()})
}

// AttachGroup handles POST /orgs/:org_id/telegram-groups.
func (h *GroupHandler) AttachGroup(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	var req struct {
		ChatID string `json:"tg_chat_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chatID, err := models.NormalizeChatID(req.ChatID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	// The group record is observed on first reference. When the bot cannot
	// see the chat yet the mapping is still recorded and the group surfaces
	// as pending setup.
	group := models.TelegramGroup{ChatID: chatID, BotStatus: models.BotStatusPending}
	if info, err := h.tg.GetChat(c.Request.Context(), chatID); err == nil {
		group.Title = info.Title
		group.MemberCount = info.MemberCount
		group.BotStatus = models.BotStatusConnected
	}
	if err := h.groups.UpsertGroup(c.Request.Context(), group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record group"})
		return
	}

	mapping, err := h.mappings.AttachGroup(c.Request.Context(), orgID, chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not attach group"})
		return
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("group %d attached", chatID), orgID)
	h.publishEvent(c, observability.RoutingKeyGroupAttached, "group_attached", mapping)
	c.JSON(http.StatusCreated, gin.H{"mapping": mapping, "bot_status": group.BotStatus})
}

// ArchiveGroup handles DELETE /orgs/:org_id/telegram-groups/:chat_id.
func (h *GroupHandler) ArchiveGroup(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	chatID, err := models.NormalizeChatID(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// The reason is optional; an empty or absent body archives without one.
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Reason = ""
	}

	if err := h.mappings.ArchiveMapping(c.Request.Context(), orgID, chatID, req.Reason); err != nil {
		if errors.Is(err, repositories.ErrMappingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not archive mapping"})
		return
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("group %d archived: %s", chatID, req.Reason), orgID)
	h.publishEvent(c, observability.RoutingKeyGroupArchived, "group_archived", gin.H{
		"org_id": orgID, "tg_chat_id": chatID, "reason": req.Reason,
	})
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string, orgID uuid.UUID) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), strPtr(orgID.String()), userIDFromContext(c))
}

func (h *GroupHandler) publishEvent(c *gin.Context, routingKey, name string, payload interface{}) {
	envelope := observability.EventEnvelope{EventType: "telegram_sync", EventName: name, Payload: payload}
	headers := observability.BuildHeaders(requestIDFromContext(c), "")
	// Event delivery is best effort; the HTTP response already carries the
	// authoritative result.
	_ = observability.PublishEvent(c.Request.Context(), routingKey, envelope, headers)
}

func orgIDParam(c *gin.Context) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
		return uuid.Nil, false
	}
	return orgID, true
}

func actingUser(c *gin.Context) (uuid.UUID, bool) {
	val, ok := c.Get("userID")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return uuid.Nil, false
	}
	return userID, true
}
