package models

import (
	"time"

	"github.com/google/uuid"
)

// Per-group sync outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// GroupResult is the outcome of reconciling a single group within a pass.
type GroupResult struct {
	ChatID        int64  `json:"tg_chat_id"`
	Title         string `json:"title,omitempty"`
	Outcome       string `json:"outcome"`
	AdminsWritten int    `json:"admins_written,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// SyncReport aggregates one reconciliation pass for an organization. It is
// the source of truth for what happened, not the logs: the caller always gets
// the full per-group breakdown so a partial success is distinguishable from a
// total failure.
type SyncReport struct {
	OrgID           uuid.UUID     `json:"org_id"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Groups          []GroupResult `json:"groups"`
	GroupsAttempted int           `json:"groups_attempted"`
	GroupsSucceeded int           `json:"groups_succeeded"`
	GroupsFailed    int           `json:"groups_failed"`
	GroupsSkipped   int           `json:"groups_skipped"`
	AdminsWritten   int           `json:"admins_written"`
	RolesDerived    bool          `json:"roles_derived"`
	RolesError      string        `json:"roles_error,omitempty"`
}

// Record appends a group result and updates the pass counters.
func (r *SyncReport) Record(res GroupResult) {
	r.Groups = append(r.Groups, res)
	r.GroupsAttempted++
	switch res.Outcome {
	case OutcomeSuccess:
		r.GroupsSucceeded++
		r.AdminsWritten += res.AdminsWritten
	case OutcomeFailed:
		r.GroupsFailed++
	case OutcomeSkipped:
		r.GroupsSkipped++
	}
}

// Partial reports whether any group failed while others succeeded or were
// skipped, so the HTTP layer never presents the pass as a clean success.
func (r SyncReport) Partial() bool {
	return r.GroupsFailed > 0 && r.GroupsFailed < r.GroupsAttempted
}
