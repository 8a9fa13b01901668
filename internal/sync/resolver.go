package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"group-sync-service/internal/models"
	"group-sync-service/internal/repositories"
)

// GroupResolver computes the set of groups an organization may act on.
type GroupResolver interface {
	ResolveOperationalGroups(ctx context.Context, orgID uuid.UUID) ([]models.ResolvedGroup, error)
}

// Resolver merges an organization's active mappings with the group records
// and cross-org context. Primacy is a per-query viewpoint: the querying
// organization is always primary in its own result, nothing is stored.
type Resolver struct {
	groups   repositories.GroupRepository
	mappings repositories.MappingRepository
}

// NewResolver constructs a Resolver.
func NewResolver(groups repositories.GroupRepository, mappings repositories.MappingRepository) *Resolver {
	return &Resolver{groups: groups, mappings: mappings}
}

// ResolveOperationalGroups returns the organization's operational groups,
// de-duplicated and sorted by title. Groups whose bot connection is not
// usable yet are filtered out; chat ids that never produced a group record
// are silently skipped. An organization with no mappings gets an empty list.
func (r *Resolver) ResolveOperationalGroups(ctx context.Context, orgID uuid.UUID) ([]models.ResolvedGroup, error) {
	mappings, err := r.mappings.ListActiveMappings(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list active mappings: %w", err)
	}
	if len(mappings) == 0 {
		return []models.ResolvedGroup{}, nil
	}

	rawIDs := make([]string, 0, len(mappings))
	seen := map[string]struct{}{}
	for _, m := range mappings {
		if _, ok := seen[m.ChatID]; ok {
			continue
		}
		seen[m.ChatID] = struct{}{}
		rawIDs = append(rawIDs, m.ChatID)
	}

	groups, err := r.groups.GetByMappingChatIDs(ctx, rawIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve group records: %w", err)
	}
	if len(groups) == 0 {
		return []models.ResolvedGroup{}, nil
	}

	chatIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		chatIDs = append(chatIDs, g.ChatID)
	}

	orgsByChat, err := r.mappings.ListOrgIDsForChats(ctx, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("list mapped orgs: %w", err)
	}

	resolved := make([]models.ResolvedGroup, 0, len(groups))
	for _, g := range groups {
		if !g.Operational() {
			continue
		}
		resolved = append(resolved, models.ResolvedGroup{
			TelegramGroup: g,
			IsPrimary:     true,
			MappedOrgIDs:  mappedOrgIDs(orgsByChat[g.ChatID], orgID),
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return strings.ToLower(resolved[i].Title) < strings.ToLower(resolved[j].Title)
	})
	return resolved, nil
}

// mappedOrgIDs de-duplicates the cross-org set and guarantees the querying
// organization appears in it.
func mappedOrgIDs(orgs []uuid.UUID, querying uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	result := make([]uuid.UUID, 0, len(orgs)+1)
	for _, id := range append([]uuid.UUID{querying}, orgs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}
