package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"group-sync-service/internal/models"
	"group-sync-service/internal/telegram"
)

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, chatID int64) (models.TelegramGroup, error) {
	args := m.Called(ctx, chatID)
	var group models.TelegramGroup
	if val := args.Get(0); val != nil {
		group = val.(models.TelegramGroup)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetByMappingChatIDs(ctx context.Context, rawChatIDs []string) ([]models.TelegramGroup, error) {
	args := m.Called(ctx, rawChatIDs)
	var groups []models.TelegramGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.TelegramGroup)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) UpsertGroup(ctx context.Context, group models.TelegramGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RefreshMetadata(ctx context.Context, chatID int64, title string, memberCount int) error {
	args := m.Called(ctx, chatID, title, memberCount)
	return args.Error(0)
}

type MappingRepositoryMock struct {
	mock.Mock
}

func (m *MappingRepositoryMock) ListActiveMappings(ctx context.Context, orgID uuid.UUID) ([]models.GroupMapping, error) {
	args := m.Called(ctx, orgID)
	var mappings []models.GroupMapping
	if val := args.Get(0); val != nil {
		mappings = val.([]models.GroupMapping)
	}
	return mappings, args.Error(1)
}

func (m *MappingRepositoryMock) ListOrgIDsForChats(ctx context.Context, chatIDs []int64) (map[int64][]uuid.UUID, error) {
	args := m.Called(ctx, chatIDs)
	var result map[int64][]uuid.UUID
	if val := args.Get(0); val != nil {
		result = val.(map[int64][]uuid.UUID)
	}
	return result, args.Error(1)
}

func (m *MappingRepositoryMock) AttachGroup(ctx context.Context, orgID uuid.UUID, chatID int64) (models.GroupMapping, error) {
	args := m.Called(ctx, orgID, chatID)
	var mapping models.GroupMapping
	if val := args.Get(0); val != nil {
		mapping = val.(models.GroupMapping)
	}
	return mapping, args.Error(1)
}

func (m *MappingRepositoryMock) ArchiveMapping(ctx context.Context, orgID uuid.UUID, chatID int64, reason string) error {
	args := m.Called(ctx, orgID, chatID, reason)
	return args.Error(0)
}

func (m *MappingRepositoryMock) ListOrgIDsWithActiveMappings(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	var orgIDs []uuid.UUID
	if val := args.Get(0); val != nil {
		orgIDs = val.([]uuid.UUID)
	}
	return orgIDs, args.Error(1)
}

type AdminRightRepositoryMock struct {
	mock.Mock
}

func (m *AdminRightRepositoryMock) DeactivateForChat(ctx context.Context, chatID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, chatID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AdminRightRepositoryMock) UpsertAdminRight(ctx context.Context, right models.AdminRight) error {
	args := m.Called(ctx, right)
	return args.Error(0)
}

func (m *AdminRightRepositoryMock) ListCurrentForChat(ctx context.Context, chatID int64, now time.Time) ([]models.AdminRight, error) {
	args := m.Called(ctx, chatID, now)
	var rights []models.AdminRight
	if val := args.Get(0); val != nil {
		rights = val.([]models.AdminRight)
	}
	return rights, args.Error(1)
}

func (m *AdminRightRepositoryMock) ListForChat(ctx context.Context, chatID int64) ([]models.AdminRight, error) {
	args := m.Called(ctx, chatID)
	var rights []models.AdminRight
	if val := args.Get(0); val != nil {
		rights = val.([]models.AdminRight)
	}
	return rights, args.Error(1)
}

type IdentityRepositoryMock struct {
	mock.Mock
}

func (m *IdentityRepositoryMock) ListVerifiedForUser(ctx context.Context, userID, orgID uuid.UUID) ([]models.VerifiedIdentity, error) {
	args := m.Called(ctx, userID, orgID)
	var identities []models.VerifiedIdentity
	if val := args.Get(0); val != nil {
		identities = val.([]models.VerifiedIdentity)
	}
	return identities, args.Error(1)
}

func (m *IdentityRepositoryMock) ListOrgIDsWithVerifiedAccounts(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	var orgIDs []uuid.UUID
	if val := args.Get(0); val != nil {
		orgIDs = val.([]uuid.UUID)
	}
	return orgIDs, args.Error(1)
}

func (m *IdentityRepositoryMock) FirstVerifiedForOrg(ctx context.Context, orgID uuid.UUID) (models.VerifiedIdentity, bool, error) {
	args := m.Called(ctx, orgID)
	var identity models.VerifiedIdentity
	if val := args.Get(0); val != nil {
		identity = val.(models.VerifiedIdentity)
	}
	return identity, args.Bool(1), args.Error(2)
}

type TelegramAPIMock struct {
	mock.Mock
}

func (m *TelegramAPIMock) ListAdministrators(ctx context.Context, chatID int64) ([]telegram.ChatAdmin, error) {
	args := m.Called(ctx, chatID)
	var admins []telegram.ChatAdmin
	if val := args.Get(0); val != nil {
		admins = val.([]telegram.ChatAdmin)
	}
	return admins, args.Error(1)
}

func (m *TelegramAPIMock) GetChat(ctx context.Context, chatID int64) (telegram.ChatInfo, error) {
	args := m.Called(ctx, chatID)
	var info telegram.ChatInfo
	if val := args.Get(0); val != nil {
		info = val.(telegram.ChatInfo)
	}
	return info, args.Error(1)
}

type RoleDeriverMock struct {
	mock.Mock
}

func (m *RoleDeriverMock) DeriveRoles(ctx context.Context, orgID uuid.UUID) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) ResolveOperationalGroups(ctx context.Context, orgID uuid.UUID) ([]models.ResolvedGroup, error) {
	args := m.Called(ctx, orgID)
	var groups []models.ResolvedGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.ResolvedGroup)
	}
	return groups, args.Error(1)
}

type SynchronizerMock struct {
	mock.Mock
}

func (m *SynchronizerMock) SynchronizeAdminRights(ctx context.Context, orgID, actingUserID uuid.UUID) (models.SyncReport, error) {
	args := m.Called(ctx, orgID, actingUserID)
	var report models.SyncReport
	if val := args.Get(0); val != nil {
		report = val.(models.SyncReport)
	}
	return report, args.Error(1)
}
