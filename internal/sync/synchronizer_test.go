package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"group-sync-service/internal/mocks"
	"group-sync-service/internal/models"
	"group-sync-service/internal/telegram"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type syncFixture struct {
	resolver   *mocks.ResolverMock
	identities *mocks.IdentityRepositoryMock
	admins     *mocks.AdminRightRepositoryMock
	groups     *mocks.GroupRepositoryMock
	tg         *mocks.TelegramAPIMock
	roles      *mocks.RoleDeriverMock
	s          *Synchronizer
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		resolver:   new(mocks.ResolverMock),
		identities: new(mocks.IdentityRepositoryMock),
		admins:     new(mocks.AdminRightRepositoryMock),
		groups:     new(mocks.GroupRepositoryMock),
		tg:         new(mocks.TelegramAPIMock),
		roles:      new(mocks.RoleDeriverMock),
	}
	f.s = NewSynchronizer(f.resolver, f.identities, f.admins, f.groups, f.tg, f.roles)
	f.s.now = func() time.Time { return fixedNow }
	return f
}

func (f *syncFixture) withVerifiedIdentity(orgID, userID uuid.UUID) {
	f.identities.On("ListVerifiedForUser", mock.Anything, userID, orgID).Return([]models.VerifiedIdentity{
		{UserID: userID, OrgID: orgID, TgUserID: 777, IsVerified: true},
	}, nil)
}

func operationalGroup(chatID int64, title string) models.ResolvedGroup {
	return models.ResolvedGroup{
		TelegramGroup: models.TelegramGroup{ChatID: chatID, Title: title, BotStatus: models.BotStatusConnected},
		IsPrimary:     true,
	}
}

func TestSynchronizeNoVerifiedIdentity(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()

	f.identities.On("ListVerifiedForUser", mock.Anything, userID, orgID).Return([]models.VerifiedIdentity{}, nil).Once()

	_, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.ErrorIs(t, err, ErrNoVerifiedIdentity)
	f.resolver.AssertNotCalled(t, "ResolveOperationalGroups")
	f.roles.AssertNotCalled(t, "DeriveRoles")
}

func TestSynchronizeEmptyGroupSet(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{}, nil).Once()

	report, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)
	require.Zero(t, report.GroupsAttempted)
	f.roles.AssertNotCalled(t, "DeriveRoles")
}

// Mirrors the documented two-group scenario: chat 100 syncs an owner and an
// admin, chat 200 fails because the bot was removed, and role derivation
// still runs exactly once.
func TestSynchronizePartialFailure(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "first"),
		operationalGroup(200, "second"),
	}, nil).Once()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{
		{UserID: 1, IsOwner: true, CanManageChat: true},
		{UserID: 2, CanPinMessages: true},
	}, nil).Once()
	f.tg.On("ListAdministrators", mock.Anything, int64(200)).Return(nil, errors.New("bot removed")).Once()

	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Return(int64(0), nil).Once()

	var written []models.AdminRight
	f.admins.On("UpsertAdminRight", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written = append(written, args.Get(1).(models.AdminRight))
	}).Return(nil).Twice()

	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{ChatID: 100, Title: "first", MemberCount: 10}, nil).Once()
	f.groups.On("RefreshMetadata", mock.Anything, int64(100), "first", 10).Return(nil).Once()

	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Once()

	report, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)

	require.Equal(t, 2, report.GroupsAttempted)
	require.Equal(t, 1, report.GroupsSucceeded)
	require.Equal(t, 1, report.GroupsFailed)
	require.Equal(t, 2, report.AdminsWritten)
	require.True(t, report.Partial())
	require.True(t, report.RolesDerived)

	require.Equal(t, models.OutcomeSuccess, report.Groups[0].Outcome)
	require.Equal(t, models.OutcomeFailed, report.Groups[1].Outcome)
	require.Contains(t, report.Groups[1].Reason, "bot removed")

	require.Len(t, written, 2)
	owner, admin := written[0], written[1]
	require.Equal(t, int64(1), owner.UserID)
	require.True(t, owner.IsOwner)
	require.True(t, owner.IsAdmin)
	require.Equal(t, int64(2), admin.UserID)
	require.False(t, admin.IsOwner)
	require.True(t, admin.IsAdmin)
	require.True(t, admin.CanPinMessages)
	for _, r := range written {
		require.Equal(t, fixedNow, r.VerifiedAt)
		require.Equal(t, fixedNow.Add(models.AdminRightTTL), r.ExpiresAt)
	}

	// No writes of any kind for the failed chat.
	f.admins.AssertNotCalled(t, "DeactivateForChat", mock.Anything, int64(200), mock.Anything)
	f.roles.AssertNumberOfCalls(t, "DeriveRoles", 1)
	f.tg.AssertExpectations(t)
	f.admins.AssertExpectations(t)
}

func TestSynchronizeDeactivatesBeforeReactivating(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "only"),
	}, nil).Once()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{
		{UserID: 1, IsOwner: true},
	}, nil).Once()

	var order []string
	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Run(func(mock.Arguments) {
		order = append(order, "deactivate")
	}).Return(int64(3), nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		order = append(order, "upsert")
	}).Return(nil).Once()

	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{}, errors.New("unavailable")).Once()
	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Once()

	report, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)
	require.Equal(t, []string{"deactivate", "upsert"}, order)
	// Metadata being unavailable does not fail the group.
	require.Equal(t, models.OutcomeSuccess, report.Groups[0].Outcome)
}

func TestSynchronizeSkipsAdminWithoutUserID(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "only"),
	}, nil).Once()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{
		{UserID: 0, IsOwner: true},
		{UserID: 2},
	}, nil).Once()

	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Return(int64(0), nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.MatchedBy(func(r models.AdminRight) bool {
		return r.UserID == 2
	})).Return(nil).Once()

	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{}, errors.New("unavailable")).Once()
	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Once()

	report, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)
	require.Equal(t, 1, report.AdminsWritten)
	f.admins.AssertNumberOfCalls(t, "UpsertAdminRight", 1)
}

// A failed reactivation write leaves the missed administrators deactivated,
// so the group must surface as failed rather than a success with a low count.
func TestSynchronizeUpsertFailureFailsGroup(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "only"),
	}, nil).Once()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{
		{UserID: 1, IsOwner: true},
		{UserID: 2},
	}, nil).Once()

	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Return(int64(0), nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.MatchedBy(func(r models.AdminRight) bool {
		return r.UserID == 1
	})).Return(nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.MatchedBy(func(r models.AdminRight) bool {
		return r.UserID == 2
	})).Return(errors.New("constraint violation")).Once()

	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Once()

	report, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeFailed, report.Groups[0].Outcome)
	require.Contains(t, report.Groups[0].Reason, "constraint violation")
	require.Equal(t, 1, report.Groups[0].AdminsWritten)
	require.Equal(t, 1, report.GroupsFailed)
	require.Zero(t, report.AdminsWritten)
	require.False(t, report.Partial())
	f.groups.AssertNotCalled(t, "RefreshMetadata", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSynchronizeRoleDerivationFailureSurfacedNotFatal(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "only"),
	}, nil).Once()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{{UserID: 1, IsOwner: true}}, nil).Once()
	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Return(int64(0), nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.Anything).Return(nil).Once()
	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{}, errors.New("unavailable")).Once()

	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(errors.New("procedure missing")).Once()

	report, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)
	require.False(t, report.RolesDerived)
	require.Contains(t, report.RolesError, "procedure missing")
	require.Equal(t, 1, report.GroupsSucceeded)
}

func TestSynchronizeIdempotentCounts(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "only"),
	}, nil).Twice()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{
		{UserID: 1, IsOwner: true},
		{UserID: 2},
	}, nil).Twice()
	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Return(int64(2), nil).Twice()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.Anything).Return(nil).Times(4)
	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{}, errors.New("unavailable")).Twice()
	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Twice()

	first, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)
	second, err := f.s.SynchronizeAdminRights(context.Background(), orgID, userID)
	require.NoError(t, err)

	require.Equal(t, first.GroupsAttempted, second.GroupsAttempted)
	require.Equal(t, first.GroupsSucceeded, second.GroupsSucceeded)
	require.Equal(t, first.AdminsWritten, second.AdminsWritten)
}

func TestSynchronizeCancellationBetweenGroups(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "first"),
		operationalGroup(200, "second"),
	}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel while the first group is mid-flight: its deactivate/reactivate
	// pair still completes, only the second group is skipped.
	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Run(func(mock.Arguments) {
		cancel()
	}).Return([]telegram.ChatAdmin{{UserID: 1, IsOwner: true}}, nil).Once()

	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Return(int64(0), nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.Anything).Return(nil).Once()
	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{}, errors.New("unavailable")).Once()
	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Once()

	report, err := f.s.SynchronizeAdminRights(ctx, orgID, userID)
	require.NoError(t, err)

	require.Equal(t, models.OutcomeSuccess, report.Groups[0].Outcome)
	require.Equal(t, models.OutcomeSkipped, report.Groups[1].Outcome)
	require.Equal(t, "pass cancelled", report.Groups[1].Reason)
	f.tg.AssertNotCalled(t, "ListAdministrators", mock.Anything, int64(200))
}

// A client disconnect after the deactivation commits must not strand the chat
// deactivated: the store writes run on a context detached from the caller's
// cancellation, so a store honoring its context still commits the
// reactivation writes.
func TestSynchronizeWritePairSurvivesCancellation(t *testing.T) {
	f := newSyncFixture()
	orgID, userID := uuid.New(), uuid.New()
	f.withVerifiedIdentity(orgID, userID)

	f.resolver.On("ResolveOperationalGroups", mock.Anything, orgID).Return([]models.ResolvedGroup{
		operationalGroup(100, "only"),
	}, nil).Once()

	f.tg.On("ListAdministrators", mock.Anything, int64(100)).Return([]telegram.ChatAdmin{
		{UserID: 1, IsOwner: true},
		{UserID: 2},
	}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())

	var writeCtxErrs []error
	f.admins.On("DeactivateForChat", mock.Anything, int64(100), fixedNow).Run(func(args mock.Arguments) {
		cancel()
		writeCtxErrs = append(writeCtxErrs, args.Get(0).(context.Context).Err())
	}).Return(int64(2), nil).Once()
	f.admins.On("UpsertAdminRight", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		writeCtxErrs = append(writeCtxErrs, args.Get(0).(context.Context).Err())
	}).Return(nil).Twice()

	f.tg.On("GetChat", mock.Anything, int64(100)).Return(telegram.ChatInfo{}, errors.New("unavailable")).Once()
	f.roles.On("DeriveRoles", mock.Anything, orgID).Return(nil).Once()

	report, err := f.s.SynchronizeAdminRights(ctx, orgID, userID)
	require.NoError(t, err)

	require.Len(t, writeCtxErrs, 3)
	for _, ctxErr := range writeCtxErrs {
		require.NoError(t, ctxErr)
	}
	require.Equal(t, models.OutcomeSuccess, report.Groups[0].Outcome)
	require.Equal(t, 2, report.AdminsWritten)
	f.admins.AssertExpectations(t)
}
