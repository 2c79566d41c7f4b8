package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/session"
)

func TestDirectoryUnauthenticatedFailsFast(t *testing.T) {
	svc, fb := newTestService(t)
	dir := svc.NewDirectory()

	err := dir.Refresh(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.Zero(t, fb.ListCalls, "no network round trip without a session")
	assert.Empty(t, dir.Conversations())
}

func TestDirectoryPreservesServerOrder(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	fb.Conversations = []domain.ConversationPreview{
		{ConversationID: "c1", OtherParticipantName: "Anna", LastMessageAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
		{ConversationID: "c2", OtherParticipantName: "Boris", LastMessageAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
	}

	dir := svc.NewDirectory()
	require.NoError(t, dir.Refresh(context.Background()))

	list := dir.Conversations()
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ConversationID)
	assert.Equal(t, "c2", list[1].ConversationID)
	assert.True(t, dir.Loaded())
}

func TestDirectoryErrorKeepsPreviousList(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	fb.Conversations = []domain.ConversationPreview{{ConversationID: "c1"}}

	dir := svc.NewDirectory()
	require.NoError(t, dir.Refresh(context.Background()))

	fb.FailList = true
	err := dir.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)

	list := dir.Conversations()
	require.Len(t, list, 1, "stale-but-present beats empty-on-error")
	assert.Equal(t, "c1", list[0].ConversationID)
}

func TestDirectoryWholesaleReplacement(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	fb.Conversations = []domain.ConversationPreview{{ConversationID: "c1"}, {ConversationID: "c2"}}

	dir := svc.NewDirectory()
	require.NoError(t, dir.Refresh(context.Background()))

	fb.Conversations = []domain.ConversationPreview{{ConversationID: "c3"}}
	require.NoError(t, dir.Refresh(context.Background()))

	list := dir.Conversations()
	require.Len(t, list, 1)
	assert.Equal(t, "c3", list[0].ConversationID)
}

func TestDirectoryClearedOnLogout(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	fb.Conversations = []domain.ConversationPreview{{ConversationID: "c1"}}

	dir := svc.NewDirectory()
	require.NoError(t, dir.Refresh(context.Background()))

	svc.Session().Logout()
	assert.Empty(t, dir.Conversations())
	assert.False(t, dir.Loaded())
}

func TestDirectoryStaleAfterNewLogin(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	fb.Conversations = []domain.ConversationPreview{{ConversationID: "c1"}}

	dir := svc.NewDirectory()
	require.NoError(t, dir.Refresh(context.Background()))
	require.True(t, dir.Loaded())

	signIn(t, svc)
	assert.False(t, dir.Loaded(), "identity change invalidates the loaded list")
}

func TestDirectoryTokenRejectionForcesLogout(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	fb.RejectToken = true

	dir := svc.NewDirectory()
	err := dir.Refresh(context.Background())
	assert.Error(t, err)
	assert.Nil(t, svc.Session().Current(), "a rejected token is session expiry, not a single failed request")
}
