package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/adapter/backend"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/config"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
	store "github.com/4ERNIY-LOSOS/MasterDom/internal/repository"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/session"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/testutil"
)

// newTestService wires a full client stack against the fake backend.
func newTestService(t *testing.T) (*Service, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend(t)

	creds, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { creds.Close() })

	sess := session.NewStore(creds)
	cfg := &config.Config{
		APIBaseURL:     fb.URL(),
		RequestTimeout: 5 * time.Second,
	}
	client := backend.NewClient(fb.URL(), cfg.RequestTimeout, sess)
	return New(sess, client, cfg), fb
}

func signIn(t *testing.T, svc *Service) {
	t.Helper()
	svc.Session().Login(testutil.MintToken(t, "self", "client", time.Now().Add(time.Hour)))
	require.NotNil(t, svc.Session().Current())
}

// seedConversation installs a two-party conversation with an ordered history.
func seedConversation(fb *testutil.FakeBackend, id string, history ...string) {
	fb.Details[id] = domain.ConversationDetail{
		ConversationID: id,
		OfferID:        "offer-" + id,
		OfferTitle:     "Offer for " + id,
		Participants: []domain.Participant{
			{ID: "self", FirstName: "Me"},
			{ID: "peer-" + id, FirstName: "Peer " + id},
		},
	}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var msgs []domain.Message
	for i, content := range history {
		msgs = append(msgs, domain.Message{
			ID:             id + "-m" + content,
			ConversationID: id,
			SenderID:       "peer-" + id,
			Content:        content,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	fb.Messages[id] = msgs
}
