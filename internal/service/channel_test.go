package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/session"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/testutil"
)

func TestChannelOpenMergesDetailAndHistory(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1", "hi", "hello", "how are you")

	ch := svc.NewChannel("c1")
	require.Equal(t, domain.ChannelStateIdle, ch.State())
	require.NoError(t, ch.Open(context.Background()))

	assert.Equal(t, domain.ChannelStateReady, ch.State())
	require.NotNil(t, ch.Detail())
	assert.Equal(t, "Offer for c1", ch.Detail().OfferTitle)

	messages := ch.Messages()
	require.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"history must be non-decreasing by createdAt")
	}
}

func TestChannelOpenAllOrNothing(t *testing.T) {
	for name, setup := range map[string]func(fb *testutil.FakeBackend){
		"history fails": func(fb *testutil.FakeBackend) { fb.FailHistory = true },
		"detail fails":  func(fb *testutil.FakeBackend) { fb.FailDetail = true },
	} {
		t.Run(name, func(t *testing.T) {
			svc, fb := newTestService(t)
			signIn(t, svc)
			seedConversation(fb, "c9", "hi")
			setup(fb)

			ch := svc.NewChannel("c9")
			err := ch.Open(context.Background())
			require.Error(t, err)

			assert.Equal(t, domain.ChannelStateError, ch.State())
			assert.Nil(t, ch.Detail(), "partial state must be discarded")
			assert.Empty(t, ch.Messages())
			assert.Error(t, ch.Err())
		})
	}
}

func TestChannelReopenFromError(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1", "hi")
	fb.FailHistory = true

	ch := svc.NewChannel("c1")
	require.Error(t, ch.Open(context.Background()))
	require.Equal(t, domain.ChannelStateError, ch.State())

	fb.FailHistory = false
	require.NoError(t, ch.Open(context.Background()))
	assert.Equal(t, domain.ChannelStateReady, ch.State())
	assert.Len(t, ch.Messages(), 1)
}

func TestChannelOpenRejectedWhileReady(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1")

	ch := svc.NewChannel("c1")
	require.NoError(t, ch.Open(context.Background()))
	assert.ErrorIs(t, ch.Open(context.Background()), ErrChannelOpen)
}

func TestChannelOpenUnauthenticated(t *testing.T) {
	svc, fb := newTestService(t)
	seedConversation(fb, "c1")

	ch := svc.NewChannel("c1")
	err := ch.Open(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.Equal(t, domain.ChannelStateIdle, ch.State())
}

func TestChannelSendAppendsServerCopy(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1", "hi")

	ch := svc.NewChannel("c1")
	require.NoError(t, ch.Open(context.Background()))

	msg, err := ch.Send(context.Background(), "hello back")
	require.NoError(t, err)
	assert.Equal(t, "hello back", msg.Content)

	messages := ch.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "hello back", messages[1].Content, "confirmed message is appended at the tail")
	assert.Equal(t, domain.ChannelStateReady, ch.State())
}

func TestChannelSendWhitespaceRejectedLocally(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1", "hi")

	ch := svc.NewChannel("c1")
	require.NoError(t, ch.Open(context.Background()))

	_, err := ch.Send(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, fb.SendCalls, "no request may be issued")
	assert.Equal(t, domain.ChannelStateReady, ch.State())
	assert.Len(t, ch.Messages(), 1)
}

func TestChannelSendBeforeReady(t *testing.T) {
	svc, _ := newTestService(t)
	signIn(t, svc)

	ch := svc.NewChannel("c1")
	_, err := ch.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrChannelNotReady)
}

func TestChannelSendUnauthenticatedNoNetwork(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1")

	ch := svc.NewChannel("c1")
	require.NoError(t, ch.Open(context.Background()))

	svc.Session().Logout()
	_, err := ch.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.Zero(t, fb.SendCalls)
}

func TestChannelSendFailurePreservesHistory(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1", "hi")
	fb.FailSend = true

	ch := svc.NewChannel("c1")
	require.NoError(t, ch.Open(context.Background()))

	_, err := ch.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, domain.ChannelStateReady, ch.State(), "failed send returns to Ready")
	assert.Len(t, ch.Messages(), 1, "no optimistic message is shown")
	assert.Error(t, ch.Err())
}

func TestChannelNeverPipelinesSends(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1")

	ch := svc.NewChannel("c1")
	require.NoError(t, ch.Open(context.Background()))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var sent, refused int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ch.Send(context.Background(), "stress")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sent++
			} else {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, sent, 1)
	assert.Equal(t, 8, sent+refused)
	assert.LessOrEqual(t, fb.MaxInFlightSends, 1,
		"at most one send may be in flight per channel")
}

func TestChannelEventsOnOpenAndSend(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1", "hi")

	ch := svc.NewChannel("c1")

	var mu sync.Mutex
	var events []ChannelEvent
	ch.Subscribe(func(ev ChannelEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	require.NoError(t, ch.Open(context.Background()))
	_, err := ch.Send(context.Background(), "yo")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.Equal(t, domain.ChannelStateLoading, events[0].State)
	assert.Equal(t, domain.ChannelStateReady, events[1].State)
	assert.True(t, events[1].MessagesChanged, "reaching Ready changes the sequence length")
	assert.Equal(t, domain.ChannelStateSending, events[2].State)
	assert.False(t, events[2].MessagesChanged)
	assert.Equal(t, domain.ChannelStateReady, events[3].State)
	assert.True(t, events[3].MessagesChanged, "append triggers the scroll notification")
}

func TestChannelOpenTimesOut(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1")

	gate := make(chan struct{})
	fb.HistoryGates["c1"] = gate
	defer close(gate)
	svc.cfg.RequestTimeout = 150 * time.Millisecond

	ch := svc.NewChannel("c1")
	err := ch.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.ChannelStateError, ch.State())
}

func TestChannelTokenRejectionDuringOpenForcesLogout(t *testing.T) {
	svc, fb := newTestService(t)
	signIn(t, svc)
	seedConversation(fb, "c1")
	fb.RejectToken = true

	ch := svc.NewChannel("c1")
	require.Error(t, ch.Open(context.Background()))
	assert.Nil(t, svc.Session().Current())
}
