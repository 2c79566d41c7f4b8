package service

import (
	"context"
	"log"
	"sync"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

// Controller composes the session store and one message channel for the
// currently open conversation. Selecting a conversation is a hard replace:
// the previous channel is torn down and any completion still in flight for
// it is discarded.
type Controller struct {
	svc *Service

	mu             sync.Mutex
	gen            uint64
	conversationID string
	channel        *Channel
	cancel         context.CancelFunc
	draft          string
	subs           []func()
}

// NewController creates a controller bound to the service's session. If the
// session dies while a conversation is open (external logout, expiry, or a
// rejected token) the controller drops the channel and shows signed-out.
func (s *Service) NewController() *Controller {
	ct := &Controller{svc: s}
	s.session.Subscribe(func() {
		if s.session.Current() == nil {
			ct.teardown()
		}
	})
	return ct
}

// Select makes conversationID the active conversation and opens its channel
// asynchronously. The returned channel reflects progress via its state and
// subscriptions. A completion arriving after a newer Select is dropped.
func (ct *Controller) Select(ctx context.Context, conversationID string) *Channel {
	ct.mu.Lock()
	ct.gen++
	myGen := ct.gen
	if ct.cancel != nil {
		ct.cancel()
	}
	openCtx, cancel := context.WithCancel(ctx)
	ct.cancel = cancel
	ch := ct.svc.NewChannel(conversationID)
	ct.channel = ch
	ct.conversationID = conversationID
	ct.draft = ""
	ct.mu.Unlock()
	ct.notify()

	go func() {
		err := ch.Open(openCtx)
		ct.mu.Lock()
		stale := ct.gen != myGen
		ct.mu.Unlock()
		if stale {
			// Late completion for a conversation that is no longer selected.
			return
		}
		if err != nil {
			log.Printf("WARN: failed to open conversation %s: %v", conversationID, err)
		}
		ct.notify()
	}()
	return ch
}

// Retry re-opens the active channel after a failed open.
func (ct *Controller) Retry(ctx context.Context) {
	ct.mu.Lock()
	id := ct.conversationID
	ct.mu.Unlock()
	if id != "" {
		ct.Select(ctx, id)
	}
}

// ViewState reports what should be on screen.
func (ct *Controller) ViewState() domain.ViewState {
	if ct.svc.session.Current() == nil {
		return domain.ViewStateSignedOut
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.channel == nil {
		return domain.ViewStateNoChat
	}
	return domain.ViewStateChat
}

// ActiveConversation returns the id of the selected conversation.
func (ct *Controller) ActiveConversation() string {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.conversationID
}

// Channel returns the channel of the active conversation, or nil.
func (ct *Controller) Channel() *Channel {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.channel
}

// Counterpart resolves the other participant of the active conversation
// from its detail and the current identity.
func (ct *Controller) Counterpart() (domain.Participant, bool) {
	claims := ct.svc.session.Current()
	if claims == nil {
		return domain.Participant{}, false
	}
	ct.mu.Lock()
	ch := ct.channel
	ct.mu.Unlock()
	if ch == nil {
		return domain.Participant{}, false
	}
	detail := ch.Detail()
	if detail == nil {
		return domain.Participant{}, false
	}
	return detail.Counterpart(claims.UserID)
}

// SetDraft stores the composed-but-unsent text.
func (ct *Controller) SetDraft(text string) {
	ct.mu.Lock()
	ct.draft = text
	ct.mu.Unlock()
}

// Draft returns the composer buffer.
func (ct *Controller) Draft() string {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.draft
}

// Send submits the draft through the active channel. The draft is cleared
// only on success; on failure it stays put so the user can retry.
func (ct *Controller) Send(ctx context.Context) (*domain.Message, error) {
	ct.mu.Lock()
	ch := ct.channel
	draft := ct.draft
	ct.mu.Unlock()
	if ch == nil {
		return nil, ErrChannelNotReady
	}

	msg, err := ch.Send(ctx, draft)
	if err != nil {
		return nil, err
	}

	ct.mu.Lock()
	if ct.channel == ch {
		ct.draft = ""
	}
	ct.mu.Unlock()
	ct.notify()
	return msg, nil
}

// Subscribe registers fn to be called after controller-level transitions.
func (ct *Controller) Subscribe(fn func()) {
	ct.mu.Lock()
	ct.subs = append(ct.subs, fn)
	ct.mu.Unlock()
}

func (ct *Controller) teardown() {
	ct.mu.Lock()
	ct.gen++
	if ct.cancel != nil {
		ct.cancel()
		ct.cancel = nil
	}
	ct.channel = nil
	ct.conversationID = ""
	ct.draft = ""
	ct.mu.Unlock()
	ct.notify()
}

func (ct *Controller) notify() {
	ct.mu.Lock()
	subs := make([]func(), len(ct.subs))
	copy(subs, ct.subs)
	ct.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
