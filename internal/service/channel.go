package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

// Validation and state errors detected locally, before any network call.
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrChannelNotReady = errors.New("channel is not ready")
	ErrChannelOpen     = errors.New("channel is already open")
)

// ChannelEvent describes one channel transition for subscribers. The view
// auto-advances to the newest message when MessagesChanged is set; state
// changes alone must not trigger a scroll.
type ChannelEvent struct {
	State           domain.ChannelState
	MessagesChanged bool
}

// Channel is the open, stateful connection to one conversation: its detail,
// its ordered message history, and send capability. States move
// Idle → Loading → Ready ⇄ Sending, with Error reachable from a failed
// fetch and Loading again on re-open.
type Channel struct {
	svc            *Service
	conversationID string

	mu       sync.Mutex
	state    domain.ChannelState
	detail   *domain.ConversationDetail
	messages []domain.Message
	lastErr  error
	subs     []func(ChannelEvent)
}

// NewChannel creates an idle channel for one conversation.
func (s *Service) NewChannel(conversationID string) *Channel {
	return &Channel{
		svc:            s,
		conversationID: conversationID,
		state:          domain.ChannelStateIdle,
	}
}

// ConversationID returns the conversation this channel is keyed to.
func (c *Channel) ConversationID() string { return c.conversationID }

// State returns the current channel state.
func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Detail returns the conversation detail once the channel is Ready.
func (c *Channel) Detail() *domain.ConversationDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detail
}

// Messages returns the ordered message sequence.
func (c *Channel) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.messages...)
}

// Err returns the last fetch or send error, for inline display.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers fn to be called after every channel transition.
func (c *Channel) Subscribe(fn func(ChannelEvent)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Open fetches the conversation detail and the full message history
// concurrently. Both must succeed before the channel is Ready; if either
// fails the partial result from the other is discarded and the channel
// ends in Error. Re-opening from Error retries.
func (c *Channel) Open(ctx context.Context) error {
	if _, err := c.svc.session.Require(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != domain.ChannelStateIdle && c.state != domain.ChannelStateError {
		c.mu.Unlock()
		return ErrChannelOpen
	}
	c.state = domain.ChannelStateLoading
	c.lastErr = nil
	c.mu.Unlock()
	c.emit(ChannelEvent{State: domain.ChannelStateLoading})

	ctx, cancel := context.WithTimeout(ctx, c.svc.cfg.RequestTimeout)
	defer cancel()

	var (
		wg        sync.WaitGroup
		detail    *domain.ConversationDetail
		messages  []domain.Message
		detailErr error
		histErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, detailErr = c.svc.backend.GetConversation(ctx, c.conversationID)
	}()
	go func() {
		defer wg.Done()
		messages, histErr = c.svc.backend.ListMessages(ctx, c.conversationID)
	}()
	wg.Wait()

	if err := firstError(detailErr, histErr); err != nil {
		c.svc.checkAuthFailure(detailErr)
		c.svc.checkAuthFailure(histErr)
		c.mu.Lock()
		c.state = domain.ChannelStateError
		c.detail = nil
		c.messages = nil
		c.lastErr = err
		c.mu.Unlock()
		c.emit(ChannelEvent{State: domain.ChannelStateError})
		return fmt.Errorf("failed to open conversation %s: %w", c.conversationID, err)
	}

	c.mu.Lock()
	c.state = domain.ChannelStateReady
	c.detail = detail
	c.messages = messages
	c.mu.Unlock()
	c.emit(ChannelEvent{State: domain.ChannelStateReady, MessagesChanged: true})
	return nil
}

// Send posts a message and appends the server-confirmed copy at the tail.
// Empty-after-trim content, a missing session, or a channel that is not
// Ready are all rejected locally with no network call. While the send is in
// flight the channel is Sending, so a second concurrent send is refused.
// On failure the channel returns to Ready with its history intact; the
// caller keeps the composed text for retry.
func (c *Channel) Send(ctx context.Context, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := c.svc.session.Require(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state != domain.ChannelStateReady {
		c.mu.Unlock()
		return nil, ErrChannelNotReady
	}
	c.state = domain.ChannelStateSending
	c.mu.Unlock()
	c.emit(ChannelEvent{State: domain.ChannelStateSending})

	ctx, cancel := context.WithTimeout(ctx, c.svc.cfg.RequestTimeout)
	defer cancel()

	msg, err := c.svc.backend.SendMessage(ctx, c.conversationID, content)
	if err != nil {
		c.svc.checkAuthFailure(err)
		c.mu.Lock()
		c.state = domain.ChannelStateReady
		c.lastErr = err
		c.mu.Unlock()
		c.emit(ChannelEvent{State: domain.ChannelStateReady})
		return nil, err
	}

	c.mu.Lock()
	c.state = domain.ChannelStateReady
	c.lastErr = nil
	c.messages = append(c.messages, *msg)
	c.mu.Unlock()
	c.emit(ChannelEvent{State: domain.ChannelStateReady, MessagesChanged: true})
	return msg, nil
}

func (c *Channel) emit(ev ChannelEvent) {
	c.mu.Lock()
	subs := make([]func(ChannelEvent), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
