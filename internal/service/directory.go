package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

// ErrDirectoryUnavailable wraps transport or server failures while fetching
// the conversation list. The previously loaded list is left untouched.
var ErrDirectoryUnavailable = errors.New("conversation directory unavailable")

// Directory holds the authenticated user's conversation list. The list is
// replaced wholesale on every successful refresh, preserving server order;
// it is never updated incrementally by channel activity.
type Directory struct {
	svc *Service

	mu            sync.Mutex
	conversations []domain.ConversationPreview
	loaded        bool
}

// NewDirectory creates a directory bound to the service's session. A
// session transition invalidates what was loaded: a logout clears the list,
// a login marks it stale for the caller to refresh.
func (s *Service) NewDirectory() *Directory {
	d := &Directory{svc: s}
	s.session.Subscribe(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.loaded = false
		if s.session.Current() == nil {
			d.conversations = nil
		}
	})
	return d
}

// Refresh fetches the conversation list. With no valid session it fails
// fast locally, without a network round trip.
func (d *Directory) Refresh(ctx context.Context) error {
	if _, err := d.svc.session.Require(); err != nil {
		return err
	}

	list, err := d.svc.backend.ListConversations(ctx)
	if err != nil {
		d.svc.checkAuthFailure(err)
		return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	d.mu.Lock()
	d.conversations = list
	d.loaded = true
	d.mu.Unlock()
	return nil
}

// Conversations returns the current list in server order. The result may
// be stale after an error or a session change; callers wanting freshness
// must Refresh explicitly.
func (d *Directory) Conversations() []domain.ConversationPreview {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.ConversationPreview(nil), d.conversations...)
}

// Loaded reports whether the list reflects a fetch for the current session.
func (d *Directory) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}
