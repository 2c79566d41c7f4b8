// Package service drives the conversation directory and per-conversation
// message exchange on top of the session store and the backend client.
package service

import (
	"errors"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/adapter/backend"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/config"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/session"
)

// Service bundles the collaborators every component needs.
type Service struct {
	session *session.Store
	backend *backend.Client
	cfg     *config.Config
}

// New creates the service layer.
func New(sess *session.Store, client *backend.Client, cfg *config.Config) *Service {
	return &Service{
		session: sess,
		backend: client,
		cfg:     cfg,
	}
}

// Session exposes the session store for read access and subscriptions.
func (s *Service) Session() *session.Store { return s.session }

// Backend exposes the API client for one-shot operations (login, offer
// listing, chat initiation) that carry no client-side state.
func (s *Service) Backend() *backend.Client { return s.backend }

// checkAuthFailure forces a logout when the server reports that the token
// is no longer accepted. Every component routes backend errors through it.
func (s *Service) checkAuthFailure(err error) {
	if errors.Is(err, backend.ErrUnauthorized) {
		s.session.Logout()
	}
}
