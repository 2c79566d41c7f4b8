// Package backend is the HTTP client for the MasterDom REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

// Sentinel errors mapped from HTTP status codes. ErrUnauthorized means the
// server no longer accepts the bearer token; callers must treat it as
// session expiry, not as a single failed request.
var (
	ErrUnauthorized = errors.New("token rejected by server")
	ErrForbidden    = errors.New("not a participant of this conversation")
	ErrNotFound     = errors.New("resource not found")
)

// StatusError carries a non-success response that maps to no sentinel.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend error [%d]: %s", e.Code, e.Message)
}

// TokenSource supplies the current bearer token for outgoing requests.
type TokenSource interface {
	Token() (string, bool)
}

// Client is the marketplace API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a new API client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	payload := domain.LoginPayload{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", payload, &resp); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	return resp.Token, nil
}

// ListConversations fetches the conversation directory for the current
// identity, in server order.
func (c *Client) ListConversations(ctx context.Context) ([]domain.ConversationPreview, error) {
	var list []domain.ConversationPreview
	if err := c.doJSON(ctx, http.MethodGet, "/api/chats", nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return list, nil
}

// GetConversation fetches the detail of one conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*domain.ConversationDetail, error) {
	var detail domain.ConversationDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/chats/"+conversationID, nil, &detail); err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", conversationID, err)
	}
	return &detail, nil
}

// ListMessages fetches the full ordered message history of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	if err := c.doJSON(ctx, http.MethodGet, "/api/chats/"+conversationID+"/messages", nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to get messages for %s: %w", conversationID, err)
	}
	return messages, nil
}

// SendMessage posts a message and returns the server-confirmed copy.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*domain.Message, error) {
	var msg domain.Message
	payload := domain.SendMessagePayload{Content: content}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chats/"+conversationID+"/messages", payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &msg, nil
}

// InitiateChat creates (or reuses) the conversation about an offer with the
// given recipient and returns its id.
func (c *Client) InitiateChat(ctx context.Context, offerID, recipientID string) (string, error) {
	var resp struct {
		ConversationID string `json:"conversationId"`
	}
	payload := domain.InitiateChatPayload{OfferID: offerID, RecipientID: recipientID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chats", payload, &resp); err != nil {
		return "", fmt.Errorf("failed to initiate chat: %w", err)
	}
	return resp.ConversationID, nil
}

// ListOffers fetches the public offer listing, optionally filtered by type.
func (c *Client) ListOffers(ctx context.Context, offerType domain.OfferType) ([]domain.OfferSummary, error) {
	path := "/api/offers"
	if offerType != "" {
		path += "?type=" + string(offerType)
	}
	var offers []domain.OfferSummary
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &offers); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

// doJSON performs one round trip: marshal body, attach the bearer token,
// map error statuses, unmarshal the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func statusError(code int, body []byte) error {
	message := http.StatusText(code)
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	}
	return &StatusError{Code: code, Message: message}
}
