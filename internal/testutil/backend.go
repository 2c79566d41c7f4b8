// Package testutil provides a fake marketplace backend and token helpers
// shared by the client test suites.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

// MintToken signs a bearer token with the given identity and expiry. The
// client never verifies signatures, so the key is arbitrary.
func MintToken(t *testing.T, userID, role string, expiresAt time.Time) string {
	t.Helper()
	claims := &domain.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

// FakeBackend is an in-process marketplace API for tests. Handlers serve
// the fixture fields; the Fail* and Gate* knobs inject faults and delays.
type FakeBackend struct {
	Server *httptest.Server

	mu            sync.Mutex
	Conversations []domain.ConversationPreview
	Details       map[string]domain.ConversationDetail
	Messages      map[string][]domain.Message
	Offers        []domain.OfferSummary
	LoginToken    string

	FailList    bool
	FailDetail  bool
	FailHistory bool
	FailSend    bool
	RejectToken bool

	// DetailGates and HistoryGates block the matching fetch for one
	// conversation until the channel is closed.
	DetailGates  map[string]chan struct{}
	HistoryGates map[string]chan struct{}

	SendCalls        int
	ListCalls        int
	inFlightSends    int
	MaxInFlightSends int
}

// NewFakeBackend starts the fake server. It is shut down with the test.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		Details:      map[string]domain.ConversationDetail{},
		Messages:     map[string][]domain.Message{},
		DetailGates:  map[string]chan struct{}{},
		HistoryGates: map[string]chan struct{}{},
	}

	e := echo.New()
	api := e.Group("/api", fb.requireBearer)
	e.POST("/api/auth/login", fb.handleLogin)
	api.GET("/chats", fb.handleListConversations)
	api.GET("/chats/:id", fb.handleChatDetails)
	api.GET("/chats/:id/messages", fb.handleMessages)
	api.POST("/chats/:id/messages", fb.handlePostMessage)
	api.POST("/chats", fb.handleInitiateChat)
	api.GET("/offers", fb.handleOffers)

	fb.Server = httptest.NewServer(e)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL of the fake server.
func (fb *FakeBackend) URL() string { return fb.Server.URL }

func (fb *FakeBackend) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authorization header is missing"})
		}
		fb.mu.Lock()
		rejected := fb.RejectToken
		fb.mu.Unlock()
		if rejected {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
		}
		return next(c)
	}
}

func (fb *FakeBackend) handleLogin(c echo.Context) error {
	var payload domain.LoginPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid input"})
	}
	fb.mu.Lock()
	token := fb.LoginToken
	fb.mu.Unlock()
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

func (fb *FakeBackend) handleListConversations(c echo.Context) error {
	fb.mu.Lock()
	fb.ListCalls++
	fail := fb.FailList
	list := append([]domain.ConversationPreview(nil), fb.Conversations...)
	fb.mu.Unlock()
	if fail {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get conversations"})
	}
	return c.JSON(http.StatusOK, list)
}

func (fb *FakeBackend) handleChatDetails(c echo.Context) error {
	fb.mu.Lock()
	fail := fb.FailDetail
	gate := fb.DetailGates[c.Param("id")]
	detail, ok := fb.Details[c.Param("id")]
	fb.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get chat details"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}
	return c.JSON(http.StatusOK, detail)
}

func (fb *FakeBackend) handleMessages(c echo.Context) error {
	fb.mu.Lock()
	fail := fb.FailHistory
	gate := fb.HistoryGates[c.Param("id")]
	msgs := append([]domain.Message(nil), fb.Messages[c.Param("id")]...)
	fb.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get messages"})
	}
	return c.JSON(http.StatusOK, msgs)
}

func (fb *FakeBackend) handlePostMessage(c echo.Context) error {
	var payload domain.SendMessagePayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid input"})
	}

	fb.mu.Lock()
	fb.SendCalls++
	fb.inFlightSends++
	if fb.inFlightSends > fb.MaxInFlightSends {
		fb.MaxInFlightSends = fb.inFlightSends
	}
	fail := fb.FailSend
	fb.mu.Unlock()

	// Give overlapping sends a chance to overlap.
	time.Sleep(5 * time.Millisecond)

	fb.mu.Lock()
	fb.inFlightSends--
	fb.mu.Unlock()

	if fail {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to post message"})
	}

	id := c.Param("id")
	fb.mu.Lock()
	msg := domain.Message{
		ID:             "m-sent-" + payload.Content,
		ConversationID: id,
		SenderID:       "self",
		Content:        payload.Content,
		CreatedAt:      time.Now().UTC(),
	}
	fb.Messages[id] = append(fb.Messages[id], msg)
	fb.mu.Unlock()
	return c.JSON(http.StatusCreated, msg)
}

func (fb *FakeBackend) handleInitiateChat(c echo.Context) error {
	var payload domain.InitiateChatPayload
	if err := c.Bind(&payload); err != nil || payload.OfferID == "" || payload.RecipientID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid input"})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversationId": "conv-" + payload.OfferID})
}

func (fb *FakeBackend) handleOffers(c echo.Context) error {
	fb.mu.Lock()
	offers := append([]domain.OfferSummary(nil), fb.Offers...)
	fb.mu.Unlock()
	return c.JSON(http.StatusOK, offers)
}
