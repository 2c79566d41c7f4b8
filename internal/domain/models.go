package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields embedded in the bearer token. They are decoded
// client-side for UI gating only; the server remains the authority.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Participant is one side of a direct conversation.
type Participant struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
}

// ConversationPreview is one row of the conversation directory.
type ConversationPreview struct {
	ConversationID       string    `json:"conversationId"`
	OtherParticipantID   string    `json:"otherParticipantId"`
	OtherParticipantName string    `json:"otherParticipantName"`
	LastMessageContent   string    `json:"lastMessageContent"`
	LastMessageAt        time.Time `json:"lastMessageAt"`
	OfferTitle           string    `json:"offerTitle"`
}

// ConversationDetail describes one conversation and its participants.
type ConversationDetail struct {
	ConversationID string        `json:"conversationId"`
	OfferID        string        `json:"offerId"`
	OfferTitle     string        `json:"offerTitle"`
	Participants   []Participant `json:"participants"`
}

// Counterpart returns the participant that is not selfID. The second
// return is false for conversations where no such participant exists.
func (d *ConversationDetail) Counterpart(selfID string) (Participant, bool) {
	for _, p := range d.Participants {
		if p.ID != selfID {
			return p, true
		}
	}
	return Participant{}, false
}

// Message is a single message in a conversation.
type Message struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversationId"`
	SenderID        string    `json:"senderId"`
	SenderFirstName string    `json:"senderFirstName"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"createdAt"`
	IsRead          bool      `json:"isRead"`
}

// OfferSummary is one row of the public offer listing.
type OfferSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	OfferType       OfferType `json:"offerType"`
	CreatedAt       time.Time `json:"createdAt"`
	AuthorID        string    `json:"authorId"`
	AuthorFirstName string    `json:"authorFirstName"`
	HasResponded    bool      `json:"hasResponded"`
}

// LoginPayload is the request body for /api/auth/login.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendMessagePayload is the request body for posting a message.
type SendMessagePayload struct {
	Content string `json:"content"`
}

// InitiateChatPayload is the request body for creating a conversation
// about an offer.
type InitiateChatPayload struct {
	OfferID     string `json:"offerId"`
	RecipientID string `json:"recipientId"`
}
