// Package domain defines the core domain models for the client.
package domain

// ChannelState represents the state of an open message channel.
type ChannelState string

const (
	ChannelStateIdle    ChannelState = "IDLE"
	ChannelStateLoading ChannelState = "LOADING"
	ChannelStateReady   ChannelState = "READY"
	ChannelStateSending ChannelState = "SENDING"
	ChannelStateError   ChannelState = "ERROR"
)

// ViewState represents what the chat controller should be showing.
type ViewState string

const (
	ViewStateSignedOut ViewState = "SIGNED_OUT"
	ViewStateNoChat    ViewState = "NO_CHAT"
	ViewStateChat      ViewState = "CHAT"
)

// OfferType distinguishes requests for service from service offers.
type OfferType string

const (
	OfferTypeRequestForService OfferType = "request_for_service"
	OfferTypeServiceOffer      OfferType = "service_offer"
)
