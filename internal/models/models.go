package models

import (
	"time"
)

// User is a directory entry for a party that can act on contracts
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayInfo is the public identity of a user shown on contracts
type DisplayInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Property occupancy values
const (
	PropertyAvailable = "available"
	PropertyRented    = "rented"
)

// Property is the rentable unit a contract refers to
type Property struct {
	ID        string     `db:"id" json:"id"`
	OwnerID   string     `db:"owner_id" json:"ownerId"`
	Address   string     `db:"address" json:"address"`
	Status    string     `db:"status" json:"status"`
	RentedTo  *string    `db:"rented_to" json:"rentedTo,omitempty"`
	RentedAt  *time.Time `db:"rented_at" json:"rentedAt,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// Conversation is a chat thread between participants about a property
type Conversation struct {
	ID             string    `db:"id" json:"id"`
	PropertyID     string    `db:"property_id" json:"propertyId"`
	ParticipantKey string    `db:"participant_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// ChatMessage is one message in a conversation. System messages have no sender.
type ChatMessage struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       *string   `db:"sender_id" json:"senderId,omitempty"`
	Body           string    `db:"body" json:"body"`
	IsSystem       bool      `db:"is_system" json:"isSystem"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// StoredSignature is a previously captured signature image a user can reuse
type StoredSignature struct {
	UserID         string    `db:"user_id" json:"userId"`
	SignatureImage string    `db:"signature_image" json:"signatureImage"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
