package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rongwang/lease-contract-server/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when a save was based on a stale version
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// ContractStore persists contracts by their business identifier. Every call
// is atomic for a single contract.
type ContractStore interface {
	GetContract(ctx context.Context, contractID string) (*models.Contract, error)
	// CreateContract inserts a new contract at version 1
	CreateContract(ctx context.Context, contract *models.Contract) error
	// SaveContract writes the contract only if the stored version still equals
	// contract.Version, then advances contract.Version.
	SaveContract(ctx context.Context, contract *models.Contract) error
	DeleteContract(ctx context.Context, contractID string) error
	ListContractsByParty(ctx context.Context, userID string) ([]*models.Contract, error)
}

// UserDirectory resolves users known to the system
type UserDirectory interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserExists(ctx context.Context, userID string) (bool, error)
	// GetDisplayInfo returns nil, nil when the user does not exist
	GetDisplayInfo(ctx context.Context, userID string) (*models.DisplayInfo, error)
}

// PropertyStatusSync flips a property's occupancy
type PropertyStatusSync interface {
	MarkRented(ctx context.Context, propertyID, tenantID string, at time.Time) error
}

// ChatBridge inserts system messages into the conversation between the
// participants about a property, creating the conversation when absent.
type ChatBridge interface {
	PostSystemMessage(ctx context.Context, propertyID string, participantIDs []string, text string) error
}

// SignatureVault keeps one reusable signature image per user
type SignatureVault interface {
	GetStoredSignature(ctx context.Context, userID string) (string, bool, error)
	StoreSignature(ctx context.Context, userID, signatureImage string) error
}

// PropertyRegistry manages property records
type PropertyRegistry interface {
	UpsertProperty(ctx context.Context, property *models.Property) error
	GetProperty(ctx context.Context, propertyID string) (*models.Property, error)
}

// Repository groups every collaborator the contract service consumes
type Repository interface {
	ContractStore
	UserDirectory
	PropertyStatusSync
	PropertyRegistry
	ChatBridge
	SignatureVault
}

// participantKey is an order-independent key for a set of participants
func participantKey(ids []string) string {
	cp := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			cp = append(cp, id)
		}
	}
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
