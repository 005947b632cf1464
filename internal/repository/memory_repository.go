package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/lease-contract-server/internal/models"
)

// MemoryRepository implements Repository in process memory. It is used by
// tests and by `contractd serve --memory` for local runs.
type MemoryRepository struct {
	mu            sync.RWMutex
	contracts     map[string]*models.Contract
	users         map[string]*models.User
	properties    map[string]*models.Property
	conversations map[string]*models.Conversation
	messages      map[string][]models.ChatMessage
	signatures    map[string]string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		contracts:     make(map[string]*models.Contract),
		users:         make(map[string]*models.User),
		properties:    make(map[string]*models.Property),
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.ChatMessage),
		signatures:    make(map[string]string),
	}
}

func (r *MemoryRepository) GetContract(ctx context.Context, contractID string) (*models.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[contractID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (r *MemoryRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contracts[contract.ContractID]; ok {
		return ErrDuplicate
	}
	contract.Version = 1
	r.contracts[contract.ContractID] = contract.Clone()
	return nil
}

func (r *MemoryRepository) SaveContract(ctx context.Context, contract *models.Contract) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.contracts[contract.ContractID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != contract.Version {
		return ErrVersionConflict
	}
	contract.Version++
	r.contracts[contract.ContractID] = contract.Clone()
	return nil
}

func (r *MemoryRepository) DeleteContract(ctx context.Context, contractID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contracts[contractID]; !ok {
		return ErrNotFound
	}
	delete(r.contracts, contractID)
	return nil
}

func (r *MemoryRepository) ListContractsByParty(ctx context.Context, userID string) ([]*models.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Contract
	for _, c := range r.contracts {
		if c.LandlordID == userID || c.TenantID == userID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, u := range r.users {
		if u.ID == user.ID || (user.Email != "" && u.Email == user.Email) {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *MemoryRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok, nil
}

func (r *MemoryRepository) GetDisplayInfo(ctx context.Context, userID string) (*models.DisplayInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	return &models.DisplayInfo{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

func (r *MemoryRepository) UpsertProperty(ctx context.Context, property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	if property.Status == "" {
		property.Status = models.PropertyAvailable
	}
	property.UpdatedAt = time.Now().UTC()
	cp := *property
	r.properties[property.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.properties[propertyID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) MarkRented(ctx context.Context, propertyID, tenantID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.properties[propertyID]
	if !ok {
		return ErrNotFound
	}
	rentedTo, rentedAt := tenantID, at
	p.Status = models.PropertyRented
	p.RentedTo = &rentedTo
	p.RentedAt = &rentedAt
	p.UpdatedAt = at
	return nil
}

func (r *MemoryRepository) PostSystemMessage(ctx context.Context, propertyID string, participantIDs []string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := propertyID + "|" + participantKey(participantIDs)
	conv, ok := r.conversations[key]
	if !ok {
		conv = &models.Conversation{
			ID:             uuid.New().String(),
			PropertyID:     propertyID,
			ParticipantKey: participantKey(participantIDs),
			CreatedAt:      now,
		}
		r.conversations[key] = conv
	}
	conv.UpdatedAt = now

	r.messages[conv.ID] = append(r.messages[conv.ID], models.ChatMessage{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Body:           text,
		IsSystem:       true,
		CreatedAt:      now,
	})
	return nil
}

// Messages returns the messages of the conversation between the participants
// about a property, oldest first.
func (r *MemoryRepository) Messages(propertyID string, participantIDs []string) []models.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[propertyID+"|"+participantKey(participantIDs)]
	if !ok {
		return nil
	}
	return append([]models.ChatMessage(nil), r.messages[conv.ID]...)
}

func (r *MemoryRepository) GetStoredSignature(ctx context.Context, userID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.signatures[userID]
	return img, ok && img != "", nil
}

func (r *MemoryRepository) StoreSignature(ctx context.Context, userID, signatureImage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signatures[userID] = signatureImage
	return nil
}
