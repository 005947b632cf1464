package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/rongwang/lease-contract-server/internal/repository"
	"github.com/rs/zerolog"
)

// Service defines all contract lifecycle operations
type Service interface {
	// Creation and reads
	CreateContract(ctx context.Context, actor models.Actor, req models.CreateContractRequest) (*models.Contract, error)
	GetContract(ctx context.Context, actor models.Actor, contractID string) (*models.Contract, error)
	ListContracts(ctx context.Context, actor models.Actor) ([]*models.Contract, error)
	DeleteContract(ctx context.Context, actor models.Actor, contractID string) error

	// Terms and documents
	UpdateTerms(ctx context.Context, actor models.Actor, contractID string, req models.UpdateTermsRequest) (*models.Contract, error)
	AttachDocument(ctx context.Context, actor models.Actor, contractID, documentType, reference string) (*models.Contract, error)

	// Approval
	Approve(ctx context.Context, actor models.Actor, contractID, feedback string) (*models.Contract, error)
	Reject(ctx context.Context, actor models.Actor, contractID, feedback string) (*models.Contract, error)

	// Signing
	Sign(ctx context.Context, actor models.Actor, contractID string, req models.SignRequest) (*models.Contract, error)
	IssueVerificationCode(ctx context.Context, actor models.Actor, contractID string) (*models.VerificationCodeResponse, error)
	VerifySignature(ctx context.Context, contractID, role, code string) (*models.SignatureVerificationResult, error)
	SendSignatureReminder(ctx context.Context, actor models.Actor, contractID, recipientRole string) (*models.ReminderResponse, error)

	// Stored signatures
	StoreSignature(ctx context.Context, actor models.Actor, signatureImage string) error
	GetStoredSignature(ctx context.Context, actor models.Actor) (string, error)

	// Public audit
	Verify(ctx context.Context, contractID, presentedHash string) (*models.VerificationResult, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo     repository.Repository
	bridge   notify.Bridge
	verifier *VerificationService
	locks    *keyedLocker
	cfg      config.ContractConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	bridge notify.Bridge,
	cfg config.ContractConfig,
	log zerolog.Logger,
) *DefaultService {
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = 30 * 24 * time.Hour
	}
	return &DefaultService{
		repo:     repo,
		bridge:   bridge,
		verifier: NewVerificationService(repo, cfg.StoreTimeout),
		locks:    newKeyedLocker(),
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// withStoreTimeout bounds a store call unless the caller already set a deadline
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// loadContract reads a contract and translates a miss into ErrContractNotFound
func loadContract(ctx context.Context, store repository.ContractStore, timeout time.Duration, contractID string) (*models.Contract, error) {
	sctx, cancel := withStoreTimeout(ctx, timeout)
	defer cancel()

	c, err := store.GetContract(sctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("error getting contract: %w", err)
	}
	return c, nil
}

// mutate runs a read-modify-write on one contract under its lock. fn reports
// whether it changed anything; unchanged contracts are not written.
func (s *DefaultService) mutate(
	ctx context.Context,
	contractID string,
	fn func(c *models.Contract) (bool, error),
) (*models.Contract, bool, error) {
	unlock, err := s.locks.Lock(ctx, contractID)
	if err != nil {
		return nil, false, fmt.Errorf("waiting for contract lock: %w", err)
	}
	defer unlock()

	c, err := loadContract(ctx, s.repo, s.cfg.StoreTimeout, contractID)
	if err != nil {
		return nil, false, err
	}

	changed, err := fn(c)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return c, false, nil
	}

	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.repo.SaveContract(sctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, false, ErrVersionConflict
		case errors.Is(err, repository.ErrNotFound):
			return nil, false, ErrContractNotFound
		}
		return nil, false, fmt.Errorf("error saving contract: %w", err)
	}
	return c, true, nil
}

// effectContext detaches side effects from caller cancellation; the state
// change they follow is already committed.
func (s *DefaultService) effectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
}

// emit pushes one event. Failures are logged and swallowed.
func (s *DefaultService) emit(ctx context.Context, contractID, audienceID, event string, payload interface{}) {
	if audienceID == "" {
		return
	}
	ectx, cancel := s.effectContext(ctx)
	defer cancel()

	if err := s.bridge.Emit(ectx, audienceID, event, payload); err != nil {
		s.log.Warn().Err(err).
			Str("contract_id", contractID).
			Str("audience", audienceID).
			Str("event_type", event).
			Msg("notification: failed to emit event (non-fatal)")
	}
}

func (s *DefaultService) emitToParties(ctx context.Context, c *models.Contract, event string, payload interface{}) {
	s.emit(ctx, c.ContractID, c.LandlordID, event, payload)
	s.emit(ctx, c.ContractID, c.TenantID, event, payload)
}

// markPropertyRented applies the property side effect of a finalized contract
func (s *DefaultService) markPropertyRented(ctx context.Context, c *models.Contract, at time.Time) {
	ectx, cancel := s.effectContext(ctx)
	defer cancel()

	if err := s.repo.MarkRented(ectx, c.PropertyID, c.TenantID, at); err != nil {
		s.log.Warn().Err(err).
			Str("contract_id", c.ContractID).
			Str("property_id", c.PropertyID).
			Msg("Failed to mark property as rented (non-fatal)")
		return
	}

	s.log.Info().
		Str("contract_id", c.ContractID).
		Str("property_id", c.PropertyID).
		Str("tenant_id", c.TenantID).
		Msg("Property marked as rented")
}

// postChat records a system message in the landlord/tenant conversation
func (s *DefaultService) postChat(ctx context.Context, c *models.Contract, text string) {
	ectx, cancel := s.effectContext(ctx)
	defer cancel()

	err := s.repo.PostSystemMessage(ectx, c.PropertyID, []string{c.LandlordID, c.TenantID}, text)
	if err != nil {
		s.log.Warn().Err(err).
			Str("contract_id", c.ContractID).
			Str("property_id", c.PropertyID).
			Msg("Failed to post chat system message (non-fatal)")
	}
}

// updatePayload accompanies contract update events
type updatePayload struct {
	Contract models.ContractSummary `json:"contract"`
	Action   string                 `json:"action"`
	Role     models.Role            `json:"role,omitempty"`
	Feedback string                 `json:"feedback,omitempty"`
}
