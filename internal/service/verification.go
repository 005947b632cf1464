package service

import (
	"context"
	"strings"
	"time"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/repository"
)

// VerificationService answers public fingerprint checks. It only reads.
type VerificationService struct {
	store   repository.ContractStore
	timeout time.Duration
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(store repository.ContractStore, timeout time.Duration) *VerificationService {
	return &VerificationService{store: store, timeout: timeout}
}

// Verify compares the stored fingerprint with a presented one. An unknown
// contract is ErrContractNotFound; a mismatch is a result with IsValid false.
func (v *VerificationService) Verify(ctx context.Context, contractID, presentedHash string) (*models.VerificationResult, error) {
	c, err := loadContract(ctx, v.store, v.timeout, contractID)
	if err != nil {
		return nil, err
	}

	presented := strings.ToLower(strings.TrimSpace(presentedHash))
	return &models.VerificationResult{
		IsValid:         presented != "" && equalToken(presented, c.DigitalHash),
		ContractID:      c.ContractID,
		CreatedAt:       c.CreatedAt,
		Status:          c.ContractStatus.Current,
		PropertyAddress: c.PropertyAddress,
		LandlordName:    c.LandlordDetails.Name,
		TenantName:      c.TenantDetails.Name,
	}, nil
}

// Verify delegates to the read-only verification path
func (s *DefaultService) Verify(ctx context.Context, contractID, presentedHash string) (*models.VerificationResult, error) {
	return s.verifier.Verify(ctx, contractID, presentedHash)
}
