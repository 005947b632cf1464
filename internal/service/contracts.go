package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/rongwang/lease-contract-server/internal/repository"
)

const createdReason = "Contract created by landlord"

// createdPayload is sent to both parties when a contract is drafted
type createdPayload struct {
	ContractID   string        `json:"contractId"`
	Title        string        `json:"title"`
	LandlordName string        `json:"landlordName"`
	TenantName   string        `json:"tenantName"`
	Status       models.Status `json:"status"`
}

// CreateContract drafts a contract with the acting user as landlord
func (s *DefaultService) CreateContract(
	ctx context.Context,
	actor models.Actor,
	req models.CreateContractRequest,
) (*models.Contract, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}

	if fields := validateContract(&req); len(fields) > 0 {
		return nil, newValidationError("missing or invalid required fields", fields)
	}

	contractID := deref(req.ContractID)
	tenantID := deref(req.TenantID)
	witnessUserID := deref(req.WitnessUserID)

	if tenantID == actor.UserID {
		return nil, newValidationError("landlord and tenant must be different users", []string{"tenantId"})
	}
	if witnessConflicts(witnessUserID, actor.UserID, tenantID) {
		return nil, newValidationError("witness must not be a party to the contract", []string{"witnessUserId"})
	}

	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// Check if the contract id is already taken
	_, err := s.repo.GetContract(sctx, contractID)
	switch {
	case err == nil:
		return nil, ErrDuplicateContractID
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("error checking contract existence: %w", err)
	}

	// Check if the tenant exists
	exists, err := s.repo.UserExists(sctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error checking tenant existence: %w", err)
	}
	if !exists {
		return nil, ErrTenantNotFound
	}

	now := s.now()
	contract := &models.Contract{
		ContractID:         contractID,
		PropertyID:         deref(req.PropertyID),
		TenantID:           tenantID,
		LandlordID:         actor.UserID,
		PropertyAddress:    deref(req.PropertyAddress),
		StartDate:          req.StartDate.UTC(),
		EndDate:            req.EndDate.UTC(),
		MonthlyRent:        *req.MonthlyRent,
		SecurityDeposit:    *req.SecurityDeposit,
		Terms:              deref(req.Terms),
		Conditions:         deref(req.Conditions),
		PlaceOfExecution:   deref(req.PlaceOfExecution),
		Bedrooms:           *req.Bedrooms,
		Fans:               *req.Fans,
		Lights:             *req.Lights,
		Geysers:            *req.Geysers,
		Mirrors:            *req.Mirrors,
		Taps:               *req.Taps,
		MaintenanceCharges: *req.MaintenanceCharges,
		LandlordFatherName: deref(req.LandlordFatherName),
		TenantFatherName:   deref(req.TenantFatherName),
		TenantOccupation:   deref(req.TenantOccupation),
		WitnessName:        deref(req.WitnessName),
		WitnessAddress:     deref(req.WitnessAddress),
		WitnessUserID:      witnessUserID,
		LandlordDetails:    partyDetails(req.LandlordDetails),
		TenantDetails:      partyDetails(req.TenantDetails),
		Documents:          models.Documents{},
		ExpiresAt:          now.Add(s.cfg.ExpiryWindow),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	contract.AppendStatus(models.StatusPendingLandlordSignature, actor.UserID, createdReason, actor.IPAddress, now)

	if contract.DigitalHash, err = Fingerprint(contract); err != nil {
		return nil, err
	}

	if err := s.repo.CreateContract(sctx, contract); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateContractID
		}
		return nil, fmt.Errorf("error creating contract: %w", err)
	}

	s.log.Info().
		Str("contract_id", contract.ContractID).
		Str("property_id", contract.PropertyID).
		Str("landlord_id", contract.LandlordID).
		Str("tenant_id", contract.TenantID).
		Bool("witness_required", contract.WitnessRequired()).
		Msg("Contract created")

	s.emitToParties(ctx, contract, notify.EventContractCreated, createdPayload{
		ContractID:   contract.ContractID,
		Title:        contract.PropertyAddress,
		LandlordName: contract.LandlordDetails.Name,
		TenantName:   contract.TenantDetails.Name,
		Status:       contract.ContractStatus.Current,
	})

	return contract, nil
}

func partyDetails(in *models.PartyDetailsInput) models.PartyDetails {
	if in == nil {
		return models.PartyDetails{}
	}
	return models.PartyDetails{
		Name:    deref(in.Name),
		Email:   deref(in.Email),
		Phone:   deref(in.Phone),
		Address: deref(in.Address),
	}
}

// canView reports whether the user may read the contract
func canView(c *models.Contract, userID string) bool {
	if _, ok := c.PartyRole(userID); ok {
		return true
	}
	return c.WitnessUserID != "" && c.WitnessUserID == userID
}

// GetContract returns a contract to one of its parties
func (s *DefaultService) GetContract(ctx context.Context, actor models.Actor, contractID string) (*models.Contract, error) {
	c, err := loadContract(ctx, s.repo, s.cfg.StoreTimeout, contractID)
	if err != nil {
		return nil, err
	}
	if !canView(c, actor.UserID) {
		return nil, ErrForbidden
	}
	return c, nil
}

// ListContracts returns every contract where the user is landlord or tenant
func (s *DefaultService) ListContracts(ctx context.Context, actor models.Actor) ([]*models.Contract, error) {
	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	contracts, err := s.repo.ListContractsByParty(sctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("error listing contracts: %w", err)
	}
	return contracts, nil
}

// DeleteContract removes a contract; either party may do so
func (s *DefaultService) DeleteContract(ctx context.Context, actor models.Actor, contractID string) error {
	unlock, err := s.locks.Lock(ctx, contractID)
	if err != nil {
		return fmt.Errorf("waiting for contract lock: %w", err)
	}
	defer unlock()

	c, err := loadContract(ctx, s.repo, s.cfg.StoreTimeout, contractID)
	if err != nil {
		return err
	}
	role, ok := c.PartyRole(actor.UserID)
	if !ok {
		return ErrForbidden
	}

	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.repo.DeleteContract(sctx, contractID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrContractNotFound
		}
		return fmt.Errorf("error deleting contract: %w", err)
	}

	s.log.Info().
		Str("contract_id", contractID).
		Str("deleted_by", actor.UserID).
		Str("role", string(role)).
		Msg("Contract deleted")

	s.emitToParties(ctx, c, notify.EventContractDeleted, updatePayload{
		Contract: c.Summary(),
		Action:   "deleted",
		Role:     role,
	})
	return nil
}

// AttachDocument records a supporting document under the actor's own role
func (s *DefaultService) AttachDocument(
	ctx context.Context,
	actor models.Actor,
	contractID string,
	documentType string,
	reference string,
) (*models.Contract, error) {
	docType, ok := models.ParseDocumentType(documentType)
	if !ok {
		return nil, ErrInvalidDocumentType
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, newValidationError("document reference is required", []string{"reference"})
	}

	c, _, err := s.mutate(ctx, contractID, func(c *models.Contract) (bool, error) {
		role, ok := c.PartyRole(actor.UserID)
		if !ok {
			return false, ErrForbidden
		}
		c.SetDocument(role, docType, reference)
		c.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("contract_id", contractID).
		Str("document_type", string(docType)).
		Str("user_id", actor.UserID).
		Msg("Contract document attached")
	return c, nil
}
