package service

import (
	"context"
	"strings"
	"time"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
)

// UpdateTerms merges a partial update into a contract. Changing a party's
// stated details voids that party's signature.
func (s *DefaultService) UpdateTerms(
	ctx context.Context,
	actor models.Actor,
	contractID string,
	req models.UpdateTermsRequest,
) (*models.Contract, error) {
	var role models.Role
	var resetRoles []string

	c, _, err := s.mutate(ctx, contractID, func(c *models.Contract) (bool, error) {
		var ok bool
		if role, ok = c.PartyRole(actor.UserID); !ok {
			return false, ErrForbidden
		}

		if mergeDetails(&c.LandlordDetails, req.LandlordDetails) {
			c.Signatures.Landlord = models.Signature{}
			resetRoles = append(resetRoles, string(models.RoleLandlord))
		}
		if mergeDetails(&c.TenantDetails, req.TenantDetails) {
			c.Signatures.Tenant = models.Signature{}
			resetRoles = append(resetRoles, string(models.RoleTenant))
		}

		setString(&c.WitnessName, req.WitnessName)
		setString(&c.WitnessAddress, req.WitnessAddress)
		setString(&c.WitnessUserID, req.WitnessUserID)
		setString(&c.PropertyAddress, req.PropertyAddress)
		setString(&c.Terms, req.Terms)
		setString(&c.Conditions, req.Conditions)
		setString(&c.PlaceOfExecution, req.PlaceOfExecution)
		if req.MonthlyRent != nil {
			c.MonthlyRent = *req.MonthlyRent
		}
		if req.SecurityDeposit != nil {
			c.SecurityDeposit = *req.SecurityDeposit
		}
		setTime(&c.StartDate, req.StartDate)
		setTime(&c.EndDate, req.EndDate)

		if fields := validateContract(requestFromContract(c)); len(fields) > 0 {
			return false, newValidationError("missing or invalid required fields", fields)
		}
		if witnessConflicts(c.WitnessUserID, c.LandlordID, c.TenantID) {
			return false, newValidationError("witness must not be a party to the contract", []string{"witnessUserId"})
		}

		hash, err := Fingerprint(c)
		if err != nil {
			return false, err
		}
		c.DigitalHash = hash
		c.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("contract_id", contractID).
		Str("updated_by", actor.UserID).
		Str("role", string(role)).
		Strs("signatures_reset", resetRoles).
		Msg("Contract terms updated")

	s.emitToParties(ctx, c, notify.EventContractUpdated, updatePayload{
		Contract: c.Summary(),
		Action:   "terms_updated",
		Role:     role,
	})
	return c, nil
}

// mergeDetails applies the provided fields and reports whether any changed
func mergeDetails(dst *models.PartyDetails, in *models.PartyDetailsInput) bool {
	if in == nil {
		return false
	}
	changed := false
	apply := func(field *string, v *string) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if nv != *field {
			*field = nv
			changed = true
		}
	}
	apply(&dst.Name, in.Name)
	apply(&dst.Email, in.Email)
	apply(&dst.Phone, in.Phone)
	apply(&dst.Address, in.Address)
	return changed
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setTime(dst *time.Time, v *time.Time) {
	if v != nil {
		*dst = v.UTC()
	}
}
