package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
)

const (
	defaultRejectFeedback = "Contract rejected"
	approvedChatMessage   = "Contract approved"
)

func counterpart(role models.Role) models.Role {
	if role == models.RoleLandlord {
		return models.RoleTenant
	}
	return models.RoleLandlord
}

// Approve records the acting party's approval. The contract becomes approved
// once both parties have approved; finalized contracts and repeat approvals
// are returned unchanged.
func (s *DefaultService) Approve(ctx context.Context, actor models.Actor, contractID, feedback string) (*models.Contract, error) {
	var role models.Role

	c, changed, err := s.mutate(ctx, contractID, func(c *models.Contract) (bool, error) {
		var ok bool
		if role, ok = c.PartyRole(actor.UserID); !ok {
			return false, ErrForbidden
		}

		if current := c.ContractStatus.Current; current.IsFinal() {
			s.log.Info().
				Str("contract_id", c.ContractID).
				Str("status", string(current)).
				Str("role", string(role)).
				Msg("Approval ignored, contract already in a final state")
			return false, nil
		}
		if c.Approvals.For(role).Approved {
			s.log.Info().
				Str("contract_id", c.ContractID).
				Str("role", string(role)).
				Msg("Approval ignored, party already approved")
			return false, nil
		}

		now := s.now()
		*c.Approvals.For(role) = models.Approval{
			Approved:   true,
			ApprovedAt: &now,
			Feedback:   feedback,
			IPAddress:  actor.IPAddress,
		}

		next := models.StatusLandlordApproved
		if role == models.RoleTenant {
			next = models.StatusTenantApproved
		}
		if c.Approvals.For(counterpart(role)).Approved {
			next = models.StatusApproved
			c.ApprovedAt = &now
		}

		c.AppendStatus(next, actor.UserID, fmt.Sprintf("%s approved contract", role), actor.IPAddress, now)
		c.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}

	status := c.ContractStatus.Current
	s.log.Info().
		Str("contract_id", c.ContractID).
		Str("approved_by", actor.UserID).
		Str("role", string(role)).
		Str("status", string(status)).
		Msg("Contract approved")

	payload := updatePayload{
		Contract: c.Summary(),
		Action:   "approved",
		Role:     role,
		Feedback: feedback,
	}
	s.emitToParties(ctx, c, notify.EventContractUpdate, payload)

	if status == models.StatusApproved {
		s.markPropertyRented(ctx, c, *c.ApprovedAt)
		s.postChat(ctx, c, approvedChatMessage)
		s.emitToParties(ctx, c, notify.EventContractApproved, payload)
	}

	return c, nil
}

// Reject records the acting party's rejection. It applies from any status,
// final ones included.
func (s *DefaultService) Reject(ctx context.Context, actor models.Actor, contractID, feedback string) (*models.Contract, error) {
	var role models.Role
	if strings.TrimSpace(feedback) == "" {
		feedback = defaultRejectFeedback
	}

	c, _, err := s.mutate(ctx, contractID, func(c *models.Contract) (bool, error) {
		var ok bool
		if role, ok = c.PartyRole(actor.UserID); !ok {
			return false, ErrForbidden
		}

		now := s.now()
		*c.Approvals.For(role) = models.Approval{
			Approved:   false,
			ApprovedAt: &now,
			Feedback:   feedback,
			IPAddress:  actor.IPAddress,
		}
		c.AppendStatus(models.StatusRejected, actor.UserID, fmt.Sprintf("%s rejected contract", role), actor.IPAddress, now)
		c.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("contract_id", c.ContractID).
		Str("rejected_by", actor.UserID).
		Str("role", string(role)).
		Msg("Contract rejected")

	payload := updatePayload{
		Contract: c.Summary(),
		Action:   "rejected",
		Role:     role,
		Feedback: feedback,
	}
	s.emitToParties(ctx, c, notify.EventContractUpdated, payload)
	s.emitToParties(ctx, c, notify.EventContractRejected, payload)

	return c, nil
}
