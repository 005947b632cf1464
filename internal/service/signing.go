package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
)

// minSignatureImageLength rejects obviously truncated image payloads
const minSignatureImageLength = 100

// signatureFinal is the set of statuses in which signing is a no-op.
// approved is not in it: approval and signing progress independently.
func signatureFinal(s models.Status) bool {
	return s.IsFinal() && s != models.StatusApproved
}

// signingStatus is keyed on the role that just signed: landlord hands over to
// the tenant, tenant to the witness when one is still owed, witness finishes.
func signingStatus(c *models.Contract, signed models.Role) models.Status {
	switch signed {
	case models.RoleLandlord:
		return models.StatusPendingTenantSignature
	case models.RoleTenant:
		if c.WitnessRequired() && !c.Signatures.Witness.Signed {
			return models.StatusPendingWitnessSignature
		}
	}
	return models.StatusFullySigned
}

func newVerificationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// signaturePayload is broadcast on the contract channel after each signature
type signaturePayload struct {
	ContractID            string            `json:"contractId"`
	Status                models.Status     `json:"status"`
	SignedRole            models.Role       `json:"signedRole"`
	Signatures            models.Signatures `json:"signatures"`
	IsFullySigned         bool              `json:"isFullySigned"`
	NextRequiredSignature models.Role       `json:"nextRequiredSignature"`
}

// resolveSignerRole finds the capacity in which a user may sign. A witness is
// matched by id when one was captured, otherwise optionally by display name.
func (s *DefaultService) resolveSignerRole(ctx context.Context, c *models.Contract, userID string) (models.Role, error) {
	if role, ok := c.PartyRole(userID); ok {
		return role, nil
	}
	if userID == "" || !c.WitnessRequired() {
		return "", ErrForbidden
	}
	if c.WitnessUserID != "" {
		if userID == c.WitnessUserID {
			return models.RoleWitness, nil
		}
		return "", ErrForbidden
	}
	if !s.cfg.AllowWitnessNameMatch {
		return "", ErrForbidden
	}

	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	info, err := s.repo.GetDisplayInfo(sctx, userID)
	if err != nil {
		return "", fmt.Errorf("error getting user: %w", err)
	}
	if info == nil {
		return "", ErrForbidden
	}
	name := strings.ToLower(strings.TrimSpace(info.Name))
	if name != "" && strings.Contains(strings.ToLower(c.WitnessName), name) {
		return models.RoleWitness, nil
	}
	return "", ErrForbidden
}

// resolveSignatureImage picks the inline image or the stored one
func (s *DefaultService) resolveSignatureImage(ctx context.Context, userID string, req models.SignRequest) (string, error) {
	image := strings.TrimSpace(req.SignatureImage)
	if image == "" && req.UseStoredSignature {
		sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()

		stored, ok, err := s.repo.GetStoredSignature(sctx, userID)
		if err != nil {
			return "", fmt.Errorf("error getting stored signature: %w", err)
		}
		if !ok {
			return "", ErrNoStoredSignature
		}
		image = stored
	}
	if len(image) < minSignatureImageLength {
		return "", ErrInvalidSignatureImage
	}
	return image, nil
}

// Sign records the acting user's signature and advances the signing status
func (s *DefaultService) Sign(ctx context.Context, actor models.Actor, contractID string, req models.SignRequest) (*models.Contract, error) {
	var role models.Role
	var image string

	c, changed, err := s.mutate(ctx, contractID, func(c *models.Contract) (bool, error) {
		var err error
		if role, err = s.resolveSignerRole(ctx, c, actor.UserID); err != nil {
			return false, err
		}

		if current := c.ContractStatus.Current; signatureFinal(current) {
			s.log.Info().
				Str("contract_id", c.ContractID).
				Str("status", string(current)).
				Str("role", string(role)).
				Msg("Signature ignored, contract already in a final state")
			return false, nil
		}

		sig := c.Signatures.For(role)
		if sig.Signed {
			return false, ErrAlreadySigned
		}
		if req.VerificationCode != "" && sig.VerificationCode != "" && !equalToken(req.VerificationCode, sig.VerificationCode) {
			return false, ErrInvalidVerificationCode
		}

		if image, err = s.resolveSignatureImage(ctx, actor.UserID, req); err != nil {
			return false, err
		}

		text := strings.TrimSpace(req.SignatureText)
		if text == "" {
			text = "Signed electronically by " + c.PartyName(role)
		}

		now := s.now()
		*sig = models.Signature{
			Signed:           true,
			SignedAt:         &now,
			SignatureText:    text,
			SignatureImage:   image,
			IPAddress:        actor.IPAddress,
			VerificationCode: newVerificationCode(),
		}

		c.AppendStatus(signingStatus(c, role), actor.UserID, fmt.Sprintf("%s signed the contract", role), actor.IPAddress, now)
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
		Str("signed_by", actor.UserID).
		Str("role", string(role)).
		Str("status", string(status)).
		Msg("Contract signed")

	if req.SaveSignature {
		ectx, cancel := s.effectContext(ctx)
		if err := s.repo.StoreSignature(ectx, actor.UserID, image); err != nil {
			s.log.Warn().Err(err).Str("user_id", actor.UserID).Msg("Failed to store signature for reuse (non-fatal)")
		}
		cancel()
	}

	s.emit(ctx, c.ContractID, notify.ContractChannel(c.ContractID), notify.EventSignatureUpdated, signaturePayload{
		ContractID:            c.ContractID,
		Status:                status,
		SignedRole:            role,
		Signatures:            c.Signatures.Redacted(""),
		IsFullySigned:         c.IsFullySigned(),
		NextRequiredSignature: c.NextRequiredSignature(),
	})
	s.emit(ctx, c.ContractID, actor.UserID, notify.EventVerificationCode, verificationCodePayload{
		ContractID:       c.ContractID,
		Role:             role,
		VerificationCode: c.Signatures.For(role).VerificationCode,
	})

	if status == models.StatusFullySigned {
		s.markPropertyRented(ctx, c, *c.Signatures.For(role).SignedAt)
	}

	return c, nil
}

// verificationCodePayload is delivered privately to the signer
type verificationCodePayload struct {
	ContractID       string      `json:"contractId"`
	Role             models.Role `json:"role"`
	VerificationCode string      `json:"verificationCode"`
}

// IssueVerificationCode stores a fresh code on the actor's pending signature
// and delivers it to the actor out of band. Sign then requires it to match.
func (s *DefaultService) IssueVerificationCode(
	ctx context.Context,
	actor models.Actor,
	contractID string,
) (*models.VerificationCodeResponse, error) {
	var role models.Role
	var code string

	_, _, err := s.mutate(ctx, contractID, func(c *models.Contract) (bool, error) {
		var err error
		if role, err = s.resolveSignerRole(ctx, c, actor.UserID); err != nil {
			return false, err
		}
		sig := c.Signatures.For(role)
		if sig.Signed || signatureFinal(c.ContractStatus.Current) {
			return false, ErrAlreadySigned
		}
		code = newVerificationCode()
		sig.VerificationCode = code
		c.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, contractID, actor.UserID, notify.EventVerificationCode, verificationCodePayload{
		ContractID:       contractID,
		Role:             role,
		VerificationCode: code,
	})

	return &models.VerificationCodeResponse{
		Status: "success",
		Role:   role,
	}, nil
}

// VerifySignature checks a presented code against a stored signature
func (s *DefaultService) VerifySignature(ctx context.Context, contractID, role, code string) (*models.SignatureVerificationResult, error) {
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, ErrUnsupportedRole
	}

	c, err := loadContract(ctx, s.repo, s.cfg.StoreTimeout, contractID)
	if err != nil {
		return nil, err
	}

	sig := c.Signatures.For(r)
	result := &models.SignatureVerificationResult{Role: r}
	if sig.Signed && code != "" && equalToken(code, sig.VerificationCode) {
		cp := *sig
		result.IsValid = true
		result.Signature = &cp
	}
	return result, nil
}

// reminderPayload is sent to the party who still has to sign
type reminderPayload struct {
	ContractID      string      `json:"contractId"`
	PropertyAddress string      `json:"propertyAddress"`
	RecipientRole   models.Role `json:"recipientRole"`
	RecipientName   string      `json:"recipientName"`
	SentBy          string      `json:"sentBy"`
	SenderName      string      `json:"senderName"`
}

// SendSignatureReminder nudges a party to sign
func (s *DefaultService) SendSignatureReminder(
	ctx context.Context,
	actor models.Actor,
	contractID string,
	recipientRole string,
) (*models.ReminderResponse, error) {
	c, err := loadContract(ctx, s.repo, s.cfg.StoreTimeout, contractID)
	if err != nil {
		return nil, err
	}
	senderRole, ok := c.PartyRole(actor.UserID)
	if !ok {
		return nil, ErrForbidden
	}

	role, ok := models.ParseRole(recipientRole)
	if !ok {
		return nil, ErrUnsupportedRole
	}
	recipientID := c.PartyID(role)
	if recipientID == "" {
		return nil, ErrUnsupportedRole
	}
	recipientName := c.PartyName(role)

	s.emit(ctx, c.ContractID, recipientID, notify.EventSignatureReminder, reminderPayload{
		ContractID:      c.ContractID,
		PropertyAddress: c.PropertyAddress,
		RecipientRole:   role,
		RecipientName:   recipientName,
		SentBy:          actor.UserID,
		SenderName:      c.PartyName(senderRole),
	})
	s.postChat(ctx, c, fmt.Sprintf("Signature reminder sent to %s (%s)", recipientName, role))

	s.log.Info().
		Str("contract_id", c.ContractID).
		Str("sent_by", actor.UserID).
		Str("recipient_id", recipientID).
		Str("recipient_role", string(role)).
		Msg("Signature reminder sent")

	return &models.ReminderResponse{
		Status:        "success",
		RecipientID:   recipientID,
		RecipientName: recipientName,
		RecipientRole: role,
	}, nil
}

// StoreSignature saves a reusable signature image for the actor
func (s *DefaultService) StoreSignature(ctx context.Context, actor models.Actor, signatureImage string) error {
	signatureImage = strings.TrimSpace(signatureImage)
	if len(signatureImage) < minSignatureImageLength {
		return ErrInvalidSignatureImage
	}

	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.repo.StoreSignature(sctx, actor.UserID, signatureImage); err != nil {
		return fmt.Errorf("error storing signature: %w", err)
	}
	return nil
}

// GetStoredSignature returns the actor's reusable signature image
func (s *DefaultService) GetStoredSignature(ctx context.Context, actor models.Actor) (string, error) {
	sctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	image, ok, err := s.repo.GetStoredSignature(sctx, actor.UserID)
	if err != nil {
		return "", fmt.Errorf("error getting stored signature: %w", err)
	}
	if !ok {
		return "", ErrNoStoredSignature
	}
	return image, nil
}
