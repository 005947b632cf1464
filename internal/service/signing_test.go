package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningWithoutWitness(t *testing.T) {
	f := newFixture(t)
	f.create(t, "C1")

	c := f.sign(t, landlordID, "C1")
	assert.Equal(t, models.StatusPendingTenantSignature, c.ContractStatus.Current)
	assert.Equal(t, models.RoleTenant, c.NextRequiredSignature())

	sig := c.Signatures.Landlord
	assert.True(t, sig.Signed)
	require.NotNil(t, sig.SignedAt)
	assert.Equal(t, "Signed electronically by Lena Landlord", sig.SignatureText)
	assert.Equal(t, testImage, sig.SignatureImage)
	assert.Equal(t, "203.0.113.7", sig.IPAddress)
	assert.Len(t, sig.VerificationCode, 32)

	last := c.ContractStatus.History[len(c.ContractStatus.History)-1]
	assert.Equal(t, "landlord signed the contract", last.Reason)

	c = f.sign(t, tenantID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
	assert.True(t, c.IsFullySigned())
	assert.NotEqual(t, c.Signatures.Landlord.VerificationCode, c.Signatures.Tenant.VerificationCode)

	p, err := f.repo.GetProperty(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyRented, p.Status)
	assert.Equal(t, tenantID, *p.RentedTo)

	broadcasts := f.events.Find(notify.EventSignatureUpdated)
	require.Len(t, broadcasts, 2)
	assert.Equal(t, notify.ContractChannel("C1"), broadcasts[1].Audience)
	payload, ok := broadcasts[1].Payload.(signaturePayload)
	require.True(t, ok)
	assert.Equal(t, models.StatusFullySigned, payload.Status)
	assert.True(t, payload.Signatures.Tenant.Signed)
	assert.True(t, payload.IsFullySigned)
}

func TestSigningWithWitness(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", witnessID)

	c := f.sign(t, landlordID, "C1")
	assert.Equal(t, models.StatusPendingTenantSignature, c.ContractStatus.Current)

	c = f.sign(t, tenantID, "C1")
	assert.Equal(t, models.StatusPendingWitnessSignature, c.ContractStatus.Current)
	assert.False(t, c.IsFullySigned())

	p, err := f.repo.GetProperty(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyAvailable, p.Status)

	c = f.sign(t, witnessID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
	assert.Equal(t, "Signed electronically by Walter White", c.Signatures.Witness.SignatureText)
	assert.Equal(t, "witness signed the contract", c.ContractStatus.History[len(c.ContractStatus.History)-1].Reason)
}

func TestTenantSigningFirst(t *testing.T) {
	f := newFixture(t)
	f.create(t, "C1")

	c := f.sign(t, tenantID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
	assert.False(t, c.Signatures.Landlord.Signed)

	p, err := f.repo.GetProperty(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyRented, p.Status)

	// fully_signed closes signing, the landlord's later attempt changes nothing
	before := f.stored(t, "C1")
	c = f.sign(t, landlordID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
	assert.False(t, c.Signatures.Landlord.Signed)
	assert.Equal(t, before.Version, f.stored(t, "C1").Version)
}

func TestWitnessSigningBeforeTenant(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", witnessID)

	c := f.sign(t, landlordID, "C1")
	assert.Equal(t, models.StatusPendingTenantSignature, c.ContractStatus.Current)

	c = f.sign(t, witnessID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
	assert.False(t, c.Signatures.Tenant.Signed)

	p, err := f.repo.GetProperty(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyRented, p.Status)
}

func TestTenantSigningAfterWitness(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", witnessID)

	c := f.sign(t, witnessID, "C1")
	require.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)

	c = f.sign(t, tenantID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
	assert.False(t, c.Signatures.Tenant.Signed)
}

func TestSignDeliversCodeOnlyToSigner(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", witnessID)

	_, err := f.svc.IssueVerificationCode(context.Background(), actor(tenantID), "C1")
	require.NoError(t, err)
	c := f.sign(t, landlordID, "C1")

	codes := f.events.Find(notify.EventVerificationCode)
	require.Len(t, codes, 2)
	assert.Equal(t, landlordID, codes[1].Audience)
	assert.Equal(t, c.Signatures.Landlord.VerificationCode, codes[1].Payload.(verificationCodePayload).VerificationCode)

	broadcast := f.events.Find(notify.EventSignatureUpdated)
	require.Len(t, broadcast, 1)
	payload := broadcast[0].Payload.(signaturePayload)
	assert.True(t, payload.Signatures.Landlord.Signed)
	assert.Empty(t, payload.Signatures.Landlord.VerificationCode)
	assert.Empty(t, payload.Signatures.Tenant.VerificationCode)
}

func TestWitnessNameMatch(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", "")
	f.sign(t, landlordID, "C1")
	f.sign(t, tenantID, "C1")

	_, err := f.svc.Sign(context.Background(), actor(strangerID), "C1", models.SignRequest{SignatureImage: testImage})
	assert.ErrorIs(t, err, ErrForbidden)

	c := f.sign(t, witnessID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
}

func TestWitnessNameMatchDisabled(t *testing.T) {
	f := newFixtureWithConfig(t, config.ContractConfig{StoreTimeout: time.Second})
	f.createWithWitness(t, "C1", "")

	_, err := f.svc.Sign(context.Background(), actor(witnessID), "C1", models.SignRequest{SignatureImage: testImage})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWitnessUserIDTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", strangerID)

	// name matches, id does not
	_, err := f.svc.Sign(context.Background(), actor(witnessID), "C1", models.SignRequest{SignatureImage: testImage})
	assert.ErrorIs(t, err, ErrForbidden)

	c := f.sign(t, strangerID, "C1")
	assert.True(t, c.Signatures.Witness.Signed)
}

func TestSignRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")

	_, err := f.svc.Sign(ctx, actor(strangerID), "C1", models.SignRequest{SignatureImage: testImage})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Sign(ctx, actor(witnessID), "C1", models.SignRequest{SignatureImage: testImage})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{SignatureImage: "data:image/png;base64,short"})
	assert.ErrorIs(t, err, ErrInvalidSignatureImage)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{})
	assert.ErrorIs(t, err, ErrInvalidSignatureImage)

	_, err = f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{UseStoredSignature: true})
	assert.ErrorIs(t, err, ErrNoStoredSignature)

	f.sign(t, landlordID, "C1")
	_, err = f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{SignatureImage: testImage})
	assert.ErrorIs(t, err, ErrAlreadySigned)

	assert.Len(t, f.stored(t, "C1").ContractStatus.History, 2)
}

func TestSignIsNoOpOnFinalStates(t *testing.T) {
	for _, final := range []models.Status{
		models.StatusFullySigned,
		models.StatusCompleted,
		models.StatusTerminated,
	} {
		t.Run(string(final), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.create(t, "C1")

			c := f.stored(t, "C1")
			c.AppendStatus(final, landlordID, "forced", "", time.Now().UTC())
			require.NoError(t, f.repo.SaveContract(ctx, c))
			before := f.stored(t, "C1")

			got, err := f.svc.Sign(ctx, actor(tenantID), "C1", models.SignRequest{SignatureImage: testImage})
			require.NoError(t, err)
			assert.Equal(t, final, got.ContractStatus.Current)

			after := f.stored(t, "C1")
			assert.Equal(t, before.Version, after.Version)
			assert.Equal(t, before.Signatures, after.Signatures)
			assert.Len(t, after.ContractStatus.History, len(before.ContractStatus.History))
		})
	}
}

func TestSignWithStoredSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")
	f.create(t, "C2")

	// first signature is saved for reuse
	_, err := f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{
		SignatureImage: testImage,
		SignatureText:  "L. Landlord",
		SaveSignature:  true,
	})
	require.NoError(t, err)

	stored, err := f.svc.GetStoredSignature(ctx, actor(landlordID))
	require.NoError(t, err)
	assert.Equal(t, testImage, stored)

	c, err := f.svc.Sign(ctx, actor(landlordID), "C2", models.SignRequest{UseStoredSignature: true})
	require.NoError(t, err)
	assert.Equal(t, testImage, c.Signatures.Landlord.SignatureImage)

	// an inline image wins over the stored one
	other := testImage + "AAAA"
	c, err = f.svc.Sign(ctx, actor(tenantID), "C2", models.SignRequest{SignatureImage: other, UseStoredSignature: true})
	require.NoError(t, err)
	assert.Equal(t, other, c.Signatures.Tenant.SignatureImage)
}

func TestStoredSignatureVault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetStoredSignature(ctx, actor(tenantID))
	assert.ErrorIs(t, err, ErrNoStoredSignature)

	err = f.svc.StoreSignature(ctx, actor(tenantID), "tiny")
	assert.ErrorIs(t, err, ErrInvalidSignatureImage)

	require.NoError(t, f.svc.StoreSignature(ctx, actor(tenantID), testImage))
	img, err := f.svc.GetStoredSignature(ctx, actor(tenantID))
	require.NoError(t, err)
	assert.Equal(t, testImage, img)
}

func TestVerificationCodeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")

	resp, err := f.svc.IssueVerificationCode(ctx, actor(landlordID), "C1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLandlord, resp.Role)

	issued := f.events.Find(notify.EventVerificationCode)
	require.Len(t, issued, 1)
	assert.Equal(t, landlordID, issued[0].Audience)
	code := issued[0].Payload.(verificationCodePayload).VerificationCode
	require.NotEmpty(t, code)

	_, err = f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{SignatureImage: testImage, VerificationCode: "WRONG"})
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)

	c, err := f.svc.Sign(ctx, actor(landlordID), "C1", models.SignRequest{SignatureImage: testImage, VerificationCode: code})
	require.NoError(t, err)
	assert.True(t, c.Signatures.Landlord.Signed)
	assert.NotEqual(t, code, c.Signatures.Landlord.VerificationCode)

	_, err = f.svc.IssueVerificationCode(ctx, actor(landlordID), "C1")
	assert.ErrorIs(t, err, ErrAlreadySigned)

	_, err = f.svc.IssueVerificationCode(ctx, actor(strangerID), "C1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestVerifySignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")
	c := f.sign(t, landlordID, "C1")
	code := c.Signatures.Landlord.VerificationCode

	res, err := f.svc.VerifySignature(ctx, "C1", "landlord", code)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	require.NotNil(t, res.Signature)
	assert.Equal(t, testImage, res.Signature.SignatureImage)

	res, err = f.svc.VerifySignature(ctx, "C1", "landlord", "nope")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Nil(t, res.Signature)

	res, err = f.svc.VerifySignature(ctx, "C1", "tenant", "")
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	_, err = f.svc.VerifySignature(ctx, "C1", "notary", code)
	assert.ErrorIs(t, err, ErrUnsupportedRole)

	_, err = f.svc.VerifySignature(ctx, "missing", "landlord", code)
	assert.ErrorIs(t, err, ErrContractNotFound)

	assert.Equal(t, c.Version, f.stored(t, "C1").Version)
}

func TestSendSignatureReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")

	resp, err := f.svc.SendSignatureReminder(ctx, actor(landlordID), "C1", "tenant")
	require.NoError(t, err)
	assert.Equal(t, tenantID, resp.RecipientID)
	assert.Equal(t, "Tomas Tenant", resp.RecipientName)
	assert.Equal(t, models.RoleTenant, resp.RecipientRole)

	reminders := f.events.Find(notify.EventSignatureReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, tenantID, reminders[0].Audience)
	payload := reminders[0].Payload.(reminderPayload)
	assert.Equal(t, "Lena Landlord", payload.SenderName)

	msgs := f.repo.Messages(propertyID, []string{landlordID, tenantID})
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "Tomas Tenant")

	_, err = f.svc.SendSignatureReminder(ctx, actor(strangerID), "C1", "tenant")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SendSignatureReminder(ctx, actor(landlordID), "C1", "witness")
	assert.ErrorIs(t, err, ErrUnsupportedRole)

	_, err = f.svc.SendSignatureReminder(ctx, actor(landlordID), "C1", "janitor")
	assert.ErrorIs(t, err, ErrUnsupportedRole)
}

func TestSendSignatureReminderToWitness(t *testing.T) {
	f := newFixture(t)
	f.createWithWitness(t, "C1", witnessID)

	resp, err := f.svc.SendSignatureReminder(context.Background(), actor(tenantID), "C1", "Witness")
	require.NoError(t, err)
	assert.Equal(t, witnessID, resp.RecipientID)
	assert.Equal(t, "Walter White", resp.RecipientName)
}

func TestSignSurvivesPropertySyncFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := validRequest("C1")
	req.PropertyID = strp("property-unknown")
	_, err := f.svc.CreateContract(ctx, actor(landlordID), req)
	require.NoError(t, err)
	f.events.FailWith(errors.New("broker down"))

	f.sign(t, landlordID, "C1")
	c := f.sign(t, tenantID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)
}
