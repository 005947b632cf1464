package service

import (
	"context"
	"testing"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTermsResetsChangedPartySignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")
	f.sign(t, landlordID, "C1")
	c := f.sign(t, tenantID, "C1")
	require.True(t, c.Signatures.Tenant.Signed)

	c, err := f.svc.UpdateTerms(ctx, actor(landlordID), "C1", models.UpdateTermsRequest{
		TenantDetails: &models.PartyDetailsInput{Email: strp("tomas@new.example.com")},
	})
	require.NoError(t, err)

	assert.False(t, c.Signatures.Tenant.Signed)
	assert.Empty(t, c.Signatures.Tenant.VerificationCode)
	assert.True(t, c.Signatures.Landlord.Signed)
	assert.Equal(t, "tomas@new.example.com", c.TenantDetails.Email)
	assert.Equal(t, "Tomas Tenant", c.TenantDetails.Name)

	assert.False(t, f.stored(t, "C1").Signatures.Tenant.Signed)
}

func TestUpdateTermsKeepsSignatureWhenDetailsUnchanged(t *testing.T) {
	f := newFixture(t)
	f.create(t, "C1")
	f.sign(t, landlordID, "C1")

	c, err := f.svc.UpdateTerms(context.Background(), actor(tenantID), "C1", models.UpdateTermsRequest{
		LandlordDetails: &models.PartyDetailsInput{Name: strp("Lena Landlord")},
		Conditions:      strp("No pets"),
	})
	require.NoError(t, err)
	assert.True(t, c.Signatures.Landlord.Signed)
	assert.Equal(t, "No pets", c.Conditions)

	updated := f.events.Find(notify.EventContractUpdated)
	require.Len(t, updated, 2)
	assert.Equal(t, "terms_updated", updated[0].Payload.(updatePayload).Action)
}

func TestUpdateTermsRehashesTrackedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.create(t, "C1")

	c, err := f.svc.UpdateTerms(ctx, actor(landlordID), "C1", models.UpdateTermsRequest{
		MonthlyRent: fltp(1350),
	})
	require.NoError(t, err)
	assert.NotEqual(t, original.DigitalHash, c.DigitalHash)

	hash, err := Fingerprint(c)
	require.NoError(t, err)
	assert.Equal(t, hash, c.DigitalHash)

	res, err := f.svc.Verify(ctx, "C1", original.DigitalHash)
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	res, err = f.svc.Verify(ctx, "C1", c.DigitalHash)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
}

func TestUpdateTermsRevalidatesMergedContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")

	_, err := f.svc.UpdateTerms(ctx, actor(landlordID), "C1", models.UpdateTermsRequest{
		Terms:         strp(""),
		TenantDetails: &models.PartyDetailsInput{Phone: strp(" ")},
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"terms", "tenantDetails.phone"}, verr.Fields)

	stored := f.stored(t, "C1")
	assert.Equal(t, "Rent due on the first of each month", stored.Terms)
	assert.Equal(t, int64(1), stored.Version)

	_, err = f.svc.UpdateTerms(ctx, actor(landlordID), "C1", models.UpdateTermsRequest{
		WitnessName:   strp("Tomas"),
		WitnessUserID: strp(tenantID),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateTermsForbiddenForNonParty(t *testing.T) {
	f := newFixture(t)
	f.create(t, "C1")

	_, err := f.svc.UpdateTerms(context.Background(), actor(strangerID), "C1", models.UpdateTermsRequest{
		Terms: strp("mine now"),
	})
	assert.ErrorIs(t, err, ErrForbidden)
}
