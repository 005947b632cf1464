package service

import (
	"context"
	"testing"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// approval and signing progress independently; a contract that is approved
// can still collect signatures until it is fully signed
func TestLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.create(t, "C1")
	storedHash := c.DigitalHash

	c, err := f.svc.Approve(ctx, actor(landlordID), "C1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLandlordApproved, c.ContractStatus.Current)

	c, err = f.svc.Approve(ctx, actor(tenantID), "C1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, c.ContractStatus.Current)

	p, err := f.repo.GetProperty(ctx, propertyID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyRented, p.Status)
	assert.Equal(t, tenantID, *p.RentedTo)

	c = f.sign(t, landlordID, "C1")
	assert.Equal(t, models.StatusPendingTenantSignature, c.ContractStatus.Current)

	c = f.sign(t, tenantID, "C1")
	assert.Equal(t, models.StatusFullySigned, c.ContractStatus.Current)

	res, err := f.svc.Verify(ctx, "C1", storedHash)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, models.StatusFullySigned, res.Status)

	// a fully signed contract no longer moves on approve or sign
	before := f.stored(t, "C1")
	_, err = f.svc.Approve(ctx, actor(landlordID), "C1", "")
	require.NoError(t, err)
	after := f.stored(t, "C1")
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, models.StatusFullySigned, after.ContractStatus.Current)

	history := after.ContractStatus.History
	assert.Equal(t, history[len(history)-1].Status, after.ContractStatus.Current)
}

func TestMutateReportsVersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "C1")

	_, _, err := f.svc.mutate(ctx, "C1", func(c *models.Contract) (bool, error) {
		// a writer outside the service lock moves the record underneath us
		concurrent := f.stored(t, "C1")
		concurrent.Conditions = "changed elsewhere"
		require.NoError(t, f.repo.SaveContract(ctx, concurrent))

		c.Conditions = "stale write"
		return true, nil
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.True(t, serr.Retryable)
	assert.Equal(t, "changed elsewhere", f.stored(t, "C1").Conditions)
}
