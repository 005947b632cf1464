package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, "C1")

	res, err := f.svc.Verify(ctx, "C1", c.DigitalHash)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "C1", res.ContractID)
	assert.Equal(t, c.CreatedAt, res.CreatedAt)
	assert.Equal(t, models.StatusPendingLandlordSignature, res.Status)
	assert.Equal(t, "12 Harbour Street", res.PropertyAddress)
	assert.Equal(t, "Lena Landlord", res.LandlordName)
	assert.Equal(t, "Tomas Tenant", res.TenantName)

	res, err = f.svc.Verify(ctx, "C1", strings.ToUpper(c.DigitalHash))
	require.NoError(t, err)
	assert.True(t, res.IsValid)

	res, err = f.svc.Verify(ctx, "C1", "deadbeef")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, "C1", res.ContractID)

	res, err = f.svc.Verify(ctx, "C1", "")
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	_, err = f.svc.Verify(ctx, "missing", c.DigitalHash)
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestFingerprint(t *testing.T) {
	base := &models.Contract{
		ContractID:      "C1",
		PropertyID:      "P1",
		TenantID:        "T",
		LandlordID:      "L",
		StartDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC),
		MonthlyRent:     1200,
		SecurityDeposit: 2400,
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Terms:           "anything",
	}

	h1, err := Fingerprint(base)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := Fingerprint(base.Clone())
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "fingerprint must be deterministic")

	// untracked fields do not move the fingerprint
	untracked := base.Clone()
	untracked.Terms = "something else"
	untracked.ContractStatus.Current = models.StatusRejected
	h, err := Fingerprint(untracked)
	require.NoError(t, err)
	assert.Equal(t, h1, h)

	// the same instant in another zone is the same fingerprint
	zoned := base.Clone()
	zoned.StartDate = base.StartDate.In(time.FixedZone("AEST", 10*3600))
	h, err = Fingerprint(zoned)
	require.NoError(t, err)
	assert.Equal(t, h1, h)

	mutations := map[string]func(c *models.Contract){
		"contractId":      func(c *models.Contract) { c.ContractID = "C2" },
		"propertyId":      func(c *models.Contract) { c.PropertyID = "P2" },
		"tenantId":        func(c *models.Contract) { c.TenantID = "T2" },
		"landlordId":      func(c *models.Contract) { c.LandlordID = "L2" },
		"startDate":       func(c *models.Contract) { c.StartDate = c.StartDate.AddDate(0, 0, 1) },
		"endDate":         func(c *models.Contract) { c.EndDate = c.EndDate.AddDate(0, 0, 1) },
		"monthlyRent":     func(c *models.Contract) { c.MonthlyRent = 1201 },
		"securityDeposit": func(c *models.Contract) { c.SecurityDeposit = 0 },
		"createdAt":       func(c *models.Contract) { c.CreatedAt = c.CreatedAt.Add(time.Nanosecond) },
	}
	seen := map[string]string{h1: "base"}
	for field, mutate := range mutations {
		c := base.Clone()
		mutate(c)
		h, err := Fingerprint(c)
		require.NoError(t, err)
		prev, dup := seen[h]
		assert.False(t, dup, "%s collides with %s", field, prev)
		seen[h] = field
	}
}
