package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/rongwang/lease-contract-server/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	landlordID = "user-landlord"
	tenantID   = "user-tenant"
	witnessID  = "user-witness"
	strangerID = "user-stranger"
	propertyID = "property-1"
)

var testImage = "data:image/png;base64," + strings.Repeat("iVBORw0KGgo", 12)

type fixture struct {
	svc    *DefaultService
	repo   *repository.MemoryRepository
	events *notify.Recorder
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, config.ContractConfig{
		StoreTimeout:          time.Second,
		ExpiryWindow:          30 * 24 * time.Hour,
		AllowWitnessNameMatch: true,
	})
}

func newFixtureWithConfig(t *testing.T, cfg config.ContractConfig) *fixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	events := notify.NewRecorder()
	f := &fixture{
		svc:    NewDefaultService(repo, events, cfg, zerolog.Nop()),
		repo:   repo,
		events: events,
		clock:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	ctx := context.Background()
	for _, u := range []models.User{
		{ID: landlordID, Email: "landlord@example.com", Name: "Lena Landlord"},
		{ID: tenantID, Email: "tenant@example.com", Name: "Tomas Tenant"},
		{ID: witnessID, Email: "witness@example.com", Name: "Walter White"},
		{ID: strangerID, Email: "stranger@example.com", Name: "Sam Stranger"},
	} {
		u := u
		require.NoError(t, repo.CreateUser(ctx, &u))
	}
	require.NoError(t, repo.UpsertProperty(ctx, &models.Property{
		ID:      propertyID,
		OwnerID: landlordID,
		Address: "12 Harbour Street",
	}))
	return f
}

func actor(userID string) models.Actor {
	return models.Actor{UserID: userID, IPAddress: "203.0.113.7"}
}

func strp(s string) *string        { return &s }
func intp(i int) *int              { return &i }
func fltp(f float64) *float64      { return &f }
func timep(t time.Time) *time.Time { return &t }

func validRequest(contractID string) models.CreateContractRequest {
	return models.CreateContractRequest{
		ContractID:         strp(contractID),
		PropertyID:         strp(propertyID),
		TenantID:           strp(tenantID),
		PropertyAddress:    strp("12 Harbour Street"),
		StartDate:          timep(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:            timep(time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)),
		MonthlyRent:        fltp(1200),
		SecurityDeposit:    fltp(2400),
		Terms:              strp("Rent due on the first of each month"),
		PlaceOfExecution:   strp("Melbourne"),
		Bedrooms:           intp(2),
		Fans:               intp(0),
		Lights:             intp(6),
		Geysers:            intp(1),
		Mirrors:            intp(0),
		Taps:               intp(3),
		MaintenanceCharges: fltp(0),
		LandlordFatherName: strp("Leo Landlord"),
		TenantFatherName:   strp("Tim Tenant"),
		TenantOccupation:   strp("Engineer"),
		LandlordDetails: &models.PartyDetailsInput{
			Name:    strp("Lena Landlord"),
			Email:   strp("landlord@example.com"),
			Phone:   strp("0400000001"),
			Address: strp("1 Owner Road"),
		},
		TenantDetails: &models.PartyDetailsInput{
			Name:    strp("Tomas Tenant"),
			Email:   strp("tenant@example.com"),
			Phone:   strp("0400000002"),
			Address: strp("2 Renter Lane"),
		},
	}
}

func (f *fixture) create(t *testing.T, contractID string) *models.Contract {
	t.Helper()
	c, err := f.svc.CreateContract(context.Background(), actor(landlordID), validRequest(contractID))
	require.NoError(t, err)
	return c
}

func (f *fixture) createWithWitness(t *testing.T, contractID, witnessUserID string) *models.Contract {
	t.Helper()
	req := validRequest(contractID)
	req.WitnessName = strp("Walter White")
	req.WitnessAddress = strp("3 Witness Way")
	if witnessUserID != "" {
		req.WitnessUserID = strp(witnessUserID)
	}
	c, err := f.svc.CreateContract(context.Background(), actor(landlordID), req)
	require.NoError(t, err)
	return c
}

func (f *fixture) sign(t *testing.T, userID, contractID string) *models.Contract {
	t.Helper()
	c, err := f.svc.Sign(context.Background(), actor(userID), contractID, models.SignRequest{SignatureImage: testImage})
	require.NoError(t, err)
	return c
}

func (f *fixture) stored(t *testing.T, contractID string) *models.Contract {
	t.Helper()
	c, err := f.repo.GetContract(context.Background(), contractID)
	require.NoError(t, err)
	return c
}
