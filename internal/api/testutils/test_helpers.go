package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/lease-contract-server/internal/api"
	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/rongwang/lease-contract-server/internal/repository"
	"github.com/rongwang/lease-contract-server/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Fixed ids of the seeded test users and property
const (
	LandlordID = "landlord-1"
	TenantID   = "tenant-1"
	WitnessID  = "witness-1"
	StrangerID = "stranger-1"
	PropertyID = "property-1"
)

// SignatureImage is long enough to pass the signature image floor
var SignatureImage = "data:image/png;base64," + strings.Repeat("iVBORw0KGgo", 12)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.MemoryRepository
	Service    service.Service
	Events     *notify.Recorder
	JWTSecret  []byte
	Tokens     map[string]string
}

// SetupTestContext creates a new test context backed by the in-memory
// repository, with a landlord, tenant, witness, stranger and property seeded
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	cfg := config.LoadConfig()
	cfg.Auth.JWTSecret = "test-secret-key"
	cfg.Contract.StoreTimeout = time.Second

	repo := repository.NewMemoryRepository()
	events := notify.NewRecorder()
	svc := service.NewDefaultService(repo, events, cfg.Contract, zerolog.Nop())
	handler := api.NewHandler(svc, zerolog.Nop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})
	handler.SetupRoutes(router)

	tc := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Events:     events,
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		Tokens:     make(map[string]string),
	}

	ctx := context.Background()
	for _, u := range []models.User{
		{ID: LandlordID, Email: "landlord@example.com", Name: "Lena Landlord"},
		{ID: TenantID, Email: "tenant@example.com", Name: "Tomas Tenant"},
		{ID: WitnessID, Email: "witness@example.com", Name: "Walter White"},
		{ID: StrangerID, Email: "stranger@example.com", Name: "Sam Stranger"},
	} {
		u := u
		require.NoError(t, repo.CreateUser(ctx, &u), "Failed to create test user")

		token, err := api.IssueToken(tc.JWTSecret, u.ID, time.Hour)
		require.NoError(t, err, "Failed to generate JWT token")
		tc.Tokens[u.ID] = token
	}

	require.NoError(t, repo.UpsertProperty(ctx, &models.Property{
		ID:      PropertyID,
		OwnerID: LandlordID,
		Address: "12 Harbour Street",
	}))

	return tc
}

// Headers returns the Authorization header of a seeded user
func (tc *TestContext) Headers(userID string) map[string]string {
	return AuthHeaders(tc.Tokens[userID])
}

// ContractPayload returns a complete creation payload as a generic JSON
// object so tests can drop or override single fields
func ContractPayload(contractID string) map[string]interface{} {
	return map[string]interface{}{
		"contractId":         contractID,
		"propertyId":         PropertyID,
		"tenantId":           TenantID,
		"propertyAddress":    "12 Harbour Street",
		"startDate":          "2026-04-01T00:00:00Z",
		"endDate":            "2027-04-01T00:00:00Z",
		"monthlyRent":        1200,
		"securityDeposit":    2400,
		"terms":              "Rent due on the first of each month",
		"placeOfExecution":   "Melbourne",
		"bedrooms":           2,
		"fans":               0,
		"lights":             6,
		"geysers":            1,
		"mirrors":            0,
		"taps":               3,
		"maintenanceCharges": 0,
		"landlordFatherName": "Leo Landlord",
		"tenantFatherName":   "Tim Tenant",
		"tenantOccupation":   "Engineer",
		"landlordDetails": map[string]interface{}{
			"name":    "Lena Landlord",
			"email":   "landlord@example.com",
			"phone":   "0400000001",
			"address": "1 Owner Road",
		},
		"tenantDetails": map[string]interface{}{
			"name":    "Tomas Tenant",
			"email":   "tenant@example.com",
			"phone":   "0400000002",
			"address": "2 Renter Lane",
		},
	}
}

// CreateContract posts a contract as the landlord and decodes the response
func (tc *TestContext) CreateContract(t *testing.T, payload map[string]interface{}) models.ContractResponse {
	t.Helper()

	w := PerformRequest(tc.Router, http.MethodPost, "/api/contracts", payload, tc.Headers(LandlordID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.ContractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:41234"

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// Decode unmarshals a response body
func Decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
