package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rongwang/lease-contract-server/internal/models"
)

// fingerprintFields is the tracked identity+terms set. Field order is fixed
// by the struct, which keeps the encoding canonical.
type fingerprintFields struct {
	ContractID      string  `json:"contractId"`
	PropertyID      string  `json:"propertyId"`
	TenantID        string  `json:"tenantId"`
	LandlordID      string  `json:"landlordId"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	MonthlyRent     float64 `json:"monthlyRent"`
	SecurityDeposit float64 `json:"securityDeposit"`
	CreatedAt       string  `json:"createdAt"`
}

func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Fingerprint computes the hex SHA-256 digest of a contract's tracked fields
func Fingerprint(c *models.Contract) (string, error) {
	b, err := json.Marshal(fingerprintFields{
		ContractID:      c.ContractID,
		PropertyID:      c.PropertyID,
		TenantID:        c.TenantID,
		LandlordID:      c.LandlordID,
		StartDate:       canonicalTime(c.StartDate),
		EndDate:         canonicalTime(c.EndDate),
		MonthlyRent:     c.MonthlyRent,
		SecurityDeposit: c.SecurityDeposit,
		CreatedAt:       canonicalTime(c.CreatedAt),
	})
	if err != nil {
		return "", fmt.Errorf("encoding fingerprint fields: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// equalToken compares secrets in constant time
func equalToken(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
