package models

import "time"

// Actor is the authenticated caller of a lifecycle operation
type Actor struct {
	UserID    string
	IPAddress string
}

// Request models

// PartyDetailsInput is the creation payload for landlord/tenant details
type PartyDetailsInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// CreateContractRequest is the creation payload. Pointers distinguish an
// absent field from a zero value, which is valid for counts and amounts.
type CreateContractRequest struct {
	ContractID         *string    `json:"contractId"`
	PropertyID         *string    `json:"propertyId"`
	TenantID           *string    `json:"tenantId"`
	PropertyAddress    *string    `json:"propertyAddress"`
	StartDate          *time.Time `json:"startDate"`
	EndDate            *time.Time `json:"endDate"`
	MonthlyRent        *float64   `json:"monthlyRent"`
	SecurityDeposit    *float64   `json:"securityDeposit"`
	Terms              *string    `json:"terms"`
	Conditions         *string    `json:"conditions"`
	PlaceOfExecution   *string    `json:"placeOfExecution"`
	Bedrooms           *int       `json:"bedrooms"`
	Fans               *int       `json:"fans"`
	Lights             *int       `json:"lights"`
	Geysers            *int       `json:"geysers"`
	Mirrors            *int       `json:"mirrors"`
	Taps               *int       `json:"taps"`
	MaintenanceCharges *float64   `json:"maintenanceCharges"`
	LandlordFatherName *string    `json:"landlordFatherName"`
	TenantFatherName   *string    `json:"tenantFatherName"`
	TenantOccupation   *string    `json:"tenantOccupation"`
	WitnessName        *string    `json:"witnessName"`
	WitnessAddress     *string    `json:"witnessAddress"`
	WitnessUserID      *string    `json:"witnessUserId"`

	LandlordDetails *PartyDetailsInput `json:"landlordDetails"`
	TenantDetails   *PartyDetailsInput `json:"tenantDetails"`
}

// UpdateTermsRequest carries a partial update; nil fields are left untouched
type UpdateTermsRequest struct {
	LandlordDetails  *PartyDetailsInput `json:"landlordDetails"`
	TenantDetails    *PartyDetailsInput `json:"tenantDetails"`
	WitnessName      *string            `json:"witnessName"`
	WitnessAddress   *string            `json:"witnessAddress"`
	WitnessUserID    *string            `json:"witnessUserId"`
	PropertyAddress  *string            `json:"propertyAddress"`
	MonthlyRent      *float64           `json:"monthlyRent"`
	SecurityDeposit  *float64           `json:"securityDeposit"`
	StartDate        *time.Time         `json:"startDate"`
	EndDate          *time.Time         `json:"endDate"`
	Terms            *string            `json:"terms"`
	Conditions       *string            `json:"conditions"`
	PlaceOfExecution *string            `json:"placeOfExecution"`
}

type DecisionRequest struct {
	Feedback string `json:"feedback"`
}

type SignRequest struct {
	SignatureText      string `json:"signatureText"`
	SignatureImage     string `json:"signatureImage"`
	VerificationCode   string `json:"verificationCode"`
	UseStoredSignature bool   `json:"useStoredSignature"`
	SaveSignature      bool   `json:"saveSignature"`
}

type ReminderRequest struct {
	RecipientRole string `json:"recipientRole" binding:"required"`
}

type DocumentRequest struct {
	Reference string `json:"reference" binding:"required"`
}

type StoreSignatureRequest struct {
	SignatureImage string `json:"signatureImage" binding:"required"`
}

// Response models

// ContractSummary is the compact contract view sent with events
type ContractSummary struct {
	ContractID            string    `json:"contractId"`
	PropertyAddress       string    `json:"propertyAddress"`
	LandlordName          string    `json:"landlordName"`
	TenantName            string    `json:"tenantName"`
	Status                Status    `json:"status"`
	MonthlyRent           float64   `json:"monthlyRent"`
	StartDate             time.Time `json:"startDate"`
	EndDate               time.Time `json:"endDate"`
	IsFullySigned         bool      `json:"isFullySigned"`
	NextRequiredSignature Role      `json:"nextRequiredSignature"`
}

// ContractView is a contract with its derived display fields, computed on read
type ContractView struct {
	*Contract
	DurationMonths        int     `json:"durationMonths"`
	TotalValue            float64 `json:"totalValue"`
	IsFullySigned         bool    `json:"isFullySigned"`
	NextRequiredSignature Role    `json:"nextRequiredSignature"`
}

// NewContractView computes the derived fields of a contract as seen by
// viewerID. Verification codes other than the viewer's own are stripped.
func NewContractView(c *Contract, viewerID string) ContractView {
	shown := c.Clone()
	shown.Signatures = c.Signatures.Redacted(c.ViewerRole(viewerID))
	return ContractView{
		Contract:              shown,
		DurationMonths:        c.DurationMonths(),
		TotalValue:            c.TotalValue(),
		IsFullySigned:         c.IsFullySigned(),
		NextRequiredSignature: c.NextRequiredSignature(),
	}
}

type ContractResponse struct {
	Status   string       `json:"status"`
	Contract ContractView `json:"contract"`
}

type ContractListResponse struct {
	Status    string         `json:"status"`
	Contracts []ContractView `json:"contracts"`
}

// VerificationResult is the public audit answer for a presented fingerprint
type VerificationResult struct {
	IsValid         bool      `json:"isValid"`
	ContractID      string    `json:"contractId"`
	CreatedAt       time.Time `json:"createdAt"`
	Status          Status    `json:"status"`
	PropertyAddress string    `json:"propertyAddress"`
	LandlordName    string    `json:"landlordName"`
	TenantName      string    `json:"tenantName"`
}

// SignatureVerificationResult carries the signature only when the code matched
type SignatureVerificationResult struct {
	IsValid   bool       `json:"isValid"`
	Role      Role       `json:"role"`
	Signature *Signature `json:"signature,omitempty"`
}

type ReminderResponse struct {
	Status        string `json:"status"`
	RecipientID   string `json:"recipientId"`
	RecipientName string `json:"recipientName"`
	RecipientRole Role   `json:"recipientRole"`
}

// VerificationCodeResponse acknowledges issuance; the code itself goes out as
// a private notification
type VerificationCodeResponse struct {
	Status string `json:"status"`
	Role   Role   `json:"role"`
}

type ErrorResponse struct {
	Status  string   `json:"status"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}
