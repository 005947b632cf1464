package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a contract
type Status string

const (
	StatusDraft                    Status = "draft"
	StatusPendingLandlordSignature Status = "pending_landlord_signature"
	StatusPendingTenantSignature   Status = "pending_tenant_signature"
	StatusPendingWitnessSignature  Status = "pending_witness_signature"
	StatusLandlordApproved         Status = "landlord_approved"
	StatusTenantApproved           Status = "tenant_approved"
	StatusRejected                 Status = "rejected"
	StatusFullySigned              Status = "fully_signed"
	StatusActive                   Status = "active"
	StatusCompleted                Status = "completed"
	StatusTerminated               Status = "terminated"
	StatusExpired                  Status = "expired"
	StatusApproved                 Status = "approved"
)

// IsFinal reports whether approve and sign transitions stop at this status.
// rejected is deliberately absent.
func (s Status) IsFinal() bool {
	switch s {
	case StatusApproved, StatusFullySigned, StatusCompleted, StatusTerminated:
		return true
	}
	return false
}

// Role is the capacity in which a party acts on a contract
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
	RoleWitness  Role = "witness"
)

// ParseRole accepts landlord, tenant or witness in any case
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleLandlord, RoleTenant, RoleWitness:
		return r, true
	}
	return "", false
}

// DocumentType is the closed set of supporting documents a party may attach
type DocumentType string

const (
	DocumentIDProof        DocumentType = "id_proof"
	DocumentAddressProof   DocumentType = "address_proof"
	DocumentPhoto          DocumentType = "photo"
	DocumentOwnershipProof DocumentType = "ownership_proof"
)

// ParseDocumentType validates a document type against the closed set
func ParseDocumentType(s string) (DocumentType, bool) {
	switch d := DocumentType(s); d {
	case DocumentIDProof, DocumentAddressProof, DocumentPhoto, DocumentOwnershipProof:
		return d, true
	}
	return "", false
}

// PartyDetails is the stated identity of a landlord or tenant
type PartyDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Approval records one party's decision
type Approval struct {
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	Feedback   string     `json:"feedback,omitempty"`
	IPAddress  string     `json:"ipAddress,omitempty"`
}

// Approvals always holds both records, zero-valued when untouched
type Approvals struct {
	Landlord Approval `json:"landlord"`
	Tenant   Approval `json:"tenant"`
}

// For returns the approval record of a role, or nil for witness
func (a *Approvals) For(role Role) *Approval {
	switch role {
	case RoleLandlord:
		return &a.Landlord
	case RoleTenant:
		return &a.Tenant
	}
	return nil
}

// Signature records one signing event
type Signature struct {
	Signed           bool       `json:"signed"`
	SignedAt         *time.Time `json:"signedAt,omitempty"`
	SignatureText    string     `json:"signatureText,omitempty"`
	SignatureImage   string     `json:"signatureImage,omitempty"`
	IPAddress        string     `json:"ipAddress,omitempty"`
	VerificationCode string     `json:"verificationCode,omitempty"`
}

// Signatures always holds all three records, zero-valued when untouched
type Signatures struct {
	Landlord Signature `json:"landlord"`
	Tenant   Signature `json:"tenant"`
	Witness  Signature `json:"witness"`
}

// For returns the signature record of a role
func (s *Signatures) For(role Role) *Signature {
	switch role {
	case RoleLandlord:
		return &s.Landlord
	case RoleTenant:
		return &s.Tenant
	case RoleWitness:
		return &s.Witness
	}
	return nil
}

// Redacted returns a copy with every verification code cleared except the one
// on keep's own completed signature. Pending codes are never kept.
func (s Signatures) Redacted(keep Role) Signatures {
	for _, role := range []Role{RoleLandlord, RoleTenant, RoleWitness} {
		sig := s.For(role)
		if role == keep && sig.Signed {
			continue
		}
		sig.VerificationCode = ""
	}
	return s
}

// StatusChange is one entry of the append-only status history
type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	ChangedBy string    `json:"changedBy"`
	Reason    string    `json:"reason"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

// ContractStatus holds the current status and its history
type ContractStatus struct {
	Current     Status         `json:"current"`
	History     []StatusChange `json:"history"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// Documents maps role -> document type -> opaque file reference
type Documents map[Role]map[DocumentType]string

// Contract is the rental agreement aggregate
type Contract struct {
	ContractID string `json:"contractId"`
	PropertyID string `json:"propertyId"`
	TenantID   string `json:"tenantId"`
	LandlordID string `json:"landlordId"`

	PropertyAddress    string    `json:"propertyAddress"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
	MonthlyRent        float64   `json:"monthlyRent"`
	SecurityDeposit    float64   `json:"securityDeposit"`
	Terms              string    `json:"terms"`
	Conditions         string    `json:"conditions,omitempty"`
	PlaceOfExecution   string    `json:"placeOfExecution"`
	Bedrooms           int       `json:"bedrooms"`
	Fans               int       `json:"fans"`
	Lights             int       `json:"lights"`
	Geysers            int       `json:"geysers"`
	Mirrors            int       `json:"mirrors"`
	Taps               int       `json:"taps"`
	MaintenanceCharges float64   `json:"maintenanceCharges"`

	LandlordFatherName string `json:"landlordFatherName"`
	TenantFatherName   string `json:"tenantFatherName"`
	TenantOccupation   string `json:"tenantOccupation"`
	WitnessName        string `json:"witnessName,omitempty"`
	WitnessAddress     string `json:"witnessAddress,omitempty"`
	WitnessUserID      string `json:"witnessUserId,omitempty"`

	LandlordDetails PartyDetails `json:"landlordDetails"`
	TenantDetails   PartyDetails `json:"tenantDetails"`

	Approvals      Approvals      `json:"approvals"`
	Signatures     Signatures     `json:"signatures"`
	ContractStatus ContractStatus `json:"contractStatus"`
	Documents      Documents      `json:"documents"`

	DigitalHash string     `json:"digitalHash"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PartyRole returns landlord or tenant for a party's user id.
// Landlord wins if the ids coincide, which creation rejects anyway.
func (c *Contract) PartyRole(userID string) (Role, bool) {
	switch userID {
	case "":
		return "", false
	case c.LandlordID:
		return RoleLandlord, true
	case c.TenantID:
		return RoleTenant, true
	}
	return "", false
}

// ViewerRole is the role a user holds on the contract, including a witness
// captured by id. Name-matched witnesses are not recognised here.
func (c *Contract) ViewerRole(userID string) Role {
	if role, ok := c.PartyRole(userID); ok {
		return role
	}
	if userID != "" && userID == c.WitnessUserID {
		return RoleWitness
	}
	return ""
}

// PartyID returns the user id holding a role, if known
func (c *Contract) PartyID(role Role) string {
	switch role {
	case RoleLandlord:
		return c.LandlordID
	case RoleTenant:
		return c.TenantID
	case RoleWitness:
		return c.WitnessUserID
	}
	return ""
}

// PartyName returns the stated name for a role
func (c *Contract) PartyName(role Role) string {
	switch role {
	case RoleLandlord:
		return c.LandlordDetails.Name
	case RoleTenant:
		return c.TenantDetails.Name
	case RoleWitness:
		return c.WitnessName
	}
	return ""
}

// WitnessRequired reports whether a witness signature is mandatory
func (c *Contract) WitnessRequired() bool {
	return strings.TrimSpace(c.WitnessName) != ""
}

// IsFullySigned reports whether every required signature is present
func (c *Contract) IsFullySigned() bool {
	return c.Signatures.Landlord.Signed &&
		c.Signatures.Tenant.Signed &&
		(c.Signatures.Witness.Signed || !c.WitnessRequired())
}

// NextRequiredSignature returns the role expected to sign next, or "" when none
func (c *Contract) NextRequiredSignature() Role {
	switch {
	case !c.Signatures.Landlord.Signed:
		return RoleLandlord
	case !c.Signatures.Tenant.Signed:
		return RoleTenant
	case c.WitnessRequired() && !c.Signatures.Witness.Signed:
		return RoleWitness
	}
	return ""
}

// DurationMonths counts calendar months between start and end, rounding a
// trailing partial month up.
func (c *Contract) DurationMonths() int {
	if c.StartDate.IsZero() || c.EndDate.IsZero() || !c.EndDate.After(c.StartDate) {
		return 0
	}
	s, e := c.StartDate.UTC(), c.EndDate.UTC()
	months := (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
	if e.Day() > s.Day() {
		months++
	}
	if months < 0 {
		return 0
	}
	return months
}

// TotalValue is rent over the whole duration plus the deposit
func (c *Contract) TotalValue() float64 {
	return c.MonthlyRent*float64(c.DurationMonths()) + c.SecurityDeposit
}

// AppendStatus records a transition and moves the current status
func (c *Contract) AppendStatus(status Status, changedBy, reason, ip string, at time.Time) {
	c.ContractStatus.History = append(c.ContractStatus.History, StatusChange{
		Status:    status,
		ChangedAt: at,
		ChangedBy: changedBy,
		Reason:    reason,
		IPAddress: ip,
	})
	c.ContractStatus.Current = status
	c.ContractStatus.LastUpdated = at
}

// SetDocument stores a file reference under the closed role/type enums
func (c *Contract) SetDocument(role Role, docType DocumentType, ref string) {
	if c.Documents == nil {
		c.Documents = Documents{}
	}
	if c.Documents[role] == nil {
		c.Documents[role] = map[DocumentType]string{}
	}
	c.Documents[role][docType] = ref
}

// Summary is the compact view pushed with notifications
func (c *Contract) Summary() ContractSummary {
	return ContractSummary{
		ContractID:            c.ContractID,
		PropertyAddress:       c.PropertyAddress,
		LandlordName:          c.LandlordDetails.Name,
		TenantName:            c.TenantDetails.Name,
		Status:                c.ContractStatus.Current,
		MonthlyRent:           c.MonthlyRent,
		StartDate:             c.StartDate,
		EndDate:               c.EndDate,
		IsFullySigned:         c.IsFullySigned(),
		NextRequiredSignature: c.NextRequiredSignature(),
	}
}

// Clone returns a deep copy
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.ContractStatus.History = append([]StatusChange(nil), c.ContractStatus.History...)
	out.Approvals.Landlord.ApprovedAt = cloneTime(c.Approvals.Landlord.ApprovedAt)
	out.Approvals.Tenant.ApprovedAt = cloneTime(c.Approvals.Tenant.ApprovedAt)
	out.Signatures.Landlord.SignedAt = cloneTime(c.Signatures.Landlord.SignedAt)
	out.Signatures.Tenant.SignedAt = cloneTime(c.Signatures.Tenant.SignedAt)
	out.Signatures.Witness.SignedAt = cloneTime(c.Signatures.Witness.SignedAt)
	out.ApprovedAt = cloneTime(c.ApprovedAt)
	if c.Documents != nil {
		out.Documents = make(Documents, len(c.Documents))
		for role, docs := range c.Documents {
			m := make(map[DocumentType]string, len(docs))
			for k, v := range docs {
				m[k] = v
			}
			out.Documents[role] = m
		}
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
