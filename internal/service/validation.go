package service

import (
	"strings"

	"github.com/rongwang/lease-contract-server/internal/models"
)

// validateContract returns every missing or invalid required field, in a
// stable order. A zero count or amount is valid, an absent one is not.
func validateContract(req *models.CreateContractRequest) []string {
	var fields []string
	str := func(name string, v *string) {
		if v == nil || strings.TrimSpace(*v) == "" {
			fields = append(fields, name)
		}
	}
	amount := func(name string, v *float64) {
		if v == nil || *v < 0 {
			fields = append(fields, name)
		}
	}
	count := func(name string, v *int) {
		if v == nil || *v < 0 {
			fields = append(fields, name)
		}
	}
	details := func(prefix string, d *models.PartyDetailsInput) {
		if d == nil {
			d = &models.PartyDetailsInput{}
		}
		str(prefix+".name", d.Name)
		str(prefix+".email", d.Email)
		str(prefix+".phone", d.Phone)
		str(prefix+".address", d.Address)
	}

	str("propertyId", req.PropertyID)
	str("tenantId", req.TenantID)
	str("contractId", req.ContractID)
	str("propertyAddress", req.PropertyAddress)
	if req.StartDate == nil || req.StartDate.IsZero() {
		fields = append(fields, "startDate")
	}
	switch {
	case req.EndDate == nil || req.EndDate.IsZero():
		fields = append(fields, "endDate")
	case req.StartDate != nil && !req.EndDate.After(*req.StartDate):
		fields = append(fields, "endDate")
	}
	amount("monthlyRent", req.MonthlyRent)
	amount("securityDeposit", req.SecurityDeposit)
	str("terms", req.Terms)
	str("placeOfExecution", req.PlaceOfExecution)
	count("bedrooms", req.Bedrooms)
	count("fans", req.Fans)
	count("lights", req.Lights)
	count("geysers", req.Geysers)
	count("mirrors", req.Mirrors)
	count("taps", req.Taps)
	amount("maintenanceCharges", req.MaintenanceCharges)
	str("landlordFatherName", req.LandlordFatherName)
	str("tenantFatherName", req.TenantFatherName)
	str("tenantOccupation", req.TenantOccupation)
	details("landlordDetails", req.LandlordDetails)
	details("tenantDetails", req.TenantDetails)

	return fields
}

// requestFromContract lifts a stored contract back into request form so the
// merged result of an update goes through the same checks as creation.
func requestFromContract(c *models.Contract) *models.CreateContractRequest {
	s := func(v string) *string { return &v }
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }
	d := func(p models.PartyDetails) *models.PartyDetailsInput {
		return &models.PartyDetailsInput{Name: s(p.Name), Email: s(p.Email), Phone: s(p.Phone), Address: s(p.Address)}
	}
	start, end := c.StartDate, c.EndDate

	return &models.CreateContractRequest{
		ContractID:         s(c.ContractID),
		PropertyID:         s(c.PropertyID),
		TenantID:           s(c.TenantID),
		PropertyAddress:    s(c.PropertyAddress),
		StartDate:          &start,
		EndDate:            &end,
		MonthlyRent:        f(c.MonthlyRent),
		SecurityDeposit:    f(c.SecurityDeposit),
		Terms:              s(c.Terms),
		Conditions:         s(c.Conditions),
		PlaceOfExecution:   s(c.PlaceOfExecution),
		Bedrooms:           i(c.Bedrooms),
		Fans:               i(c.Fans),
		Lights:             i(c.Lights),
		Geysers:            i(c.Geysers),
		Mirrors:            i(c.Mirrors),
		Taps:               i(c.Taps),
		MaintenanceCharges: f(c.MaintenanceCharges),
		LandlordFatherName: s(c.LandlordFatherName),
		TenantFatherName:   s(c.TenantFatherName),
		TenantOccupation:   s(c.TenantOccupation),
		WitnessName:        s(c.WitnessName),
		WitnessAddress:     s(c.WitnessAddress),
		WitnessUserID:      s(c.WitnessUserID),
		LandlordDetails:    d(c.LandlordDetails),
		TenantDetails:      d(c.TenantDetails),
	}
}

// witnessConflicts reports a witness id that coincides with a party
func witnessConflicts(witnessUserID, landlordID, tenantID string) bool {
	return witnessUserID != "" && (witnessUserID == landlordID || witnessUserID == tenantID)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
