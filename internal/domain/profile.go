package domain

// BuyerProfile describes what a household is looking for. Validated at the
// request boundary: BudgetMin must be strictly below BudgetMax.
type BuyerProfile struct {
	BudgetMin float64 `json:"budget_min" validate:"gt=0"`
	BudgetMax float64 `json:"budget_max" validate:"gtfield=BudgetMin"`

	Adults       int   `json:"adults" validate:"gte=1"`
	ChildrenAges []int `json:"children_ages,omitempty" validate:"dive,gte=0,lte=17"`

	PreferredZone         string   `json:"preferred_zone,omitempty"`
	PreferredPropertyType string   `json:"preferred_property_type,omitempty"`
	NeededServices        []string `json:"needed_service_categories,omitempty"`
	DesiredAmenities      []string `json:"desired_amenities,omitempty"`
}

// HouseholdSize returns the total number of people in the household.
func (p BuyerProfile) HouseholdSize() int {
	return p.Adults + len(p.ChildrenAges)
}
