package social

// SampleNations creates the default nations used when no scenario is loaded.
func SampleNations() []*Nation {
	specs := []struct {
		id, name, color      string
		tax                  float64
		economic, military   float64
		diplomatic, socialSl float64
	}{
		{"crown", "The Crown", "#8b1e3f", 0.12, 0.5, 0.7, 0.4, 0.5},
		{"compact", "Merchant Compact", "#d4a017", 0.08, 0.8, 0.3, 0.7, 0.4},
		{"marches", "Iron Marches", "#4a5a6a", 0.15, 0.4, 0.85, 0.3, 0.3},
		{"verdance", "Verdant League", "#2e7d32", 0.10, 0.5, 0.2, 0.6, 0.8},
	}

	nations := make([]*Nation, 0, len(specs))
	for _, s := range specs {
		n := NewNation(s.id, s.name, s.color)
		n.Economy.TaxRate = s.tax
		n.Policy.Sliders[PolicyEconomic] = s.economic
		n.Policy.Sliders[PolicyMilitary] = s.military
		n.Policy.Sliders[PolicyDiplomatic] = s.diplomatic
		n.Policy.Sliders[PolicySocial] = s.socialSl
		nations = append(nations, n)
	}
	return nations
}

// SampleRelations returns the opening relation scores between sample nations.
func SampleRelations() map[[2]NationID]float64 {
	return map[[2]NationID]float64{
		{"crown", "compact"}:    -20,
		{"crown", "marches"}:    65,
		{"crown", "verdance"}:   10,
		{"compact", "marches"}:  -10,
		{"compact", "verdance"}: 35,
		{"marches", "verdance"}: -65,
	}
}
