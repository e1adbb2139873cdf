// Package social provides nations and their treasury, policy, diplomacy and
// stability components.
package social

import "slices"

// NationID is the stable key of a nation.
type NationID = string

// Nation is a collection of regions under a shared treasury, policy,
// diplomacy and stability. A nation does not police region exclusivity;
// that is enforced where regions are assigned.
type Nation struct {
	ID    NationID `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"` // Display-only

	Economy   *NationEconomy `json:"economy"`
	Policy    *PolicySet     `json:"policy"`
	Diplomacy *Diplomacy     `json:"diplomacy"`
	Stability *Stability     `json:"stability"`

	regions []string
}

// NewNation creates a nation with default components.
func NewNation(id NationID, name, color string) *Nation {
	if name == "" {
		name = id
	}
	return &Nation{
		ID:        id,
		Name:      name,
		Color:     color,
		Economy:   NewNationEconomy(),
		Policy:    NewPolicySet(),
		Diplomacy: NewDiplomacy(),
		Stability: NewStability(),
	}
}

// AddRegion adds a region id. Returns false if it was already owned.
func (n *Nation) AddRegion(regionID string) bool {
	if n.HasRegion(regionID) {
		return false
	}
	n.regions = append(n.regions, regionID)
	return true
}

// RemoveRegion removes a region id. Returns false if it was not owned.
func (n *Nation) RemoveRegion(regionID string) bool {
	i := slices.Index(n.regions, regionID)
	if i < 0 {
		return false
	}
	n.regions = slices.Delete(n.regions, i, i+1)
	return true
}

// HasRegion reports whether the nation owns the region.
func (n *Nation) HasRegion(regionID string) bool {
	return slices.Contains(n.regions, regionID)
}

// RegionIDs returns a copy of the owned region ids in assignment order.
func (n *Nation) RegionIDs() []string {
	return slices.Clone(n.regions)
}

// RegionCount returns the number of owned regions.
func (n *Nation) RegionCount() int {
	return len(n.regions)
}
