// Package world provides regions, the smallest economic unit of the simulation,
// together with the resource catalogue they trade in.
package world

import (
	"github.com/samber/lo"
)

// RegionID is the stable key of a region.
type RegionID = string

// Coord is the axial position of the map cell a region was created from.
// Display-only; the simulation never reads it except for scenario banding.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b Coord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

// Region is one map cell with its own economy, production, resources,
// population and infrastructure. Every component is always non-nil.
type Region struct {
	ID       RegionID `json:"id"`
	Name     string   `json:"name"`
	Position Coord    `json:"position"`

	Economy        *Economy        `json:"economy"`
	Production     *Production     `json:"production"`
	Resources      *Resources      `json:"resources"`
	Population     *Population     `json:"population"`
	Infrastructure *Infrastructure `json:"infrastructure"`
}

// Economy holds a region's money state.
type Economy struct {
	Wealth      int     `json:"wealth"` // Currency units; consumers keep it >= 0
	GDP         float64 `json:"gdp"`
	PreviousGDP float64 `json:"previous_gdp"`
	GrowthRate  float64 `json:"growth_rate"`

	// Last tick's flows, kept for reporting and conservation checks.
	LastConsumption int `json:"last_consumption"`
	LastIncome      int `json:"last_income"`
	LastUpkeep      int `json:"last_upkeep"`
}

// Credit adds amount to wealth. Negative amounts debit, never below zero.
// Returns the amount actually applied.
func (e *Economy) Credit(amount int) int {
	if amount < 0 && -amount > e.Wealth {
		amount = -e.Wealth
	}
	e.Wealth += amount
	return amount
}

// RecordGDP rolls the GDP figure forward and recomputes growth.
func (e *Economy) RecordGDP(gdp float64) {
	e.PreviousGDP = e.GDP
	e.GDP = gdp
	if e.PreviousGDP > 0 {
		e.GrowthRate = (e.GDP - e.PreviousGDP) / e.PreviousGDP
	} else {
		e.GrowthRate = 0
	}
}

// Production holds the region's output and the multipliers acting on it.
type Production struct {
	Current   int                `json:"current"`
	Modifiers map[string]float64 `json:"modifiers"` // Multiplicative, keyed by source
	Sectors   map[string]float64 `json:"sectors"`   // Allocation fractions, sum ~1
}

// SetModifier installs or replaces a named multiplicative modifier.
// Negative factors are stored as zero.
func (p *Production) SetModifier(name string, factor float64) {
	if p.Modifiers == nil {
		p.Modifiers = make(map[string]float64)
	}
	p.Modifiers[name] = max(factor, 0)
}

// RemoveModifier drops a named modifier.
func (p *Production) RemoveModifier(name string) {
	delete(p.Modifiers, name)
}

// ModifierProduct returns the product of all modifiers (1 when there are none).
func (p *Production) ModifierProduct() float64 {
	product := 1.0
	for _, f := range p.Modifiers {
		product *= f
	}
	return product
}

// SetSectorAllocation replaces the sector split, normalised so it sums to 1.
// An allocation with no positive weight is ignored.
func (p *Production) SetSectorAllocation(alloc map[string]float64) {
	total := lo.Sum(lo.Map(lo.Values(alloc), func(v float64, _ int) float64 { return max(v, 0) }))
	if total <= 0 {
		return
	}
	sectors := make(map[string]float64, len(alloc))
	for name, v := range alloc {
		sectors[name] = max(v, 0) / total
	}
	p.Sectors = sectors
}

// ResourceStock is the stock and per-tick production rate of one resource.
type ResourceStock struct {
	Stock float64 `json:"stock"`
	Rate  float64 `json:"rate"`
}

// Resources maps resource type to its stock/rate pair.
type Resources struct {
	Stocks map[string]*ResourceStock `json:"stocks"`
}

// Get returns the entry for a resource type, creating it on first use.
func (r *Resources) Get(resourceType string) *ResourceStock {
	s, ok := r.Stocks[resourceType]
	if !ok {
		s = &ResourceStock{}
		r.Stocks[resourceType] = s
	}
	return s
}

// TotalRate sums production rates over all resource types.
func (r *Resources) TotalRate() float64 {
	total := 0.0
	for _, s := range r.Stocks {
		total += max(s.Rate, 0)
	}
	return total
}

// Population holds demographic state.
type Population struct {
	Count          int                `json:"count"`
	LaborAvailable int                `json:"labor_available"`
	Needs          map[string]float64 `json:"needs"`  // Satisfaction per need, 0–1
	Unrest         float64            `json:"unrest"` // Last tick's unrest, 0–1
}

// Reset replaces count and labor in place. Needs and unrest are kept.
func (p *Population) Reset(count, labor int) {
	p.Count = max(count, 0)
	p.LaborAvailable = lo.Clamp(labor, 0, p.Count)
}

// SetNeed records the satisfaction of a named need, clamped to [0,1].
func (p *Population) SetNeed(name string, satisfaction float64) {
	p.Needs[name] = lo.Clamp(satisfaction, 0, 1)
}

// Infrastructure describes built capital.
type Infrastructure struct {
	Level   float64 `json:"level"`   // Unbounded upward
	Quality float64 `json:"quality"` // 0–1
}

// Improve raises the level and nudges quality toward 1.
func (i *Infrastructure) Improve(gain float64) {
	if gain <= 0 {
		return
	}
	i.Level += gain
	i.Quality = lo.Clamp(i.Quality+gain*0.01, 0, 1)
}

// Degrade lowers the level, never below zero.
func (i *Infrastructure) Degrade(loss float64) {
	if loss <= 0 {
		return
	}
	i.Level = max(i.Level-loss, 0)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
