package world

import (
	"math"

	"github.com/samber/lo"
)

// RegionSpec carries the initial values for a region. Zero values fall back
// to defaults in NewRegion.
type RegionSpec struct {
	ID       RegionID
	Name     string
	Position Coord

	Wealth         int
	Population     int
	LaborShare     float64 // Fraction of population available as labor (default 0.6)
	Infrastructure float64
	Quality        float64
	ResourceRates  map[string]float64
}

// DefaultLaborShare is the working fraction of a population.
const DefaultLaborShare = 0.6

// NewRegion builds a region with all five components populated. resourceTypes
// seeds an entry for every known resource so later lookups never miss.
func NewRegion(spec RegionSpec, resourceTypes []string) *Region {
	name := spec.Name
	if name == "" {
		name = spec.ID
	}
	laborShare := spec.LaborShare
	if laborShare <= 0 {
		laborShare = DefaultLaborShare
	}
	laborShare = lo.Clamp(laborShare, 0, 1)

	res := &Resources{Stocks: make(map[string]*ResourceStock, len(resourceTypes))}
	for _, rt := range resourceTypes {
		res.Stocks[rt] = &ResourceStock{}
	}
	for rt, rate := range spec.ResourceRates {
		res.Get(rt).Rate = max(rate, 0)
	}

	pop := &Population{Needs: make(map[string]float64)}
	pop.Reset(spec.Population, int(math.Round(float64(max(spec.Population, 0))*laborShare)))
	for _, need := range []string{NeedFood, NeedShelter, NeedGoods} {
		pop.Needs[need] = 1
	}

	return &Region{
		ID:       spec.ID,
		Name:     name,
		Position: spec.Position,
		Economy:  &Economy{Wealth: max(spec.Wealth, 0)},
		Production: &Production{
			Modifiers: make(map[string]float64),
			Sectors:   map[string]float64{SectorAgriculture: 0.5, SectorIndustry: 0.3, SectorServices: 0.2},
		},
		Resources:  res,
		Population: pop,
		Infrastructure: &Infrastructure{
			Level:   max(spec.Infrastructure, 0),
			Quality: lo.Clamp(spec.Quality, 0, 1),
		},
	}
}

// Need names tracked on every population.
const (
	NeedFood    = "food"
	NeedShelter = "shelter"
	NeedGoods   = "goods"
)

// Default production sectors.
const (
	SectorAgriculture = "agriculture"
	SectorIndustry    = "industry"
	SectorServices    = "services"
)
