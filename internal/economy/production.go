// Package economy provides the stateless calculators behind the economic
// tick (production, infrastructure, prices, consumption, business cycle)
// and the global per-resource ledger.
package economy

import (
	"math"

	"github.com/talgya/statecraft/internal/world"
)

// CapitalPerInfraLevel converts one level of infrastructure into capital units.
const CapitalPerInfraLevel = 10.0

// ProductionCalculator computes output with a Cobb-Douglas function of labor
// and capital.
type ProductionCalculator struct {
	ProductivityFactor float64
	LaborElasticity    float64
	CapitalElasticity  float64
}

// NewProductionCalculator returns the default calibration.
func NewProductionCalculator() *ProductionCalculator {
	return &ProductionCalculator{
		ProductivityFactor: 1.0,
		LaborElasticity:    0.7,
		CapitalElasticity:  0.3,
	}
}

// Labor returns the labor input of a region.
func Labor(r *world.Region) float64 {
	return math.Max(float64(r.Population.LaborAvailable), 0)
}

// Capital returns the capital input of a region: built infrastructure scaled
// by quality plus natural resource flow.
func Capital(r *world.Region) float64 {
	infra := math.Max(r.Infrastructure.Level, 0) * CapitalPerInfraLevel * (1 + clamp01(r.Infrastructure.Quality))
	return infra + r.Resources.TotalRate()
}

// CalculateRegionProduction returns productivity · L^α · K^β · modifiers.
// Pure function of region state.
func (c *ProductionCalculator) CalculateRegionProduction(r *world.Region) float64 {
	labor := Labor(r)
	capital := Capital(r)
	alpha := math.Max(c.LaborElasticity, 0)
	beta := math.Max(c.CapitalElasticity, 0)

	out := math.Max(c.ProductivityFactor, 0) * math.Pow(labor, alpha) * math.Pow(capital, beta)
	out *= r.Production.ModifierProduct()
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
