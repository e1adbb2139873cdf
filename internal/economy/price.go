package economy

import (
	"math"

	"github.com/samber/lo"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/world"
)

// Price bounds.
const (
	DefaultPrice = 100.0 // Price of any resource nobody has traded yet
	MinPrice     = 0.01
	// MaxStep caps both per-tick movement and shocks so prices stay positive.
	MaxStep = 0.9
)

// Income elasticities per resource class.
var elasticities = map[world.ResourceClass]float64{
	world.ClassNecessity: 0.5,
	world.ClassStandard:  1.0,
	world.ClassLuxury:    1.5,
}

// PriceCalculator moves prices toward supply/demand equilibrium.
type PriceCalculator struct {
	AdjustmentSpeed float64 // Fraction of the relative imbalance applied per tick
	MaxPriceChange  float64 // Largest relative move per tick
	ReferenceIncome float64 // Wealth at which income-adjusted demand doubles for standard goods

	Classes world.Classifier
	Rand    entropy.Source
}

// NewPriceCalculator returns the default calibration drawing shocks from rng.
func NewPriceCalculator(rng entropy.Source) *PriceCalculator {
	if rng == nil {
		rng = entropy.Crypto{}
	}
	return &PriceCalculator{
		AdjustmentSpeed: 0.5,
		MaxPriceChange:  0.1,
		ReferenceIncome: 1000,
		Classes:         world.Classifier{},
		Rand:            rng,
	}
}

// CalculatePrice returns the next price. Excess demand raises it, excess
// supply lowers it, and the move is capped at MaxPriceChange.
func (c *PriceCalculator) CalculatePrice(oldPrice, supply, demand float64, resourceType string) float64 {
	if oldPrice <= 0 || math.IsNaN(oldPrice) {
		oldPrice = DefaultPrice
	}
	supply = math.Max(supply, 0)
	demand = math.Max(demand, 0)
	larger := math.Max(supply, demand)
	if larger == 0 {
		return math.Max(oldPrice, MinPrice)
	}

	imbalance := (demand - supply) / larger // [-1, 1]
	limit := lo.Clamp(c.MaxPriceChange, 0, MaxStep)
	change := lo.Clamp(imbalance*c.AdjustmentSpeed, -limit, limit)

	return math.Max(oldPrice*(1+change), MinPrice)
}

// CalculatePriceShock perturbs price by the supply shock and demand trend plus
// noise, with the total relative move clamped to ±maxShock.
func (c *PriceCalculator) CalculatePriceShock(price, supplyShock, demandTrend, maxShock float64) float64 {
	if price <= 0 || math.IsNaN(price) {
		price = DefaultPrice
	}
	maxShock = lo.Clamp(maxShock, 0, MaxStep)
	if maxShock == 0 {
		return math.Max(price, MinPrice)
	}

	noise := (c.Rand.Float64()*2 - 1) * maxShock * 0.5
	delta := lo.Clamp(demandTrend-supplyShock+noise, -maxShock, maxShock)
	if math.IsNaN(delta) {
		delta = 0
	}
	return math.Max(price*(1+delta), MinPrice)
}

// Elasticity returns the income elasticity of a resource type.
func (c *PriceCalculator) Elasticity(resourceType string) float64 {
	return elasticities[c.Classes.ClassOf(resourceType)]
}

// AdjustDemandByIncome scales base demand by (1 + wealth/reference)^elasticity.
// Necessities grow sub-linearly with income, luxuries super-linearly.
func (c *PriceCalculator) AdjustDemandByIncome(baseDemand float64, wealth int, resourceType string) float64 {
	if baseDemand <= 0 {
		return 0
	}
	ref := c.ReferenceIncome
	if ref <= 0 {
		ref = 1000
	}
	income := float64(max(wealth, 0)) / ref
	return baseDemand * math.Pow(1+income, c.Elasticity(resourceType))
}
