package economy

import "math"

// InfraLevelScale is the level at which ~63% of the maximum boost is reached.
const InfraLevelScale = 10.0

// InfrastructureCalculator turns infrastructure levels into efficiency and
// upkeep. All curves show diminishing returns in level.
type InfrastructureCalculator struct {
	EfficiencyModifier    float64 // Asymptotic extra efficiency (0.5 = up to +50%)
	DecayRate             float64 // Fraction of level lost per turn at zero quality
	MaintenanceCostFactor float64 // Wealth per turn per level^0.8
}

// NewInfrastructureCalculator returns the default calibration.
func NewInfrastructureCalculator() *InfrastructureCalculator {
	return &InfrastructureCalculator{
		EfficiencyModifier:    0.5,
		DecayRate:             0.02,
		MaintenanceCostFactor: 2.0,
	}
}

// CalculateEfficiencyBoost returns a multiplier ≥1 that rises toward
// 1+EfficiencyModifier as the level grows.
func (c *InfrastructureCalculator) CalculateEfficiencyBoost(level float64) float64 {
	if math.IsNaN(level) || level <= 0 {
		return 1
	}
	mod := math.Max(c.EfficiencyModifier, 0)
	return 1 + mod*(1-math.Exp(-level/InfraLevelScale))
}

// CalculateDecay returns the level lost this turn. Higher quality halves decay at best.
func (c *InfrastructureCalculator) CalculateDecay(level, quality float64) float64 {
	if level <= 0 {
		return 0
	}
	return level * math.Max(c.DecayRate, 0) * (1 - 0.5*clamp01(quality))
}

// CalculateMaintenanceCost returns the wealth needed to maintain a level.
func (c *InfrastructureCalculator) CalculateMaintenanceCost(level float64) int {
	if level <= 0 {
		return 0
	}
	return int(math.Round(math.Max(c.MaintenanceCostFactor, 0) * math.Pow(level, 0.8)))
}

// CalculateInvestmentGain returns the level gained by spending amount on a
// region already at level. Each extra unit buys less, and developed regions
// gain less from the same spend.
func (c *InfrastructureCalculator) CalculateInvestmentGain(amount, level float64) float64 {
	if amount <= 0 {
		return 0
	}
	return 0.1 * math.Sqrt(amount) / (1 + math.Max(level, 0)/InfraLevelScale)
}
