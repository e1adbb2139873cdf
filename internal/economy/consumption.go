package economy

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/talgya/statecraft/internal/world"
)

// ConsumptionCalculator turns population and wealth into desired consumption
// and converts shortfalls into unrest.
type ConsumptionCalculator struct {
	BaseConsumptionRate       float64 // Units per head at zero wealth
	WealthConsumptionExponent float64 // <1 gives diminishing marginal utility
	UnmetDemandUnrestFactor   float64 // Unrest per unit of unmet fraction
}

// NewConsumptionCalculator returns the default calibration.
func NewConsumptionCalculator() *ConsumptionCalculator {
	return &ConsumptionCalculator{
		BaseConsumptionRate:       0.1,
		WealthConsumptionExponent: 0.5,
		UnmetDemandUnrestFactor:   0.5,
	}
}

// ConsumptionResult is the outcome of one region's consumption pass.
type ConsumptionResult struct {
	Consumption         float64            // Total units actually consumed
	PerResource         map[string]float64 // Consumed per resource type
	Desired             map[string]float64 // Wanted per resource type
	UnmetDemandFraction float64            // 0–1
	UnrestDelta         float64            // ≥0
}

// DesiredConsumption returns total desired units: population · rate · (1 + wealth per head)^exponent.
func (c *ConsumptionCalculator) DesiredConsumption(r *world.Region) float64 {
	pop := float64(max(r.Population.Count, 0))
	if pop == 0 {
		return 0
	}
	perHead := float64(max(r.Economy.Wealth, 0)) / pop
	exp := math.Max(c.WealthConsumptionExponent, 0)
	return pop * math.Max(c.BaseConsumptionRate, 0) * math.Pow(1+perHead, exp)
}

// ProcessRegionConsumption splits desired consumption across resource types
// by preference, consumes what is available and reports the shortfall.
// Preferences that are empty or all non-positive mean an even split over the
// available resource types.
func (c *ConsumptionCalculator) ProcessRegionConsumption(r *world.Region, available, preferences map[string]float64) ConsumptionResult {
	res := ConsumptionResult{
		PerResource: make(map[string]float64),
		Desired:     make(map[string]float64),
	}

	desired := c.DesiredConsumption(r)
	if desired <= 0 {
		return res
	}

	weights := normaliseWeights(preferences)
	if len(weights) == 0 {
		keys := lo.Keys(available)
		sort.Strings(keys)
		for _, k := range keys {
			weights[k] = 1 / float64(len(keys))
		}
	}
	if len(weights) == 0 {
		// Nothing to consume at all.
		res.UnmetDemandFraction = 1
		res.UnrestDelta = math.Max(c.UnmetDemandUnrestFactor, 0)
		return res
	}

	for rt, w := range weights {
		want := desired * w
		got := math.Min(want, math.Max(available[rt], 0))
		res.Desired[rt] = want
		res.PerResource[rt] = got
		res.Consumption += got
	}

	res.UnmetDemandFraction = lo.Clamp(1-res.Consumption/desired, 0, 1)
	res.UnrestDelta = res.UnmetDemandFraction * math.Max(c.UnmetDemandUnrestFactor, 0)
	return res
}

func normaliseWeights(prefs map[string]float64) map[string]float64 {
	total := 0.0
	for _, w := range prefs {
		total += math.Max(w, 0)
	}
	out := make(map[string]float64, len(prefs))
	if total <= 0 {
		return out
	}
	for rt, w := range prefs {
		if w > 0 {
			out[rt] = w / total
		}
	}
	return out
}
