package economy_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/world"
)

func testRegion(wealth, pop int, infra float64) *world.Region {
	return world.NewRegion(world.RegionSpec{
		ID:             "r",
		Wealth:         wealth,
		Population:     pop,
		Infrastructure: infra,
		Quality:        0.5,
	}, []string{"Food", "Luxuries"})
}

func TestProductionCobbDouglas(t *testing.T) {
	calc := economy.NewProductionCalculator()
	r := testRegion(100, 1000, 2) // labor 600, capital 2*10*1.5 = 30

	want := math.Pow(600, 0.7) * math.Pow(30, 0.3)
	assert.InDelta(t, want, calc.CalculateRegionProduction(r), 1e-9)

	r.Production.SetModifier("harvest", 2)
	assert.InDelta(t, 2*want, calc.CalculateRegionProduction(r), 1e-9)
}

func TestProductionClampsNegativeInputs(t *testing.T) {
	calc := economy.NewProductionCalculator()
	r := testRegion(100, 100, 1)
	r.Population.LaborAvailable = -50
	r.Infrastructure.Level = -3

	out := calc.CalculateRegionProduction(r)
	assert.False(t, math.IsNaN(out))
	assert.Equal(t, 0.0, out)
}

func TestEfficiencyBoostMonotoneAndAtLeastOne(t *testing.T) {
	calc := economy.NewInfrastructureCalculator()
	assert.Equal(t, 1.0, calc.CalculateEfficiencyBoost(-5))
	assert.Equal(t, 1.0, calc.CalculateEfficiencyBoost(0))

	prev := 1.0
	for level := 0.0; level < 200; level += 0.5 {
		b := calc.CalculateEfficiencyBoost(level)
		assert.GreaterOrEqual(t, b, prev)
		assert.LessOrEqual(t, b, 1+calc.EfficiencyModifier)
		prev = b
	}

	calc.EfficiencyModifier = -1
	assert.Equal(t, 1.0, calc.CalculateEfficiencyBoost(10), "negative modifier never shrinks output")
}

func TestInfrastructureUpkeep(t *testing.T) {
	calc := economy.NewInfrastructureCalculator()
	assert.InDelta(t, 10*0.02*0.75, calc.CalculateDecay(10, 0.5), 1e-9)
	assert.Equal(t, 0.0, calc.CalculateDecay(0, 0))
	assert.Equal(t, 0, calc.CalculateMaintenanceCost(0))
	assert.Greater(t, calc.CalculateMaintenanceCost(10), calc.CalculateMaintenanceCost(1))

	small := calc.CalculateInvestmentGain(100, 0)
	developed := calc.CalculateInvestmentGain(100, 20)
	assert.Greater(t, small, developed)
	assert.Less(t, calc.CalculateInvestmentGain(400, 0), 4*small, "diminishing returns in spend")
	assert.Equal(t, 0.0, calc.CalculateInvestmentGain(-1, 0))
}

func TestPriceDirection(t *testing.T) {
	calc := economy.NewPriceCalculator(entropy.Fixed(0.5))

	up := calc.CalculatePrice(100, 50, 100, "Food")
	down := calc.CalculatePrice(100, 100, 50, "Food")
	flat := calc.CalculatePrice(100, 80, 80, "Food")

	assert.Greater(t, up, 100.0)
	assert.Less(t, down, 100.0)
	assert.Equal(t, 100.0, flat)
	assert.LessOrEqual(t, up, 100*(1+calc.MaxPriceChange)+1e-9, "bounded per tick")
	assert.Equal(t, 100.0, calc.CalculatePrice(100, 0, 0, "Food"))
	assert.Equal(t, economy.DefaultPrice, calc.CalculatePrice(-3, 0, 0, "Food"))
}

func TestPriceStaysPositive(t *testing.T) {
	calc := economy.NewPriceCalculator(entropy.NewSeeded(99))
	calc.MaxPriceChange = 5 // capped internally
	price := 1.0
	for i := 0; i < 2000; i++ {
		price = calc.CalculatePrice(price, 1e9, 0, "Iron")
		price = calc.CalculatePriceShock(price, 3, -3, 5)
		require.Greater(t, price, 0.0, "iteration %d", i)
	}
}

func TestPriceShockBounded(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999} {
		calc := economy.NewPriceCalculator(entropy.Fixed(r))
		p := calc.CalculatePriceShock(100, -1, 1, 0.05)
		assert.InDelta(t, 105, p, 1e-9, "clamped at +max")
		p = calc.CalculatePriceShock(100, 0, 0, 0.05)
		assert.GreaterOrEqual(t, p, 95.0)
		assert.LessOrEqual(t, p, 105.0)
	}
	calc := economy.NewPriceCalculator(entropy.Fixed(0.9))
	assert.Equal(t, 100.0, calc.CalculatePriceShock(100, 0.3, 0.1, 0))
}

func TestAdjustDemandByIncomeClasses(t *testing.T) {
	calc := economy.NewPriceCalculator(entropy.Fixed(0.5))

	assert.Equal(t, 10.0, calc.AdjustDemandByIncome(10, 0, "Food"))
	necessity := calc.AdjustDemandByIncome(10, 3000, "Food")
	standard := calc.AdjustDemandByIncome(10, 3000, "Stone")
	luxury := calc.AdjustDemandByIncome(10, 3000, "Luxuries")

	assert.InDelta(t, 20.0, necessity, 1e-9) // 10 * 4^0.5
	assert.InDelta(t, 40.0, standard, 1e-9)
	assert.InDelta(t, 80.0, luxury, 1e-9)
	assert.Equal(t, 0.0, calc.AdjustDemandByIncome(-1, 3000, "Food"))
}

func TestConsumptionFullySupplied(t *testing.T) {
	calc := economy.NewConsumptionCalculator()
	r := testRegion(0, 100, 0) // desired = 100 * 0.1 * 1 = 10

	res := calc.ProcessRegionConsumption(r, map[string]float64{"Food": 100, "Luxuries": 100}, nil)
	assert.InDelta(t, 10, res.Consumption, 1e-9)
	assert.InDelta(t, 5, res.PerResource["Food"], 1e-9)
	assert.Equal(t, 0.0, res.UnmetDemandFraction)
	assert.Equal(t, 0.0, res.UnrestDelta)
}

func TestConsumptionShortfallDrivesUnrest(t *testing.T) {
	calc := economy.NewConsumptionCalculator()
	r := testRegion(0, 100, 0)

	res := calc.ProcessRegionConsumption(r,
		map[string]float64{"Food": 2, "Luxuries": 0},
		map[string]float64{"Food": 3, "Luxuries": 1})
	// Wants 7.5 food and 2.5 luxuries, gets 2 food.
	assert.InDelta(t, 2, res.Consumption, 1e-9)
	assert.InDelta(t, 0.8, res.UnmetDemandFraction, 1e-9)
	assert.InDelta(t, 0.4, res.UnrestDelta, 1e-9)
	assert.InDelta(t, 7.5, res.Desired["Food"], 1e-9)
}

func TestConsumptionInvariants(t *testing.T) {
	calc := economy.NewConsumptionCalculator()
	for _, pop := range []int{0, 1, 50, 10000} {
		for _, wealth := range []int{-10, 0, 500, 1e6} {
			r := testRegion(wealth, pop, 0)
			res := calc.ProcessRegionConsumption(r, map[string]float64{"Food": -5, "Luxuries": 3}, nil)
			assert.GreaterOrEqual(t, res.UnmetDemandFraction, 0.0)
			assert.LessOrEqual(t, res.UnmetDemandFraction, 1.0)
			assert.GreaterOrEqual(t, res.UnrestDelta, 0.0)
		}
	}

	r := testRegion(100, 100, 0)
	res := calc.ProcessRegionConsumption(r, nil, nil)
	assert.Equal(t, 1.0, res.UnmetDemandFraction, "nothing available at all")
}

func TestCyclePhases(t *testing.T) {
	c := economy.NewCycleCalculator(8, true)
	var phases []economy.Phase
	for i := 0; i < 8; i++ {
		phases = append(phases, c.CurrentPhase())
		assert.GreaterOrEqual(t, c.PhaseProgress(), 0.0)
		assert.Less(t, c.PhaseProgress(), 1.0)
		c.Advance()
	}
	assert.Equal(t, []economy.Phase{
		economy.PhaseExpansion, economy.PhaseExpansion,
		economy.PhasePeak, economy.PhasePeak,
		economy.PhaseContraction, economy.PhaseContraction,
		economy.PhaseTrough, economy.PhaseTrough,
	}, phases)
	assert.Equal(t, economy.PhaseExpansion, c.CurrentPhase(), "wraps around")
}

func TestCycleFactors(t *testing.T) {
	c := economy.NewCycleCalculator(4, true)
	c.SetTurn(2) // Contraction
	assert.Less(t, c.Factor(economy.ChannelProduction), 1.0)
	assert.Greater(t, c.Factor(economy.ChannelUnrest), 1.0)
	assert.Equal(t, 1.0, c.Factor("Nonsense"))

	for turn := 0; turn < 4; turn++ {
		c.SetTurn(turn)
		for _, ch := range []economy.Channel{economy.ChannelProduction, economy.ChannelConsumption, economy.ChannelUnrest, economy.ChannelPriceInflation} {
			assert.Greater(t, c.Factor(ch), 0.0)
		}
	}

	off := economy.NewCycleCalculator(20, false)
	assert.Equal(t, 50.0, off.ApplyCycleEffect(50, economy.ChannelProduction))
	assert.Contains(t, off.ConditionDescription(), "disabled")
}

func TestCycleDescription(t *testing.T) {
	c := economy.NewCycleCalculator(12, true)
	assert.Equal(t, "Expansion (early): growth accelerating", c.ConditionDescription())
	c.SetTurn(5)
	assert.Equal(t, "Peak (late): output near its ceiling", c.ConditionDescription())
	assert.Equal(t, 4, economy.NewCycleCalculator(1, true).CycleLength)
}

func TestLedger(t *testing.T) {
	l := economy.NewLedger([]string{"Food", "Iron", "Food"})
	assert.Equal(t, []string{"Food", "Iron"}, l.ResourceTypes())
	assert.Equal(t, 100.0, l.Price("X"))

	l.AddSupply("Food", 10)
	l.AddSupply("X", 10)
	l.AddDemand("Food", 20)
	l.Reset()
	assert.Equal(t, 0.0, l.Supply("Food"))
	e, ok := l.Entry("Food")
	require.True(t, ok)
	assert.Equal(t, 10.0, e.PrevSupply)

	l.AddSupply("Food", 15)
	l.AddDemand("Food", 10)
	assert.InDelta(t, 0.5, e.SupplyShock(), 1e-9)
	assert.InDelta(t, -0.5, e.DemandTrend(), 1e-9)

	l.SetPrice("Food", 110)
	l.SetPrice("Food", -1)
	assert.Equal(t, 110.0, l.Price("Food"))
	assert.InDelta(t, 0.05, l.InflationRate(), 1e-9)
}

func TestNormalizeMidpointFallback(t *testing.T) {
	assert.Equal(t, economy.NeutralMidpoint, economy.Normalize(300, 300, 300))
	assert.Equal(t, economy.NeutralMidpoint, economy.Normalize(0, 10, -10))
	assert.Equal(t, 0.25, economy.Normalize(150, 100, 300))
	assert.Equal(t, 1.0, economy.Normalize(900, 100, 300))
}
