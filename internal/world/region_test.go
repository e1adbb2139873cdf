package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/statecraft/internal/world"
)

func TestNewRegionPopulatesAllComponents(t *testing.T) {
	r := world.NewRegion(world.RegionSpec{ID: "a", Wealth: -5, Population: 100}, world.DefaultResourceTypes)

	require.NotNil(t, r.Economy)
	require.NotNil(t, r.Production)
	require.NotNil(t, r.Resources)
	require.NotNil(t, r.Population)
	require.NotNil(t, r.Infrastructure)

	assert.Equal(t, "a", r.Name, "name falls back to id")
	assert.Equal(t, 0, r.Economy.Wealth, "negative wealth clamped")
	assert.Equal(t, 60, r.Population.LaborAvailable)
	assert.Len(t, r.Resources.Stocks, len(world.DefaultResourceTypes))
	assert.InDelta(t, 1.0, r.Production.Sectors[world.SectorAgriculture]+
		r.Production.Sectors[world.SectorIndustry]+r.Production.Sectors[world.SectorServices], 1e-9)
}

func TestEconomyCreditNeverNegative(t *testing.T) {
	e := &world.Economy{Wealth: 10}
	applied := e.Credit(-25)
	assert.Equal(t, -10, applied)
	assert.Equal(t, 0, e.Wealth)

	e.Credit(7)
	assert.Equal(t, 7, e.Wealth)
}

func TestPopulationReset(t *testing.T) {
	r := world.NewRegion(world.RegionSpec{ID: "a", Population: 100}, nil)
	r.Population.SetNeed(world.NeedFood, 0.4)

	r.Population.Reset(50, 80)
	assert.Equal(t, 50, r.Population.Count)
	assert.Equal(t, 50, r.Population.LaborAvailable, "labor capped at population")
	assert.Equal(t, 0.4, r.Population.Needs[world.NeedFood], "needs survive reset")
}

func TestSectorAllocationNormalised(t *testing.T) {
	p := &world.Production{Modifiers: map[string]float64{}}
	p.SetSectorAllocation(map[string]float64{"a": 2, "b": 2, "c": -1})
	assert.InDelta(t, 0.5, p.Sectors["a"], 1e-9)
	assert.InDelta(t, 0.0, p.Sectors["c"], 1e-9)

	p.SetSectorAllocation(map[string]float64{"x": 0})
	assert.Contains(t, p.Sectors, "a", "all-zero allocation ignored")
}

func TestModifierProduct(t *testing.T) {
	p := &world.Production{Modifiers: map[string]float64{}}
	assert.Equal(t, 1.0, p.ModifierProduct())
	p.SetModifier("harvest", 1.5)
	p.SetModifier("blight", -2)
	assert.Equal(t, 0.0, p.ModifierProduct())
	p.RemoveModifier("blight")
	assert.Equal(t, 1.5, p.ModifierProduct())
}

func TestClassifier(t *testing.T) {
	c := world.Classifier{"Iron": world.ClassLuxury}
	assert.Equal(t, world.ClassNecessity, c.ClassOf("Food"))
	assert.Equal(t, world.ClassLuxury, c.ClassOf("Luxuries"))
	assert.Equal(t, world.ClassLuxury, c.ClassOf("Iron"), "override wins")
	assert.Equal(t, world.ClassStandard, c.ClassOf("Stone"))

	cls, ok := world.ParseResourceClass("Luxury")
	assert.True(t, ok)
	assert.Equal(t, world.ClassLuxury, cls)
	_, ok = world.ParseResourceClass("bogus")
	assert.False(t, ok)
}

func TestGenerateRegionsDeterministic(t *testing.T) {
	cfg := world.DefaultGenConfig()
	cfg.Seed = 42

	a := world.GenerateRegions(cfg, world.DefaultResourceTypes)
	b := world.GenerateRegions(cfg, world.DefaultResourceTypes)
	require.Len(t, a, cfg.Width*cfg.Height)
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Economy.Wealth, b[i].Economy.Wealth)
		assert.Equal(t, a[i].Population.Count, b[i].Population.Count)
		assert.GreaterOrEqual(t, a[i].Infrastructure.Level, 0.0)
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, world.Distance(world.Coord{}, world.Coord{}))
	assert.Equal(t, 3, world.Distance(world.Coord{Q: 0, R: 0}, world.Coord{Q: 3, R: -1}))
}
