package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
)

type nationFixture struct {
	bus     *events.Bus
	econ    *engine.EconomicSystem
	nations *engine.NationSystem
}

// newNationFixture registers regions with the given wealths ("a", "b", ...)
// and an empty nation system reading from them.
func newNationFixture(t *testing.T, wealths ...int) nationFixture {
	t.Helper()
	bus := events.NewBus()
	econ := engine.NewEconomicSystem(quietEconomy(), bus, entropy.Fixed(0.5))
	for i, w := range wealths {
		require.True(t, econ.RegisterRegion(newRegion(string(rune('a'+i)), w, 100)))
	}
	return nationFixture{
		bus:     bus,
		econ:    econ,
		nations: engine.NewNationSystem(config.Default().Nations, econ, nil, bus, nil),
	}
}

func (f nationFixture) nation(t *testing.T, id string) *social.Nation {
	t.Helper()
	n, err := f.nations.CreateNation(id, id, "")
	require.NoError(t, err)
	return n
}

func TestTaxCollection(t *testing.T) {
	f := newNationFixture(t, 200, 300)
	n := f.nation(t, "n")
	require.NoError(t, f.nations.SetTaxRate("n", 0.1))
	require.NoError(t, n.Economy.SetInvestment(0))
	require.NoError(t, f.nations.AssignRegion("a", "n"))
	require.NoError(t, f.nations.AssignRegion("b", "n"))

	require.NoError(t, f.nations.ProcessTurn(1))

	a, _ := f.econ.Region("a")
	b, _ := f.econ.Region("b")
	assert.Equal(t, 50, n.Economy.TreasuryBalance)
	assert.Equal(t, 180, a.Economy.Wealth)
	assert.Equal(t, 270, b.Economy.Wealth)
	assert.Equal(t, 450, n.Economy.TotalWealth)
}

func TestTreasuryInvestsInInfrastructure(t *testing.T) {
	f := newNationFixture(t, 200, 300)
	n := f.nation(t, "n")
	require.NoError(t, f.nations.AssignRegion("a", "n"))
	require.NoError(t, f.nations.AssignRegion("b", "n"))

	require.NoError(t, f.nations.ProcessTurn(1))

	// 50 collected, 10% of it split over two regions: 2 each.
	assert.Equal(t, 46, n.Economy.TreasuryBalance)
	a, _ := f.econ.Region("a")
	assert.Greater(t, a.Infrastructure.Level, 2.0)
}

func TestTaxRateRejectsOutOfRange(t *testing.T) {
	f := newNationFixture(t)
	n := f.nation(t, "n")

	err := f.nations.SetTaxRate("n", 1.5)
	assert.ErrorIs(t, err, social.ErrInvalidTaxRate)
	assert.Equal(t, social.DefaultTaxRate, n.Economy.TaxRate)

	assert.ErrorIs(t, f.nations.SetTaxRate("ghost", 0.2), engine.ErrUnknownNation)
}

func TestCreateNationRejectsDuplicates(t *testing.T) {
	f := newNationFixture(t)
	f.nation(t, "n")

	_, err := f.nations.CreateNation("n", "again", "")
	assert.ErrorIs(t, err, engine.ErrNationExists)
	assert.Len(t, f.nations.Nations(), 1)
}

func TestRegionOwnershipIsExclusive(t *testing.T) {
	f := newNationFixture(t, 100)
	first := f.nation(t, "first")
	second := f.nation(t, "second")

	require.NoError(t, f.nations.AssignRegion("a", "first"))
	r, _ := f.econ.Region("a")
	r.Production.SetModifier("policy:old", 1.2)
	r.Production.SetModifier("intervention:cultivate", 2)

	f.nations.HandleRegionNationChanged(events.RegionNationChanged{RegionID: "a", NationID: "second"})

	assert.False(t, first.HasRegion("a"))
	assert.True(t, second.HasRegion("a"))
	owner, ok := f.nations.NationOf("a")
	require.True(t, ok)
	assert.Equal(t, "second", owner)
	assert.Zero(t, first.Economy.TotalWealth)
	assert.Equal(t, 100, second.Economy.TotalWealth)

	assert.NotContains(t, r.Production.Modifiers, "policy:old")
	assert.Contains(t, r.Production.Modifiers, "intervention:cultivate")
}

func TestAssignRegionValidates(t *testing.T) {
	f := newNationFixture(t, 100)
	f.nation(t, "n")

	assert.ErrorIs(t, f.nations.AssignRegion("a", "ghost"), engine.ErrUnknownNation)
	assert.ErrorIs(t, f.nations.AssignRegion("zz", "n"), engine.ErrUnknownRegion)
	_, ok := f.nations.NationOf("a")
	assert.False(t, ok)
}

func TestRelationHysteresis(t *testing.T) {
	f := newNationFixture(t)
	f.nation(t, "a")
	f.nation(t, "b")
	status := func() (social.RelationStatus, social.RelationStatus) {
		a, _ := f.nations.Nation("a")
		b, _ := f.nations.Nation("b")
		return a.Diplomacy.Relation("b").Status, b.Diplomacy.Relation("a").Status
	}

	require.NoError(t, f.nations.ModifyRelation("a", "b", 65))
	require.NoError(t, f.nations.ProcessTurn(1))
	sa, sb := status()
	assert.Equal(t, social.StatusAllied, sa)
	assert.Equal(t, social.StatusAllied, sb)

	// Between the neutral band and the alliance threshold nothing changes.
	require.NoError(t, f.nations.ModifyRelation("a", "b", -25))
	require.NoError(t, f.nations.ProcessTurn(2))
	sa, _ = status()
	assert.Equal(t, social.StatusAllied, sa)

	require.NoError(t, f.nations.ModifyRelation("a", "b", -20))
	require.NoError(t, f.nations.ProcessTurn(3))
	sa, sb = status()
	assert.Equal(t, social.StatusNeutral, sa)
	assert.Equal(t, social.StatusNeutral, sb)

	var diplomacy []engine.Event
	for _, e := range f.nations.Journal().Recent(0) {
		if e.Category == "diplomacy" {
			diplomacy = append(diplomacy, e)
		}
	}
	require.Len(t, diplomacy, 2, "one entry per pair per change")
	assert.Equal(t, "a and b move from Neutral to Allied", diplomacy[0].Description)
	assert.Equal(t, 3, diplomacy[1].Turn)
}

func TestModifyRelationRejectsSelf(t *testing.T) {
	f := newNationFixture(t)
	f.nation(t, "a")
	assert.ErrorIs(t, f.nations.ModifyRelation("a", "a", 10), engine.ErrSameNation)
	assert.ErrorIs(t, f.nations.ModifyRelation("a", "ghost", 10), engine.ErrUnknownNation)
}

func TestSignTreaty(t *testing.T) {
	f := newNationFixture(t)
	a := f.nation(t, "a")
	b := f.nation(t, "b")

	assert.ErrorIs(t, f.nations.SignTreaty("a", "b"), engine.ErrInsufficientInfluence)

	a.Diplomacy.DiplomaticInfluence = 50
	require.NoError(t, f.nations.SignTreaty("a", "b"))
	assert.True(t, a.Diplomacy.Relation("b").HasTreaty)
	assert.True(t, b.Diplomacy.Relation("a").HasTreaty)
	assert.InDelta(t, 30, a.Diplomacy.DiplomaticInfluence, 1e-9)

	// Signing again is a no-op.
	require.NoError(t, f.nations.SignTreaty("a", "b"))
	assert.InDelta(t, 30, a.Diplomacy.DiplomaticInfluence, 1e-9)
}

func TestHostilityBlocksAndBreaksTreaties(t *testing.T) {
	f := newNationFixture(t)
	a := f.nation(t, "a")
	f.nation(t, "b")
	f.nation(t, "c")
	a.Diplomacy.DiplomaticInfluence = 100

	require.NoError(t, f.nations.SignTreaty("a", "b"))
	require.NoError(t, f.nations.ModifyRelation("a", "b", -90))
	require.NoError(t, f.nations.ModifyRelation("a", "c", -70))
	require.NoError(t, f.nations.ProcessTurn(1))

	assert.Equal(t, social.StatusHostile, a.Diplomacy.Relation("b").Status)
	assert.False(t, a.Diplomacy.Relation("b").HasTreaty)
	assert.ErrorIs(t, f.nations.SignTreaty("a", "c"), engine.ErrHostileRelation)
}

func TestPolicyLifecycle(t *testing.T) {
	f := newNationFixture(t, 1000)
	n := f.nation(t, "n")
	require.NoError(t, f.nations.AssignRegion("a", "n"))
	r, _ := f.econ.Region("a")

	works := social.NewPolicy("Public Works", 10, 0, 0.1, 0, 2)
	assert.ErrorIs(t, f.nations.EnactPolicy("n", works), engine.ErrInsufficientTreasury)
	assert.Empty(t, n.Policy.Active)

	n.Economy.TreasuryBalance = 100
	require.NoError(t, f.nations.EnactPolicy("n", works))
	assert.Equal(t, 90, n.Economy.TreasuryBalance)

	modifier := "policy:" + works.ID
	for turn := 1; turn <= 2; turn++ {
		require.NoError(t, f.nations.ProcessTurn(turn))
		assert.InDelta(t, 1.1, r.Production.Modifiers[modifier], 1e-9, "turn %d", turn)
	}

	require.NoError(t, f.nations.ProcessTurn(3))
	assert.NotContains(t, r.Production.Modifiers, modifier)
	assert.Empty(t, n.Policy.Active)

	last := f.nations.Journal().Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, "n: Public Works has expired", last[0].Description)
}

func TestEnactPolicyRejectsInvalid(t *testing.T) {
	f := newNationFixture(t)
	n := f.nation(t, "n")
	n.Economy.TreasuryBalance = 100

	err := f.nations.EnactPolicy("n", social.NewPolicy("Never", 0, 0, 0, 0, 0))
	assert.ErrorIs(t, err, social.ErrInvalidPolicy)
	assert.Equal(t, 100, n.Economy.TreasuryBalance)
}

func TestEconomicSliderSetsModifier(t *testing.T) {
	f := newNationFixture(t, 1000)
	f.nation(t, "n")
	require.NoError(t, f.nations.AssignRegion("a", "n"))
	require.NoError(t, f.nations.SetPolicySlider("n", social.PolicyEconomic, 0.9))

	require.NoError(t, f.nations.ProcessTurn(1))
	r, _ := f.econ.Region("a")
	assert.InDelta(t, 1.1, r.Production.Modifiers["policy:economic-slider"], 1e-9)

	require.NoError(t, f.nations.SetPolicySlider("n", social.PolicyEconomic, 0.5))
	require.NoError(t, f.nations.ProcessTurn(2))
	assert.NotContains(t, r.Production.Modifiers, "policy:economic-slider")

	assert.ErrorIs(t, f.nations.SetPolicySlider("n", social.PolicyType(9), 0.5), social.ErrInvalidPolicyType)
}

func TestPovertyRaisesUnrest(t *testing.T) {
	f := newNationFixture(t, 10, 10)
	n := f.nation(t, "n")
	require.NoError(t, f.nations.AssignRegion("a", "n"))
	require.NoError(t, f.nations.AssignRegion("b", "n"))

	require.NoError(t, f.nations.ProcessTurn(1))
	assert.Contains(t, n.Stability.Factors, engine.FactorPoverty)
	assert.Positive(t, n.Stability.UnrestLevel)
}

func TestTurnSkippedWithoutRegionSource(t *testing.T) {
	bus := events.NewBus()
	announced := 0
	bus.Subscribe(events.KindNationStatisticsUpdated, func(events.Message) { announced++ })

	ns := engine.NewNationSystem(config.Default().Nations, nil, nil, bus, nil)
	_, err := ns.CreateNation("n", "N", "")
	require.NoError(t, err)

	require.NoError(t, ns.ProcessTurn(1))
	assert.Zero(t, announced)
	assert.Zero(t, ns.LastTurn())

	econ := engine.NewEconomicSystem(quietEconomy(), bus, entropy.Fixed(0.5))
	ns.SetRegionSource(econ)
	require.NoError(t, ns.ProcessTurn(2))
	assert.Equal(t, 1, announced)
	assert.Equal(t, 2, ns.LastTurn())
}
