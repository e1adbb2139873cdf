package social_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/statecraft/internal/social"
)

func TestNationRegionSet(t *testing.T) {
	n := social.NewNation("n1", "", "#fff")
	assert.Equal(t, "n1", n.Name)

	assert.True(t, n.AddRegion("a"))
	assert.False(t, n.AddRegion("a"), "duplicate add")
	assert.True(t, n.AddRegion("b"))
	assert.Equal(t, []string{"a", "b"}, n.RegionIDs())

	assert.True(t, n.RemoveRegion("a"))
	assert.False(t, n.RemoveRegion("a"))
	assert.False(t, n.HasRegion("a"))
	assert.Equal(t, 1, n.RegionCount())
}

func TestTaxRateRejectsOutOfRange(t *testing.T) {
	e := social.NewNationEconomy()
	require.NoError(t, e.SetTaxRate(0.25))

	err := e.SetTaxRate(1.5)
	assert.ErrorIs(t, err, social.ErrInvalidTaxRate)
	assert.Equal(t, 0.25, e.TaxRate, "prior rate kept")

	assert.ErrorIs(t, e.SetInvestment(-0.1), social.ErrInvalidInvestment)
}

func TestTreasurySettingsRejectNaN(t *testing.T) {
	e := social.NewNationEconomy()
	require.NoError(t, e.SetTaxRate(0.2))
	require.NoError(t, e.SetInvestment(0.3))

	assert.ErrorIs(t, e.SetTaxRate(math.NaN()), social.ErrInvalidTaxRate)
	assert.ErrorIs(t, e.SetInvestment(math.NaN()), social.ErrInvalidInvestment)
	assert.Equal(t, 0.2, e.TaxRate)
	assert.Equal(t, 0.3, e.InfrastructureInvestment)
}

func TestGDPHistoryBounded(t *testing.T) {
	e := social.NewNationEconomy()
	for i := 1; i <= 15; i++ {
		e.RecordGDP(float64(i * 100))
	}
	assert.Len(t, e.GDPHistory, social.GDPHistoryLength)
	assert.Equal(t, 600.0, e.GDPHistory[0])
	assert.Equal(t, 1500.0, e.GDP)
	assert.Equal(t, 1400.0, e.PreviousGDP)
	assert.InDelta(t, 100.0/1400.0, e.GDPGrowthRate, 1e-9)
}

func TestPolicySliders(t *testing.T) {
	ps := social.NewPolicySet()
	v, err := ps.Slider(social.PolicyMilitary)
	require.NoError(t, err)
	assert.Equal(t, social.DefaultSlider, v)

	require.NoError(t, ps.SetSlider(social.PolicyEconomic, 1.7))
	assert.Equal(t, 1.0, ps.Sliders[social.PolicyEconomic], "value clamped")

	err = ps.SetSlider(social.PolicyType(9), 0.2)
	assert.ErrorIs(t, err, social.ErrInvalidPolicyType)

	pt, err := social.ParsePolicyType("Social")
	require.NoError(t, err)
	assert.Equal(t, social.PolicySocial, pt)
	pt, err = social.ParsePolicyType("economic")
	require.NoError(t, err)
	assert.Equal(t, social.PolicyEconomic, pt)
	_, err = social.ParsePolicyType("Naval")
	assert.ErrorIs(t, err, social.ErrInvalidPolicyType)
}

func TestPolicyAdvanceRunsForDuration(t *testing.T) {
	ps := social.NewPolicySet()
	require.NoError(t, ps.Add(social.NewPolicy("roads", 10, 0, 0.05, 0, 2)))
	assert.ErrorIs(t, ps.Add(social.NewPolicy("never", 0, 0, 0, 0, 0)), social.ErrInvalidPolicy)

	applied := 0
	for turn := 0; turn < 4; turn++ {
		ps.Advance()
		applied += len(ps.Active)
	}
	assert.Equal(t, 2, applied)
	assert.Empty(t, ps.Active)
}

func TestDiplomaticHysteresis(t *testing.T) {
	d := social.NewDiplomacy()
	rel := d.Relation("other")
	assert.Equal(t, social.StatusNeutral, rel.Status, "created lazily as neutral")

	rel.Adjust(65)
	assert.True(t, rel.EvaluateStatus())
	assert.Equal(t, social.StatusAllied, rel.Status)

	rel.Adjust(-25) // 40: outside neutral band, below alliance threshold
	assert.False(t, rel.EvaluateStatus())
	assert.Equal(t, social.StatusAllied, rel.Status)
	assert.Equal(t, 1, rel.TurnsInCurrentStatus)

	rel.Adjust(-15) // 25: inside neutral band
	assert.True(t, rel.EvaluateStatus())
	assert.Equal(t, social.StatusNeutral, rel.Status)

	rel.Adjust(-500)
	assert.Equal(t, social.MinRelationScore, rel.Score)
	rel.EvaluateStatus()
	assert.Equal(t, social.StatusHostile, rel.Status)
}

func TestInfluence(t *testing.T) {
	d := social.NewDiplomacy()
	d.RegenerateInfluence(10)
	assert.InDelta(t, 5.0, d.DiplomaticInfluence, 1e-9)
	assert.False(t, d.SpendInfluence(6))
	assert.True(t, d.SpendInfluence(5))

	d.AdjustReputation(2)
	assert.Equal(t, 1.0, d.GlobalReputation)
	for i := 0; i < 20; i++ {
		d.RegenerateInfluence(10)
	}
	assert.Equal(t, social.MaxInfluence, d.DiplomaticInfluence)
}

func TestUnrestMonotonicInSeverity(t *testing.T) {
	s := social.NewStability()
	s.Stability = 0.6
	s.SetFactor("poverty", "poor harvests", 0.2)
	s.SetFactor("war", "border fighting", 0.5)

	prev := -1.0
	for sev := 0.0; sev <= 1.0; sev += 0.05 {
		s.SetFactor("poverty", "poor harvests", sev)
		cur := s.RecalculateUnrest()
		assert.GreaterOrEqual(t, cur, prev, "severity %.2f", sev)
		prev = cur
	}
}

func TestUnrestFormula(t *testing.T) {
	s := social.NewStability()
	s.Stability = 0.5
	s.SetFactor("a", "", 0.8)
	s.SetFactor("b", "", 0.4)
	// (0.7*0.8 + 0.3*0.6) * (1 - 0.25)
	assert.InDelta(t, 0.555, s.RecalculateUnrest(), 1e-9)
}

func TestDecayFactorsRemovesNegligible(t *testing.T) {
	s := social.NewStability()
	s.SetFactor("big", "", 0.5)
	s.SetFactor("tiny", "", 0.011)

	removed := s.DecayFactors(0.1)
	assert.Equal(t, []string{"tiny"}, removed)
	assert.InDelta(t, 0.45, s.Factors["big"].Severity, 1e-9)
	assert.Equal(t, 0.0, social.NewStability().RecalculateUnrest())
}

func TestDecayFactorsRemovedInIDOrder(t *testing.T) {
	s := social.NewStability()
	for _, id := range []string{"m", "c", "x", "a", "q", "f"} {
		s.SetFactor(id, "", 0.005)
	}
	s.SetFactor("kept", "", 0.9)

	assert.Equal(t, []string{"a", "c", "f", "m", "q", "x"}, s.DecayFactors(0.1))
	assert.Len(t, s.Factors, 1)
}

func TestSampleNations(t *testing.T) {
	nations := social.SampleNations()
	require.Len(t, nations, 4)
	ids := map[string]bool{}
	for _, n := range nations {
		ids[n.ID] = true
	}
	for pair := range social.SampleRelations() {
		assert.True(t, ids[pair[0]] && ids[pair[1]], "relation %v references sample nations", pair)
	}
}
