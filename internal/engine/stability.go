package engine

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Unrest factor ids maintained from region state.
const (
	FactorShortages = "shortages"
	FactorPoverty   = "poverty"
)

// Stability drifts down while unrest stays above this level.
const highUnrest = 0.6

// calmUnrest is the level below which stability recovers.
const calmUnrest = 0.3

// processStability recovers stability in calm nations, decays unrest
// factors, refreshes the region-driven factors and recomputes unrest.
func (ns *NationSystem) processStability(turn int, n *social.Nation) {
	st := n.Stability

	switch {
	case st.UnrestLevel < calmUnrest:
		st.AdjustStability(ns.cfg.StabilityRecovery)
	case st.UnrestLevel > highUnrest:
		st.AdjustStability(-ns.cfg.StabilityRecovery)
	}

	for _, id := range st.DecayFactors(ns.cfg.FactorDecay) {
		if id != FactorShortages && id != FactorPoverty {
			ns.journal.Record(turn, "stability", "%s: unrest over %s has faded", n.Name, id)
		}
	}

	ns.refreshRegionalFactors(n)

	before := st.UnrestLevel
	after := st.RecalculateUnrest()
	if before < highUnrest && after >= highUnrest {
		ns.journal.Record(turn, "stability", "%s faces serious unrest (%.2f)", n.Name, after)
	}
}

// refreshRegionalFactors sets the shortage factor from mean region unrest and
// the poverty factor from mean region wealth.
func (ns *NationSystem) refreshRegionalFactors(n *social.Nation) {
	st := n.Stability
	regions := ns.ownedRegions(n)
	if len(regions) == 0 {
		st.RemoveFactor(FactorShortages)
		st.RemoveFactor(FactorPoverty)
		return
	}

	shortage := lo.SumBy(regions, func(r *world.Region) float64 { return r.Population.Unrest }) / float64(len(regions))
	setOrRemove(st, FactorShortages, "shortages of goods", shortage)

	poverty := 0.0
	if ns.cfg.PovertyThreshold > 0 {
		mean := float64(lo.SumBy(regions, func(r *world.Region) int { return r.Economy.Wealth })) / float64(len(regions))
		if mean < float64(ns.cfg.PovertyThreshold) {
			poverty = 1 - mean/float64(ns.cfg.PovertyThreshold)
		}
	}
	setOrRemove(st, FactorPoverty, fmt.Sprintf("mean wealth under %d", ns.cfg.PovertyThreshold), poverty)
}

func setOrRemove(st *social.Stability, id, description string, severity float64) {
	if severity < social.NegligibleSeverity {
		st.RemoveFactor(id)
		return
	}
	st.SetFactor(id, description, severity)
}
