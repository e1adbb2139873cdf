package engine

import (
	"math"

	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Slider thresholds. Between them a slider has no effect.
const (
	sliderHigh = 0.7
	sliderLow  = 0.3
)

// sliderModifier is the production modifier driven by the economic slider.
const sliderModifier = policyModifierPrefix + "economic-slider"

// processPolicies ages active policies, drops expired ones, applies the
// remaining policies to every owned region and then applies slider effects.
func (ns *NationSystem) processPolicies(turn int, n *social.Nation) {
	regions := ns.ownedRegions(n)

	for _, p := range n.Policy.Advance() {
		for _, r := range regions {
			r.Production.RemoveModifier(policyModifierPrefix + p.ID)
		}
		ns.journal.Record(turn, "policy", "%s: %s has expired", n.Name, p.Name)
	}

	for _, p := range n.Policy.Active {
		for _, r := range regions {
			applyWealthFactor(r, p.WealthEffect)
			if p.ProductionEffect != 0 {
				r.Production.SetModifier(policyModifierPrefix+p.ID, 1+p.ProductionEffect)
			}
		}
		if p.StabilityEffect != 0 {
			n.Stability.AdjustStability(p.StabilityEffect)
		}
	}

	ns.applySliders(n, regions)
}

// applySliders turns slider positions into per-turn effects.
func (ns *NationSystem) applySliders(n *social.Nation, regions []*world.Region) {
	sl := n.Policy.Sliders

	econ := sl[social.PolicyEconomic]
	for _, r := range regions {
		if econ > sliderHigh {
			r.Production.SetModifier(sliderModifier, 1+(econ-sliderHigh)*0.5)
		} else {
			r.Production.RemoveModifier(sliderModifier)
		}
		if econ < sliderLow {
			applyWealthFactor(r, -(sliderLow-econ)*0.1)
		}
		if mil := sl[social.PolicyMilitary]; mil > sliderHigh {
			applyWealthFactor(r, -(mil-sliderHigh)*0.1)
		}
	}

	if soc := sl[social.PolicySocial]; soc > sliderHigh {
		n.Stability.AdjustStability((soc - sliderHigh) * 0.05)
	}
	if dip := sl[social.PolicyDiplomatic]; dip > sliderHigh {
		n.Diplomacy.AdjustReputation((dip - sliderHigh) * 0.02)
	}
}

// applyWealthFactor scales region wealth by (1+effect).
func applyWealthFactor(r *world.Region, effect float64) {
	if effect == 0 {
		return
	}
	r.Economy.Credit(int(math.Round(float64(r.Economy.Wealth) * effect)))
}
