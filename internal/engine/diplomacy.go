package engine

import (
	"slices"

	"github.com/samber/lo"

	"github.com/talgya/statecraft/internal/social"
)

// processDiplomacy decays every relation toward zero, re-evaluates status
// with hysteresis and regenerates influence. Treaties halve the decay and
// are broken by hostility.
func (ns *NationSystem) processDiplomacy(turn int, nations []*social.Nation) {
	for _, n := range nations {
		others := lo.Keys(n.Diplomacy.Relations)
		slices.Sort(others)

		for _, otherID := range others {
			rel := n.Diplomacy.Relations[otherID]
			decay := ns.cfg.RelationDecay
			if rel.HasTreaty {
				decay /= 2
			}
			rel.Adjust(-rel.Score * decay)

			prev := rel.Status
			if !rel.EvaluateStatus() {
				continue
			}
			if rel.Status == social.StatusHostile && rel.HasTreaty {
				rel.HasTreaty = false
			}
			// Both sides change together; report once.
			if n.ID < otherID {
				other := otherID
				if o, ok := ns.nations[otherID]; ok {
					other = o.Name
				}
				ns.journal.Record(turn, "diplomacy", "%s and %s move from %s to %s",
					n.Name, other, prev, rel.Status)
			}
		}

		n.Diplomacy.RegenerateInfluence(ns.cfg.InfluenceRegen)
	}
}
