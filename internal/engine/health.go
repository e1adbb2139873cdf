package engine

import (
	"math"

	"github.com/samber/lo"
)

// Crisis levels, most severe first.
const (
	HealthCritical = "CRITICAL"
	HealthWarning  = "WARNING"
	HealthWatch    = "WATCH"
	HealthHealthy  = "HEALTHY"
)

// Health holds diagnostic signals derived from a turn snapshot.
type Health struct {
	AvgUnrest        float64 `json:"avg_unrest"`
	LowestStability  float64 `json:"lowest_stability"`
	Inflation        float64 `json:"inflation"`
	ShrinkingNations int     `json:"shrinking_nations"` // Negative GDP growth
	TotalNations     int     `json:"total_nations"`
	Level            string  `json:"level"`
}

// Triage classifies the state of the world from a snapshot. It reads only
// the snapshot, so it is safe to call from observers.
func Triage(snap TurnSnapshot) Health {
	h := Health{
		AvgUnrest:       snap.Stats.AvgUnrest,
		Inflation:       snap.Stats.Inflation,
		LowestStability: 1,
		TotalNations:    len(snap.Nations),
	}
	if len(snap.Nations) > 0 {
		h.LowestStability = lo.MinBy(snap.Nations, func(a, b NationStats) bool {
			return a.Stability < b.Stability
		}).Stability
	}
	h.ShrinkingNations = lo.CountBy(snap.Nations, func(n NationStats) bool {
		return n.GDPGrowth < 0
	})
	shrinking := 0.0
	if h.TotalNations > 0 {
		shrinking = float64(h.ShrinkingNations) / float64(h.TotalNations)
	}
	inflation := math.Abs(h.Inflation)

	h.Level = HealthHealthy
	switch {
	case h.AvgUnrest > 0.6, h.LowestStability < 0.2, inflation > 0.5:
		h.Level = HealthCritical
	case h.AvgUnrest > 0.4, h.LowestStability < 0.4, inflation > 0.2, shrinking > 0.5:
		h.Level = HealthWarning
	case h.AvgUnrest > 0.2, h.LowestStability < 0.6, h.ShrinkingNations > 0:
		h.Level = HealthWatch
	}
	return h
}
