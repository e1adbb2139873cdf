package social

import (
	"slices"

	"github.com/samber/lo"
)

// NegligibleSeverity is the severity below which an unrest factor is dropped.
const NegligibleSeverity = 0.01

// DefaultStability is the stability of a new nation.
const DefaultStability = 0.7

// UnrestFactor is a named contributor to instability.
type UnrestFactor struct {
	Description string  `json:"description"`
	Severity    float64 `json:"severity"` // 0–1
}

// Stability tracks how settled a nation is.
type Stability struct {
	Stability   float64                  `json:"stability"`    // 0–1
	UnrestLevel float64                  `json:"unrest_level"` // 0–1, derived
	Factors     map[string]*UnrestFactor `json:"factors"`
}

// NewStability returns default stability with no unrest.
func NewStability() *Stability {
	return &Stability{
		Stability: DefaultStability,
		Factors:   make(map[string]*UnrestFactor),
	}
}

// SetFactor installs or replaces an unrest factor with severity clamped to [0,1].
func (s *Stability) SetFactor(id, description string, severity float64) {
	s.Factors[id] = &UnrestFactor{Description: description, Severity: lo.Clamp(severity, 0, 1)}
}

// RemoveFactor drops an unrest factor.
func (s *Stability) RemoveFactor(id string) {
	delete(s.Factors, id)
}

// AdjustStability moves stability within [0,1].
func (s *Stability) AdjustStability(delta float64) {
	s.Stability = lo.Clamp(s.Stability+delta, 0, 1)
}

// DecayFactors scales every severity by (1-rate) and removes negligible factors.
// Returns the ids removed, sorted.
func (s *Stability) DecayFactors(rate float64) (removed []string) {
	rate = lo.Clamp(rate, 0, 1)
	for id, f := range s.Factors {
		f.Severity *= 1 - rate
		if f.Severity < NegligibleSeverity {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.Factors, id)
	}
	slices.Sort(removed)
	return removed
}

// RecalculateUnrest derives UnrestLevel from the factors: a blend weighted
// toward the worst factor, dampened by current stability.
func (s *Stability) RecalculateUnrest() float64 {
	if len(s.Factors) == 0 {
		s.UnrestLevel = 0
		return 0
	}
	maxSev, sum := 0.0, 0.0
	for _, f := range s.Factors {
		maxSev = max(maxSev, f.Severity)
		sum += f.Severity
	}
	avg := sum / float64(len(s.Factors))
	raw := 0.7*maxSev + 0.3*avg
	s.UnrestLevel = lo.Clamp(raw*(1-s.Stability*0.5), 0, 1)
	return s.UnrestLevel
}
