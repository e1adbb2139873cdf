package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

var errNonPositive = errors.New("amount must be positive")

// ProductionBoost is a temporary production multiplier on a region.
type ProductionBoost struct {
	RegionID   string  `json:"region_id"`
	Multiplier float64 `json:"multiplier"`
	ExpiresAt  int     `json:"expires_at"` // Last turn the boost applies
}

const boostModifier = "intervention:cultivate"

// SubsidizeRegion credits wealth to a region directly.
func (s *Simulation) SubsidizeRegion(regionID string, amount int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return "", fmt.Errorf("subsidize %s: %w", regionID, errNonPositive)
	}
	r, ok := s.Economy.Region(regionID)
	if !ok {
		return "", fmt.Errorf("subsidize: %w %q", ErrUnknownRegion, regionID)
	}
	r.Economy.Credit(amount)

	desc := fmt.Sprintf("%s receives a subsidy of %s", r.Name, humanize.Comma(int64(amount)))
	s.Journal.Record(s.turn, "intervention", "%s", desc)
	slog.Info("subsidy intervention", "region", regionID, "amount", amount)
	return desc, nil
}

// CultivateRegion multiplies a region's production for the next turns.
// A new boost replaces any boost already running on the region.
func (s *Simulation) CultivateRegion(regionID string, multiplier float64, turns int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if multiplier <= 0 || turns <= 0 {
		return "", fmt.Errorf("cultivate %s: %w", regionID, errNonPositive)
	}
	r, ok := s.Economy.Region(regionID)
	if !ok {
		return "", fmt.Errorf("cultivate: %w %q", ErrUnknownRegion, regionID)
	}

	kept := s.boosts[:0]
	for _, b := range s.boosts {
		if b.RegionID != regionID {
			kept = append(kept, b)
		}
	}
	s.boosts = append(kept, ProductionBoost{
		RegionID:   regionID,
		Multiplier: multiplier,
		ExpiresAt:  s.turn + turns,
	})
	r.Production.SetModifier(boostModifier, multiplier)

	desc := fmt.Sprintf("A bountiful season blesses %s (%.1fx production for %d turns)", r.Name, multiplier, turns)
	s.Journal.Record(s.turn, "intervention", "%s", desc)
	slog.Info("cultivate intervention", "region", regionID, "multiplier", multiplier, "turns", turns)
	return desc, nil
}

// IncitePopulace adds an unrest factor to a nation. It decays like any other.
func (s *Simulation) IncitePopulace(nationID, description string, severity float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if severity <= 0 {
		return "", fmt.Errorf("incite %s: %w", nationID, errNonPositive)
	}
	n, ok := s.Nations.Nation(nationID)
	if !ok {
		return "", fmt.Errorf("incite: %w %q", ErrUnknownNation, nationID)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "agitators"
	}

	id := fmt.Sprintf("incident-%d-%d", s.turn, len(n.Stability.Factors))
	n.Stability.SetFactor(id, description, severity)
	n.Stability.RecalculateUnrest()

	desc := fmt.Sprintf("Unrest stirs in %s: %s", n.Name, description)
	s.Journal.Record(s.turn, "intervention", "%s", desc)
	slog.Info("incite intervention", "nation", nationID, "severity", severity)
	return desc, nil
}

// Boosts returns the running production boosts.
func (s *Simulation) Boosts() []ProductionBoost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ActiveBoosts()
}

// ActiveBoosts is Boosts for callers already inside View or Update.
func (s *Simulation) ActiveBoosts() []ProductionBoost {
	return slices.Clone(s.boosts)
}

// cleanExpiredBoosts drops boosts whose last turn is before turn.
func (s *Simulation) cleanExpiredBoosts(turn int) {
	kept := s.boosts[:0]
	for _, b := range s.boosts {
		if b.ExpiresAt >= turn {
			kept = append(kept, b)
			continue
		}
		if r, ok := s.Economy.Region(b.RegionID); ok {
			r.Production.RemoveModifier(boostModifier)
		}
	}
	clear(s.boosts[len(kept):])
	s.boosts = kept
}
