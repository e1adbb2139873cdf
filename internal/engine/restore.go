package engine

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// ErrNotEmpty is returned when restoring into a simulation that already
// holds regions.
var ErrNotEmpty = errors.New("simulation already populated")

// WorldState is everything needed to continue a run after a restart.
// Nations carry their region ids.
type WorldState struct {
	Turn      int
	CycleTurn int
	Regions   []*world.Region
	Nations   []*social.Nation
	Prices    map[string]float64
	Boosts    []ProductionBoost
}

// Restore loads a saved state into an empty simulation. Region ownership
// goes through the usual assignment path, so a corrupt save that lists a
// region under two nations ends with the later nation owning it.
// A cultivate modifier survives only on regions with a saved boost.
func (s *Simulation) Restore(ws WorldState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Economy.RegionCount() > 0 {
		return ErrNotEmpty
	}
	for _, r := range ws.Regions {
		s.Economy.RegisterRegion(r)
	}
	for _, n := range ws.Nations {
		if err := s.Nations.AddNation(n); err != nil {
			return err
		}
	}
	s.restoreBoosts(ws.Regions, ws.Boosts)
	s.Economy.Ledger().Restore(ws.Prices)
	s.Economy.Cycle().SetTurn(ws.CycleTurn)

	s.turn = ws.Turn
	s.Economy.lastTurn = ws.Turn
	s.Nations.lastTurn = ws.Turn

	s.Bus.Publish(events.RegionsAssignedToNations{})
	s.updateStats()

	slog.Info("world state restored",
		"turn", ws.Turn,
		"regions", s.Economy.RegionCount(),
		"nations", len(s.Nations.Nations()),
	)
	return nil
}

func (s *Simulation) restoreBoosts(regions []*world.Region, boosts []ProductionBoost) {
	for _, r := range regions {
		r.Production.RemoveModifier(boostModifier)
	}
	s.boosts = nil
	for _, b := range boosts {
		r, ok := s.Economy.Region(b.RegionID)
		if !ok || b.Multiplier <= 0 {
			slog.Warn("dropping saved boost", "region", b.RegionID)
			continue
		}
		s.boosts = slices.DeleteFunc(s.boosts, func(o ProductionBoost) bool { return o.RegionID == b.RegionID })
		s.boosts = append(s.boosts, b)
		r.Production.SetModifier(boostModifier, b.Multiplier)
	}
}
