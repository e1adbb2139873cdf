package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Seed populates an empty simulation. Configured regions and nations are
// used when present; otherwise regions are generated and the sample nations
// split them into vertical bands.
func (s *Simulation) Seed(cfg config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	regions := s.buildRegions(cfg)
	for _, r := range regions {
		s.Economy.RegisterRegion(r)
	}

	var err error
	if len(cfg.Scenario.Nations) > 0 {
		err = s.seedConfiguredNations(cfg.Scenario)
	} else {
		err = s.seedSampleNations(regions)
	}
	if err != nil {
		return err
	}

	s.settleRelations()
	s.Bus.Publish(events.RegionsAssignedToNations{})
	s.updateStats()

	slog.Info("scenario seeded", "regions", s.Economy.RegionCount(), "nations", len(s.Nations.Nations()))
	return nil
}

func (s *Simulation) buildRegions(cfg config.Config) []*world.Region {
	if len(cfg.Scenario.Regions) > 0 {
		out := make([]*world.Region, 0, len(cfg.Scenario.Regions))
		for _, rc := range cfg.Scenario.Regions {
			out = append(out, world.NewRegion(rc.Spec(), cfg.Economy.ResourceTypes))
		}
		return out
	}
	gen := world.DefaultGenConfig()
	gen.Seed = cfg.Seed
	if cfg.Scenario.Width > 0 {
		gen.Width = cfg.Scenario.Width
	}
	if cfg.Scenario.Height > 0 {
		gen.Height = cfg.Scenario.Height
	}
	return world.GenerateRegions(gen, cfg.Economy.ResourceTypes)
}

func (s *Simulation) seedConfiguredNations(sc config.Scenario) error {
	for _, nc := range sc.Nations {
		n, err := s.Nations.CreateNation(nc.ID, nc.Name, nc.Color)
		if err != nil {
			return fmt.Errorf("seed nation: %w", err)
		}
		if nc.TaxRate != nil {
			if err := n.Economy.SetTaxRate(*nc.TaxRate); err != nil {
				return fmt.Errorf("seed nation %s: %w", nc.ID, err)
			}
		}
		for name, v := range nc.Sliders {
			t, err := social.ParsePolicyType(name)
			if err != nil {
				return fmt.Errorf("seed nation %s: %w", nc.ID, err)
			}
			_ = n.Policy.SetSlider(t, v)
		}
		for _, rid := range nc.Regions {
			if err := s.Nations.AssignRegion(rid, nc.ID); err != nil {
				return fmt.Errorf("seed nation %s: %w", nc.ID, err)
			}
		}
	}
	for _, rel := range sc.Relations {
		if err := s.Nations.ModifyRelation(rel.A, rel.B, rel.Score); err != nil {
			return fmt.Errorf("seed relation: %w", err)
		}
	}
	return nil
}

func (s *Simulation) seedSampleNations(regions []*world.Region) error {
	nations := social.SampleNations()
	for _, n := range nations {
		if err := s.Nations.AddNation(n); err != nil {
			return fmt.Errorf("seed sample nation: %w", err)
		}
	}

	if len(regions) > 0 {
		qs := make([]int, 0, len(regions))
		for _, r := range regions {
			qs = append(qs, r.Position.Q)
		}
		minQ, maxQ := slices.Min(qs), slices.Max(qs)
		width := maxQ - minQ + 1
		for _, r := range regions {
			band := (r.Position.Q - minQ) * len(nations) / width
			if err := s.Nations.AssignRegion(r.ID, nations[band].ID); err != nil {
				return fmt.Errorf("seed sample nation: %w", err)
			}
		}
	}

	for pair, score := range social.SampleRelations() {
		if err := s.Nations.ModifyRelation(pair[0], pair[1], score); err != nil {
			return fmt.Errorf("seed relation: %w", err)
		}
	}
	return nil
}

// settleRelations gives every seeded relation the status its score implies.
func (s *Simulation) settleRelations() {
	for _, n := range s.Nations.Nations() {
		for _, rel := range n.Diplomacy.Relations {
			rel.EvaluateStatus()
		}
	}
}
