package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/statecraft/internal/engine"
)

func snapshotWith(unrest, inflation float64, nations ...engine.NationStats) engine.TurnSnapshot {
	return engine.TurnSnapshot{
		Stats:   engine.SimStats{AvgUnrest: unrest, Inflation: inflation},
		Nations: nations,
	}
}

func TestTriageLevels(t *testing.T) {
	calm := engine.NationStats{Stability: 0.8, GDPGrowth: 0.01}
	shaky := engine.NationStats{Stability: 0.5, GDPGrowth: 0.01}
	failing := engine.NationStats{Stability: 0.1}
	shrinking := engine.NationStats{Stability: 0.8, GDPGrowth: -0.02}

	tests := []struct {
		name string
		snap engine.TurnSnapshot
		want string
	}{
		{"calm world", snapshotWith(0.05, 0.01, calm, calm), engine.HealthHealthy},
		{"no nations", snapshotWith(0, 0), engine.HealthHealthy},
		{"one shrinking economy", snapshotWith(0.05, 0.01, calm, shrinking), engine.HealthWatch},
		{"shaky nation", snapshotWith(0.05, 0.01, calm, shaky), engine.HealthWatch},
		{"most economies shrinking", snapshotWith(0.05, 0.01, calm, shrinking, shrinking), engine.HealthWarning},
		{"deflation counts too", snapshotWith(0.05, -0.3, calm), engine.HealthWarning},
		{"collapsing nation", snapshotWith(0.05, 0.01, calm, failing), engine.HealthCritical},
		{"widespread unrest", snapshotWith(0.7, 0, calm), engine.HealthCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Triage(tt.snap).Level)
		})
	}
}

func TestTriageSignals(t *testing.T) {
	h := engine.Triage(snapshotWith(0.3, 0.04,
		engine.NationStats{Stability: 0.9, GDPGrowth: -0.1},
		engine.NationStats{Stability: 0.45, GDPGrowth: 0.2},
	))
	assert.InDelta(t, 0.45, h.LowestStability, 1e-9)
	assert.Equal(t, 1, h.ShrinkingNations)
	assert.Equal(t, 2, h.TotalNations)
	assert.Equal(t, engine.HealthWatch, h.Level)
}

func TestTriageFreshWorld(t *testing.T) {
	sim := seededSimulation(t)
	h := engine.Triage(sim.Snapshot())
	assert.Equal(t, 4, h.TotalNations)
	assert.InDelta(t, 0.7, h.LowestStability, 1e-9)
}
