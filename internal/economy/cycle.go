package economy

import (
	"fmt"
	"log/slog"
)

// Phase is one state of the business cycle.
type Phase uint8

const (
	PhaseExpansion Phase = iota
	PhasePeak
	PhaseContraction
	PhaseTrough

	phaseCount
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseExpansion:
		return "Expansion"
	case PhasePeak:
		return "Peak"
	case PhaseContraction:
		return "Contraction"
	case PhaseTrough:
		return "Trough"
	default:
		return "Unknown"
	}
}

// Channel selects which factor of the cycle applies.
type Channel string

const (
	ChannelProduction     Channel = "Production"
	ChannelConsumption    Channel = "Consumption"
	ChannelUnrest         Channel = "Unrest"
	ChannelPriceInflation Channel = "PriceInflation"
)

// phaseFactors[phase][channel]; every factor is positive.
var phaseFactors = [phaseCount]map[Channel]float64{
	PhaseExpansion:   {ChannelProduction: 1.10, ChannelConsumption: 1.05, ChannelUnrest: 0.90, ChannelPriceInflation: 1.02},
	PhasePeak:        {ChannelProduction: 1.15, ChannelConsumption: 1.10, ChannelUnrest: 0.85, ChannelPriceInflation: 1.04},
	PhaseContraction: {ChannelProduction: 0.90, ChannelConsumption: 0.95, ChannelUnrest: 1.20, ChannelPriceInflation: 0.99},
	PhaseTrough:      {ChannelProduction: 0.80, ChannelConsumption: 0.90, ChannelUnrest: 1.30, ChannelPriceInflation: 0.98},
}

// MinCycleLength is the shortest cycle: one turn per phase.
const MinCycleLength = 4

// CycleCalculator is a state machine stepping through the four phases once
// every CycleLength turns.
type CycleCalculator struct {
	CycleLength int
	Enabled     bool

	turn int // Turns elapsed since the cycle started
}

// NewCycleCalculator creates a cycle of the given length.
func NewCycleCalculator(length int, enabled bool) *CycleCalculator {
	return &CycleCalculator{CycleLength: max(length, MinCycleLength), Enabled: enabled}
}

// Advance moves the cycle forward one turn.
func (c *CycleCalculator) Advance() {
	c.turn++
}

// Turn returns the number of turns elapsed.
func (c *CycleCalculator) Turn() int {
	return c.turn
}

// SetTurn positions the cycle, e.g. when resuming a scenario mid-cycle.
func (c *CycleCalculator) SetTurn(turn int) {
	c.turn = max(turn, 0)
}

func (c *CycleCalculator) position() (Phase, float64) {
	length := max(c.CycleLength, MinCycleLength)
	phaseLen := float64(length) / float64(phaseCount)
	pos := float64(c.turn % length)
	idx := int(pos / phaseLen)
	if idx >= int(phaseCount) {
		idx = int(phaseCount) - 1
	}
	progress := (pos - float64(idx)*phaseLen) / phaseLen
	return Phase(idx), min(max(progress, 0), 0.999999)
}

// CurrentPhase returns the active phase.
func (c *CycleCalculator) CurrentPhase() Phase {
	p, _ := c.position()
	return p
}

// PhaseProgress returns the elapsed fraction of the current phase in [0,1).
func (c *CycleCalculator) PhaseProgress() float64 {
	_, prog := c.position()
	return prog
}

// Factor returns the multiplier for a channel in the current phase.
// Disabled cycles and unknown channels yield 1.
func (c *CycleCalculator) Factor(ch Channel) float64 {
	if !c.Enabled {
		return 1
	}
	f, ok := phaseFactors[c.CurrentPhase()][ch]
	if !ok {
		slog.Warn("unknown cycle channel", "channel", ch)
		return 1
	}
	return f
}

// ApplyCycleEffect scales baseValue by the channel's current factor.
func (c *CycleCalculator) ApplyCycleEffect(baseValue float64, ch Channel) float64 {
	return baseValue * c.Factor(ch)
}

// ConditionDescription returns a phase and trend label such as
// "Expansion (early): growth accelerating".
func (c *CycleCalculator) ConditionDescription() string {
	if !c.Enabled {
		return "Stable: economic cycles disabled"
	}
	phase, prog := c.position()

	stage := "mid"
	switch {
	case prog < 1.0/3:
		stage = "early"
	case prog >= 2.0/3:
		stage = "late"
	}

	var trend string
	switch phase {
	case PhaseExpansion:
		trend = "growth accelerating"
	case PhasePeak:
		trend = "output near its ceiling"
	case PhaseContraction:
		trend = "activity slowing"
	case PhaseTrough:
		trend = "bottoming out, recovery ahead"
	}
	return fmt.Sprintf("%s (%s): %s", phase, stage, trend)
}
