// Simulation ties the bus, the economic system and the nation system together.
package engine

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
)

// Simulation holds the complete state and wires systems together. All
// mutation happens inside EndTurn or Update under the write lock; readers
// use View and so only ever see state between turns.
type Simulation struct {
	mu sync.RWMutex

	Bus     *events.Bus
	Economy *EconomicSystem
	Nations *NationSystem
	Journal *Journal

	// Statistics as of the last completed turn.
	Stats SimStats

	turn      int
	boosts    []ProductionBoost
	observers []func(TurnSnapshot)
}

// SimStats tracks aggregate world statistics.
type SimStats struct {
	Turn            int     `json:"turn"`
	Regions         int     `json:"regions"`
	Nations         int     `json:"nations"`
	TotalPopulation int     `json:"total_population"`
	TotalWealth     int     `json:"total_wealth"`
	TotalProduction int     `json:"total_production"`
	AvgUnrest       float64 `json:"avg_unrest"`
	Inflation       float64 `json:"inflation"`
	Cycle           string  `json:"cycle"`
}

// NationStats is one nation's row in a turn snapshot.
type NationStats struct {
	Turn                  int     `json:"turn" db:"turn"`
	NationID              string  `json:"nation_id" db:"nation_id"`
	Name                  string  `json:"name" db:"name"`
	Regions               int     `json:"regions" db:"regions"`
	TotalWealth           int     `json:"total_wealth" db:"total_wealth"`
	TotalProduction       int     `json:"total_production" db:"total_production"`
	AverageInfrastructure float64 `json:"average_infrastructure" db:"average_infrastructure"`
	Treasury              int     `json:"treasury" db:"treasury"`
	TaxRate               float64 `json:"tax_rate" db:"tax_rate"`
	GDP                   float64 `json:"gdp" db:"gdp"`
	GDPGrowth             float64 `json:"gdp_growth" db:"gdp_growth"`
	Inflation             float64 `json:"inflation" db:"inflation"`
	Stability             float64 `json:"stability" db:"stability"`
	Unrest                float64 `json:"unrest" db:"unrest"`
	Influence             float64 `json:"influence" db:"influence"`
	Reputation            float64 `json:"reputation" db:"reputation"`
	ActivePolicies        int     `json:"active_policies" db:"active_policies"`
}

// TurnSnapshot is the read-only summary of a completed turn handed to
// observers such as the history store and the live stream.
type TurnSnapshot struct {
	Turn    int                   `json:"turn"`
	Stats   SimStats              `json:"stats"`
	Nations []NationStats         `json:"nations"`
	Prices  []economy.LedgerEntry `json:"prices"`
	Events  []Event               `json:"events"` // Recorded during this turn
}

// NewSimulation builds the systems from cfg and subscribes them to the bus.
// Regions and nations are added afterwards, usually through Seed.
func NewSimulation(cfg config.Config) *Simulation {
	bus := events.NewBus()
	journal := NewJournal()
	econ := NewEconomicSystem(cfg.Economy, bus, entropy.New(cfg.Seed))
	nations := NewNationSystem(cfg.Nations, econ, econ.infrastructure, bus, journal)

	sim := &Simulation{
		Bus:     bus,
		Economy: econ,
		Nations: nations,
		Journal: journal,
	}

	bus.Subscribe(events.KindTurnEnded, econ.HandleTurnEnded)
	bus.Subscribe(events.KindEconomicTick, nations.HandleEconomicTick)
	bus.Subscribe(events.KindRegionNationChanged, nations.HandleRegionNationChanged)
	bus.Subscribe(events.KindRegionsAssignedToNations, nations.HandleRegionsAssigned)
	return sim
}

// OnTurnComplete registers an observer called after every turn, outside the
// lock. Register observers before the first turn.
func (s *Simulation) OnTurnComplete(fn func(TurnSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// CurrentTurn returns the most recently completed turn.
func (s *Simulation) CurrentTurn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// EndTurn signals the end of a turn: the economic tick runs, then nation
// processing, then observers are notified.
func (s *Simulation) EndTurn(turn int) TurnSnapshot {
	s.mu.Lock()
	s.cleanExpiredBoosts(turn)
	s.Bus.Publish(events.TurnEnded{Turn: turn})
	s.turn = turn
	s.updateStats()
	snap := s.snapshotLocked()
	snap.Events = s.Journal.Drain()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	slog.Info("turn complete",
		"turn", turn,
		"nations", snap.Stats.Nations,
		"wealth", humanize.Comma(int64(snap.Stats.TotalWealth)),
		"production", humanize.Comma(int64(snap.Stats.TotalProduction)),
		"avg_unrest", snap.Stats.AvgUnrest,
		"events", len(snap.Events),
	)
	for _, e := range snap.Events {
		slog.Info("event", "category", e.Category, "description", e.Description)
	}

	for _, fn := range observers {
		fn(snap)
	}
	return snap
}

// Update runs fn under the write lock. Use it for player actions such as
// enacting a policy so they never interleave with a turn.
func (s *Simulation) Update(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// View runs fn under the read lock.
func (s *Simulation) View(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// Snapshot returns the current summary without advancing the turn.
func (s *Simulation) Snapshot() TurnSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Simulation) snapshotLocked() TurnSnapshot {
	snap := TurnSnapshot{
		Turn:   s.turn,
		Stats:  s.Stats,
		Prices: s.Economy.Ledger().Entries(),
	}
	for _, n := range s.Nations.Nations() {
		snap.Nations = append(snap.Nations, NationStats{
			Turn:                  s.turn,
			NationID:              n.ID,
			Name:                  n.Name,
			Regions:               n.RegionCount(),
			TotalWealth:           n.Economy.TotalWealth,
			TotalProduction:       n.Economy.TotalProduction,
			AverageInfrastructure: n.Economy.AverageInfrastructure,
			Treasury:              n.Economy.TreasuryBalance,
			TaxRate:               n.Economy.TaxRate,
			GDP:                   n.Economy.GDP,
			GDPGrowth:             n.Economy.GDPGrowthRate,
			Inflation:             n.Economy.Inflation,
			Stability:             n.Stability.Stability,
			Unrest:                n.Stability.UnrestLevel,
			Influence:             n.Diplomacy.DiplomaticInfluence,
			Reputation:            n.Diplomacy.GlobalReputation,
			ActivePolicies:        len(n.Policy.Active),
		})
	}
	return snap
}

func (s *Simulation) updateStats() {
	regions := s.Economy.Regions()
	stats := SimStats{
		Turn:      s.turn,
		Regions:   len(regions),
		Nations:   len(s.Nations.Nations()),
		Inflation: s.Economy.InflationRate(),
		Cycle:     s.Economy.Cycle().ConditionDescription(),
	}
	unrest := 0.0
	for _, r := range regions {
		stats.TotalPopulation += r.Population.Count
		stats.TotalWealth += r.Economy.Wealth
		stats.TotalProduction += r.Production.Current
		unrest += r.Population.Unrest
	}
	if len(regions) > 0 {
		stats.AvgUnrest = unrest / float64(len(regions))
	}
	s.Stats = stats
}
