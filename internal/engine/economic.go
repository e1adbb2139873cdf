// Economic tick: production, consumption, prices.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/world"
)

// ErrTurnAborted is returned when a fault stopped a turn pipeline midway.
var ErrTurnAborted = errors.New("turn aborted")

// EconomicSystem owns the region registry and the global ledger and runs
// the economic tick.
type EconomicSystem struct {
	production     *economy.ProductionCalculator
	infrastructure *economy.InfrastructureCalculator
	prices         *economy.PriceCalculator
	consumption    *economy.ConsumptionCalculator
	cycle          *economy.CycleCalculator
	ledger         *economy.Ledger

	incomeFraction float64
	maxPriceShock  float64
	upkeep         bool

	regions map[world.RegionID]*world.Region
	order   []world.RegionID

	bus      *events.Bus
	lastTurn int
}

// NewEconomicSystem builds the calculators from cfg. Ticks are announced on bus.
func NewEconomicSystem(cfg config.Economy, bus *events.Bus, rng entropy.Source) *EconomicSystem {
	prices := economy.NewPriceCalculator(rng)
	prices.MaxPriceChange = cfg.MaxPriceChange
	prices.Classes = cfg.Classifier()

	return &EconomicSystem{
		production: &economy.ProductionCalculator{
			ProductivityFactor: cfg.ProductivityFactor,
			LaborElasticity:    cfg.LaborElasticity,
			CapitalElasticity:  cfg.CapitalElasticity,
		},
		infrastructure: &economy.InfrastructureCalculator{
			EfficiencyModifier:    cfg.EfficiencyModifier,
			DecayRate:             cfg.DecayRate,
			MaintenanceCostFactor: cfg.MaintenanceCostFactor,
		},
		prices: prices,
		consumption: &economy.ConsumptionCalculator{
			BaseConsumptionRate:       cfg.BaseConsumptionRate,
			WealthConsumptionExponent: cfg.WealthConsumptionExponent,
			UnmetDemandUnrestFactor:   cfg.UnmetDemandUnrestFactor,
		},
		cycle:          economy.NewCycleCalculator(cfg.CycleLength, cfg.EnableEconomicCycles),
		ledger:         economy.NewLedger(cfg.ResourceTypes),
		incomeFraction: lo.Clamp(cfg.IncomeFraction, 0, 1),
		maxPriceShock:  cfg.MaxPriceShock,
		upkeep:         cfg.EnableInfrastructureUpkeep,
		regions:        make(map[world.RegionID]*world.Region),
		bus:            bus,
	}
}

// RegisterRegion adds a region to the registry. Registering an id twice
// keeps the original region and logs a warning.
func (s *EconomicSystem) RegisterRegion(r *world.Region) bool {
	if r == nil {
		slog.Warn("ignoring nil region registration")
		return false
	}
	if _, ok := s.regions[r.ID]; ok {
		slog.Warn("region already registered", "region", r.ID)
		return false
	}
	s.regions[r.ID] = r
	s.order = append(s.order, r.ID)
	return true
}

// Region looks up a region by id.
func (s *EconomicSystem) Region(id world.RegionID) (*world.Region, bool) {
	r, ok := s.regions[id]
	if !ok {
		slog.Warn("unknown region", "region", id)
	}
	return r, ok
}

// Regions returns all regions in registration order.
func (s *EconomicSystem) Regions() []*world.Region {
	out := make([]*world.Region, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.regions[id])
	}
	return out
}

// RegionCount returns the number of registered regions.
func (s *EconomicSystem) RegionCount() int {
	return len(s.order)
}

// Clear empties the region registry. Prices and the cycle are kept.
func (s *EconomicSystem) Clear() {
	clear(s.regions)
	s.order = nil
}

// ResourcePrice returns the current price of a resource type, or
// economy.DefaultPrice when the type is not tracked.
func (s *EconomicSystem) ResourcePrice(resourceType string) float64 {
	if _, ok := s.ledger.Entry(resourceType); !ok {
		slog.Warn("unknown resource type", "resource", resourceType)
		return economy.DefaultPrice
	}
	return s.ledger.Price(resourceType)
}

// Ledger exposes the global market state.
func (s *EconomicSystem) Ledger() *economy.Ledger {
	return s.ledger
}

// Cycle exposes the business cycle.
func (s *EconomicSystem) Cycle() *economy.CycleCalculator {
	return s.cycle
}

// InflationRate returns the relative change of the mean price over the last tick.
func (s *EconomicSystem) InflationRate() float64 {
	return s.ledger.InflationRate()
}

// WealthRange returns the lowest and highest region wealth. With no regions
// both are zero.
func (s *EconomicSystem) WealthRange() (low, high int) {
	return s.rangeOf(func(r *world.Region) int { return r.Economy.Wealth })
}

// ProductionRange returns the lowest and highest region production.
func (s *EconomicSystem) ProductionRange() (low, high int) {
	return s.rangeOf(func(r *world.Region) int { return r.Production.Current })
}

func (s *EconomicSystem) rangeOf(value func(*world.Region) int) (low, high int) {
	if len(s.order) == 0 {
		return 0, 0
	}
	low, high = math.MaxInt, math.MinInt
	for _, id := range s.order {
		v := value(s.regions[id])
		low = min(low, v)
		high = max(high, v)
	}
	return low, high
}

// NormalizedWealth maps a region's wealth onto [0,1] across the economy.
// Unknown regions and collapsed ranges give economy.NeutralMidpoint.
func (s *EconomicSystem) NormalizedWealth(id world.RegionID) float64 {
	r, ok := s.Region(id)
	if !ok {
		return economy.NeutralMidpoint
	}
	low, high := s.WealthRange()
	return economy.Normalize(float64(r.Economy.Wealth), float64(low), float64(high))
}

// NormalizedProduction maps a region's production onto [0,1].
func (s *EconomicSystem) NormalizedProduction(id world.RegionID) float64 {
	r, ok := s.Region(id)
	if !ok {
		return economy.NeutralMidpoint
	}
	low, high := s.ProductionRange()
	return economy.Normalize(float64(r.Production.Current), float64(low), float64(high))
}

// HandleTurnEnded is the bus handler for events.TurnEnded.
func (s *EconomicSystem) HandleTurnEnded(msg events.Message) {
	ev, ok := msg.(events.TurnEnded)
	if !ok {
		return
	}
	if err := s.ProcessTick(ev.Turn); err != nil {
		slog.Error("economic tick failed", "turn", ev.Turn, "error", err)
	}
}

// ProcessTick runs the five-step economic pipeline for one turn. With no
// regions it logs and returns. A fault inside the pipeline aborts the rest
// of the tick and is returned as ErrTurnAborted.
func (s *EconomicSystem) ProcessTick(turn int) (err error) {
	if len(s.order) == 0 {
		slog.Info("economic tick skipped, no regions registered", "turn", turn)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("economic tick aborted", "turn", turn, "panic", r)
			err = fmt.Errorf("%w: economic tick %d: %v", ErrTurnAborted, turn, r)
		}
	}()

	s.ledger.Reset()
	s.produce()
	consumed, income := s.consume()
	s.reprice()
	s.cycle.Advance()
	s.lastTurn = turn

	slog.Info("economic tick",
		"turn", turn,
		"regions", len(s.order),
		"consumed", humanize.Comma(int64(consumed)),
		"income", humanize.Comma(int64(income)),
		"inflation", fmt.Sprintf("%.4f", s.ledger.InflationRate()),
		"cycle", s.cycle.ConditionDescription(),
	)

	if s.bus != nil {
		s.bus.Publish(events.EconomicTick{Turn: turn, Regions: len(s.order)})
		for _, id := range s.order {
			s.bus.Publish(events.RegionUpdated{Region: s.regions[id]})
		}
	}
	return nil
}

// LastTurn returns the turn of the most recent completed tick.
func (s *EconomicSystem) LastTurn() int {
	return s.lastTurn
}

// produce computes every region's output and spreads it evenly over the
// resource types as global supply. Runs to completion before consume.
func (s *EconomicSystem) produce() {
	types := s.ledger.ResourceTypes()
	for _, id := range s.order {
		r := s.regions[id]

		out := s.production.CalculateRegionProduction(r)
		out = s.cycle.ApplyCycleEffect(out, economy.ChannelProduction)
		out *= s.infrastructure.CalculateEfficiencyBoost(r.Infrastructure.Level)

		r.Production.Current = int(math.Round(out))
		r.Economy.RecordGDP(out)

		if len(types) == 0 {
			continue
		}
		share := out / float64(len(types))
		for _, rt := range types {
			s.ledger.AddSupply(rt, share)
		}
	}
}

// consume gives each region a share of global supply proportional to its
// share of total wealth, debits what it consumes, credits income from its
// production and records income-adjusted demand.
func (s *EconomicSystem) consume() (totalConsumed, totalIncome int) {
	types := s.ledger.ResourceTypes()
	totalWealth := lo.SumBy(s.order, func(id world.RegionID) int {
		return max(s.regions[id].Economy.Wealth, 0)
	})

	for _, id := range s.order {
		r := s.regions[id]
		wealth := max(r.Economy.Wealth, 0)

		share := 1 / float64(len(s.order))
		if totalWealth > 0 {
			share = float64(wealth) / float64(totalWealth)
		}
		available := make(map[string]float64, len(types))
		for _, rt := range types {
			available[rt] = s.ledger.Supply(rt) * share
		}

		res := s.consumption.ProcessRegionConsumption(r, available, nil)
		consumed := s.cycle.ApplyCycleEffect(res.Consumption, economy.ChannelConsumption)
		unrest := s.cycle.ApplyCycleEffect(res.UnrestDelta, economy.ChannelUnrest)
		r.Population.Unrest = lo.Clamp(unrest, 0, 1)

		demandFactor := s.cycle.Factor(economy.ChannelConsumption)
		for rt, want := range res.Desired {
			s.ledger.AddDemand(rt, s.prices.AdjustDemandByIncome(want*demandFactor, wealth, rt))
		}

		debited := -r.Economy.Credit(-int(math.Round(consumed)))
		income := r.Economy.Credit(int(math.Round(float64(max(r.Production.Current, 0)) * s.incomeFraction)))

		upkeep := 0
		if s.upkeep {
			upkeep = s.maintain(r)
		}

		r.Economy.LastConsumption = debited
		r.Economy.LastIncome = income
		r.Economy.LastUpkeep = upkeep
		totalConsumed += debited
		totalIncome += income
	}
	return totalConsumed, totalIncome
}

// maintain decays infrastructure and charges its maintenance cost.
// Returns the wealth actually spent.
func (s *EconomicSystem) maintain(r *world.Region) int {
	level := r.Infrastructure.Level
	cost := s.infrastructure.CalculateMaintenanceCost(level)
	paid := -r.Economy.Credit(-cost)
	decay := s.infrastructure.CalculateDecay(level, r.Infrastructure.Quality)
	if paid < cost {
		// Unpaid upkeep doubles the wear.
		decay *= 2
	}
	r.Infrastructure.Degrade(decay)
	return paid
}

// reprice moves every price toward equilibrium, applies cycle inflation and
// a bounded shock.
func (s *EconomicSystem) reprice() {
	for _, rt := range s.ledger.ResourceTypes() {
		e, _ := s.ledger.Entry(rt)
		price := s.prices.CalculatePrice(e.Price, e.Supply, e.Demand, rt)
		price = s.cycle.ApplyCycleEffect(price, economy.ChannelPriceInflation)
		price = s.prices.CalculatePriceShock(price, e.SupplyShock(), e.DemandTrend(), s.maxPriceShock)
		s.ledger.SetPrice(rt, price)
	}
}
