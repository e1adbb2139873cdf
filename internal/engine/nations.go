// Nation system: registry, region ownership and the per-turn nation pipeline.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Nation system errors.
var (
	ErrUnknownNation         = errors.New("unknown nation")
	ErrUnknownRegion         = errors.New("unknown region")
	ErrNationExists          = errors.New("nation already exists")
	ErrInsufficientTreasury  = errors.New("insufficient treasury")
	ErrInsufficientInfluence = errors.New("insufficient diplomatic influence")
	ErrHostileRelation       = errors.New("relation is hostile")
	ErrSameNation            = errors.New("a nation has no relation with itself")
)

// RegionSource is what the nation system needs from the economy.
type RegionSource interface {
	Region(id world.RegionID) (*world.Region, bool)
	InflationRate() float64
}

// NationSystem owns the nation registry and runs nation processing after
// every economic tick.
type NationSystem struct {
	cfg     config.Nations
	source  RegionSource
	infra   *economy.InfrastructureCalculator
	bus     *events.Bus
	journal *Journal

	nations map[social.NationID]*social.Nation
	order   []social.NationID
	owner   map[world.RegionID]social.NationID

	lastTurn int
}

// NewNationSystem creates an empty registry. source may be nil and set
// later with SetRegionSource; turns are skipped until it is.
func NewNationSystem(cfg config.Nations, source RegionSource, infra *economy.InfrastructureCalculator, bus *events.Bus, journal *Journal) *NationSystem {
	if infra == nil {
		infra = economy.NewInfrastructureCalculator()
	}
	if journal == nil {
		journal = NewJournal()
	}
	return &NationSystem{
		cfg:     cfg,
		source:  source,
		infra:   infra,
		bus:     bus,
		journal: journal,
		nations: make(map[social.NationID]*social.Nation),
		owner:   make(map[world.RegionID]social.NationID),
	}
}

// SetRegionSource connects (or replaces) the economy the nations draw on.
func (ns *NationSystem) SetRegionSource(src RegionSource) {
	ns.source = src
}

// CreateNation registers a new nation with the configured default rates.
func (ns *NationSystem) CreateNation(id social.NationID, name, color string) (*social.Nation, error) {
	n := social.NewNation(id, name, color)
	n.Economy.TaxRate = ns.cfg.DefaultTaxRate
	n.Economy.InfrastructureInvestment = ns.cfg.DefaultInvestment
	if err := ns.AddNation(n); err != nil {
		return nil, err
	}
	return n, nil
}

// AddNation registers a prepared nation. Regions it already lists are
// claimed through AssignRegion so exclusivity holds.
func (ns *NationSystem) AddNation(n *social.Nation) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("add nation: %w: empty id", ErrUnknownNation)
	}
	if _, ok := ns.nations[n.ID]; ok {
		return fmt.Errorf("add nation %s: %w", n.ID, ErrNationExists)
	}
	ns.nations[n.ID] = n
	ns.order = append(ns.order, n.ID)
	for _, rid := range n.RegionIDs() {
		n.RemoveRegion(rid)
		if err := ns.AssignRegion(rid, n.ID); err != nil {
			slog.Warn("dropping region from new nation", "nation", n.ID, "region", rid, "error", err)
		}
	}
	return nil
}

// Nation looks up a nation by id.
func (ns *NationSystem) Nation(id social.NationID) (*social.Nation, bool) {
	n, ok := ns.nations[id]
	if !ok {
		slog.Warn("unknown nation", "nation", id)
	}
	return n, ok
}

// Nations returns all nations in creation order.
func (ns *NationSystem) Nations() []*social.Nation {
	out := make([]*social.Nation, 0, len(ns.order))
	for _, id := range ns.order {
		out = append(out, ns.nations[id])
	}
	return out
}

// Journal returns the event journal.
func (ns *NationSystem) Journal() *Journal {
	return ns.journal
}

// NationOf returns the owner of a region.
func (ns *NationSystem) NationOf(regionID world.RegionID) (social.NationID, bool) {
	id, ok := ns.owner[regionID]
	return id, ok
}

// AssignRegion gives a region to a nation. The region is first removed from
// every other nation, so it is never owned twice.
func (ns *NationSystem) AssignRegion(regionID world.RegionID, nationID social.NationID) error {
	n, ok := ns.Nation(nationID)
	if !ok {
		return fmt.Errorf("assign %s: %w %q", regionID, ErrUnknownNation, nationID)
	}
	if ns.source != nil {
		if _, ok := ns.source.Region(regionID); !ok {
			return fmt.Errorf("assign to %s: %w %q", nationID, ErrUnknownRegion, regionID)
		}
	}

	var previous []*social.Nation
	for _, id := range ns.order {
		other := ns.nations[id]
		if other.ID != nationID && other.RemoveRegion(regionID) {
			previous = append(previous, other)
		}
	}
	n.AddRegion(regionID)
	ns.owner[regionID] = nationID

	if len(previous) > 0 {
		ns.clearNationModifiers(regionID)
	}
	for _, p := range previous {
		ns.aggregate(p)
	}
	ns.aggregate(n)
	return nil
}

// UnassignRegion removes a region from whichever nation owns it.
func (ns *NationSystem) UnassignRegion(regionID world.RegionID) {
	id, ok := ns.owner[regionID]
	if !ok {
		return
	}
	delete(ns.owner, regionID)
	if n, ok := ns.nations[id]; ok {
		n.RemoveRegion(regionID)
		ns.clearNationModifiers(regionID)
		ns.aggregate(n)
	}
}

// HandleEconomicTick is the bus handler that runs nation processing once
// the economic tick has completed.
func (ns *NationSystem) HandleEconomicTick(msg events.Message) {
	ev, ok := msg.(events.EconomicTick)
	if !ok {
		return
	}
	if err := ns.ProcessTurn(ev.Turn); err != nil {
		slog.Error("nation processing failed", "turn", ev.Turn, "error", err)
	}
}

// HandleRegionNationChanged moves one region between nations.
func (ns *NationSystem) HandleRegionNationChanged(msg events.Message) {
	ev, ok := msg.(events.RegionNationChanged)
	if !ok {
		return
	}
	if err := ns.AssignRegion(ev.RegionID, ev.NationID); err != nil {
		slog.Error("region reassignment rejected", "region", ev.RegionID, "nation", ev.NationID, "error", err)
	}
}

// HandleRegionsAssigned recomputes every nation after a bulk assignment.
func (ns *NationSystem) HandleRegionsAssigned(events.Message) {
	ns.RefreshAggregates()
}

// RefreshAggregates recomputes wealth, production and infrastructure totals
// for every nation.
func (ns *NationSystem) RefreshAggregates() {
	if ns.source == nil {
		slog.Error("nation aggregation skipped, no region source")
		return
	}
	for _, id := range ns.order {
		ns.aggregate(ns.nations[id])
	}
}

// ProcessTurn runs aggregation, then the economic, diplomatic, stability and
// policy subsystems for every nation, and announces NationStatisticsUpdated.
// Without a region source the turn is skipped and retried next turn.
func (ns *NationSystem) ProcessTurn(turn int) (err error) {
	if ns.source == nil {
		slog.Error("nation processing skipped, no region source", "turn", turn)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("nation processing aborted", "turn", turn, "panic", r)
			err = fmt.Errorf("%w: nation turn %d: %v", ErrTurnAborted, turn, r)
		}
	}()

	nations := ns.Nations()
	for _, n := range nations {
		ns.aggregate(n)
		n.Economy.RecordGDP(ns.gdp(n))
	}
	for _, n := range nations {
		ns.processTreasury(n)
	}
	ns.processDiplomacy(turn, nations)
	for _, n := range nations {
		ns.processStability(turn, n)
	}
	for _, n := range nations {
		ns.processPolicies(turn, n)
		ns.aggregate(n)
	}
	ns.lastTurn = turn

	if ns.bus != nil {
		ns.bus.Publish(events.NationStatisticsUpdated{Turn: turn})
	}
	return nil
}

// LastTurn returns the most recently processed turn.
func (ns *NationSystem) LastTurn() int {
	return ns.lastTurn
}

// ownedRegions resolves a nation's region ids, skipping any the economy
// no longer knows.
func (ns *NationSystem) ownedRegions(n *social.Nation) []*world.Region {
	if ns.source == nil {
		return nil
	}
	ids := n.RegionIDs()
	out := make([]*world.Region, 0, len(ids))
	for _, id := range ids {
		if r, ok := ns.source.Region(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// aggregate recomputes the nation's totals from its regions.
func (ns *NationSystem) aggregate(n *social.Nation) {
	regions := ns.ownedRegions(n)
	wealth, production, infra := 0, 0, 0.0
	for _, r := range regions {
		wealth += r.Economy.Wealth
		production += r.Production.Current
		infra += r.Infrastructure.Level
	}
	n.Economy.TotalWealth = wealth
	n.Economy.TotalProduction = production
	n.Economy.AverageInfrastructure = 0
	if len(regions) > 0 {
		n.Economy.AverageInfrastructure = infra / float64(len(regions))
	}
}

func (ns *NationSystem) gdp(n *social.Nation) float64 {
	total := 0.0
	for _, r := range ns.ownedRegions(n) {
		total += r.Economy.GDP
	}
	return total
}

// EnactPolicy pays for a policy from the treasury and activates it.
func (ns *NationSystem) EnactPolicy(nationID social.NationID, p *social.Policy) error {
	n, ok := ns.Nation(nationID)
	if !ok {
		return fmt.Errorf("enact policy: %w %q", ErrUnknownNation, nationID)
	}
	if p != nil && p.Cost > n.Economy.TreasuryBalance {
		return fmt.Errorf("enact %q: %w (cost %d, treasury %d)", p.Name, ErrInsufficientTreasury, p.Cost, n.Economy.TreasuryBalance)
	}
	if err := n.Policy.Add(p); err != nil {
		return fmt.Errorf("enact policy for %s: %w", nationID, err)
	}
	n.Economy.TreasuryBalance -= p.Cost
	ns.journal.Record(ns.lastTurn, "policy", "%s enacts %s for %d turns", n.Name, p.Name, p.RemainingTurns)
	return nil
}

// SetPolicySlider changes one slider of a nation.
func (ns *NationSystem) SetPolicySlider(nationID social.NationID, t social.PolicyType, value float64) error {
	n, ok := ns.Nation(nationID)
	if !ok {
		return fmt.Errorf("set slider: %w %q", ErrUnknownNation, nationID)
	}
	if err := n.Policy.SetSlider(t, value); err != nil {
		return fmt.Errorf("set slider for %s: %w", nationID, err)
	}
	return nil
}

// SetTaxRate changes a nation's tax rate.
func (ns *NationSystem) SetTaxRate(nationID social.NationID, rate float64) error {
	n, ok := ns.Nation(nationID)
	if !ok {
		return fmt.Errorf("set tax rate: %w %q", ErrUnknownNation, nationID)
	}
	if err := n.Economy.SetTaxRate(rate); err != nil {
		return fmt.Errorf("set tax rate for %s: %w", nationID, err)
	}
	return nil
}

// pair returns both nations of a bilateral operation.
func (ns *NationSystem) pair(a, b social.NationID) (*social.Nation, *social.Nation, error) {
	if a == b {
		return nil, nil, fmt.Errorf("%w: %s", ErrSameNation, a)
	}
	na, ok := ns.Nation(a)
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownNation, a)
	}
	nb, ok := ns.Nation(b)
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownNation, b)
	}
	return na, nb, nil
}

// ModifyRelation adjusts the relation score between two nations on both sides.
// Status is re-evaluated during the next diplomacy pass.
func (ns *NationSystem) ModifyRelation(a, b social.NationID, delta float64) error {
	na, nb, err := ns.pair(a, b)
	if err != nil {
		return fmt.Errorf("modify relation: %w", err)
	}
	na.Diplomacy.Relation(b).Adjust(delta)
	nb.Diplomacy.Relation(a).Adjust(delta)
	return nil
}

// SignTreaty establishes a treaty between two nations. The initiator pays
// the influence cost; hostile pairs cannot sign.
func (ns *NationSystem) SignTreaty(a, b social.NationID) error {
	na, nb, err := ns.pair(a, b)
	if err != nil {
		return fmt.Errorf("sign treaty: %w", err)
	}
	ra, rb := na.Diplomacy.Relation(b), nb.Diplomacy.Relation(a)
	if ra.Status == social.StatusHostile || rb.Status == social.StatusHostile {
		return fmt.Errorf("sign treaty %s/%s: %w", a, b, ErrHostileRelation)
	}
	if ra.HasTreaty {
		return nil
	}
	if !na.Diplomacy.SpendInfluence(ns.cfg.TreatyCost) {
		return fmt.Errorf("sign treaty %s/%s: %w", a, b, ErrInsufficientInfluence)
	}
	ra.HasTreaty, rb.HasTreaty = true, true
	ns.journal.Record(ns.lastTurn, "diplomacy", "%s and %s sign a treaty", na.Name, nb.Name)
	return nil
}

// policyModifierPrefix marks production modifiers owned by nation policy.
const policyModifierPrefix = "policy:"

// clearNationModifiers removes policy and slider modifiers from a region
// that changed hands.
func (ns *NationSystem) clearNationModifiers(regionID world.RegionID) {
	if ns.source == nil {
		return
	}
	r, ok := ns.source.Region(regionID)
	if !ok {
		return
	}
	for _, name := range lo.Keys(r.Production.Modifiers) {
		if strings.HasPrefix(name, policyModifierPrefix) {
			r.Production.RemoveModifier(name)
		}
	}
}
