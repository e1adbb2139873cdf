package economy

import (
	"math"
	"slices"
)

// LedgerEntry is the global market state of one resource type.
type LedgerEntry struct {
	Resource   string  `json:"resource"`
	Price      float64 `json:"price"`
	Supply     float64 `json:"supply"`
	Demand     float64 `json:"demand"`
	PrevSupply float64 `json:"prev_supply"`
	PrevDemand float64 `json:"prev_demand"`
	PrevPrice  float64 `json:"prev_price"`
}

// SupplyShock returns the relative change in supply since the previous tick,
// positive when supply grew. Zero when there is no history.
func (e *LedgerEntry) SupplyShock() float64 {
	if e.PrevSupply <= 0 {
		return 0
	}
	return (e.Supply - e.PrevSupply) / e.PrevSupply
}

// DemandTrend returns the relative change in demand since the previous tick.
func (e *LedgerEntry) DemandTrend() float64 {
	if e.PrevDemand <= 0 {
		return 0
	}
	return (e.Demand - e.PrevDemand) / e.PrevDemand
}

// Ledger holds per-resource prices and per-tick supply/demand accumulators.
// Only the economic system mutates it, and only during its own tick.
type Ledger struct {
	order   []string
	entries map[string]*LedgerEntry
}

// NewLedger creates entries at DefaultPrice for the given resource types.
func NewLedger(resourceTypes []string) *Ledger {
	l := &Ledger{entries: make(map[string]*LedgerEntry, len(resourceTypes))}
	for _, rt := range resourceTypes {
		if _, ok := l.entries[rt]; ok {
			continue
		}
		l.order = append(l.order, rt)
		l.entries[rt] = &LedgerEntry{Resource: rt, Price: DefaultPrice, PrevPrice: DefaultPrice}
	}
	return l
}

// ResourceTypes returns the tracked resource types in configuration order.
func (l *Ledger) ResourceTypes() []string {
	return slices.Clone(l.order)
}

// Entry returns the entry for a resource type.
func (l *Ledger) Entry(resourceType string) (*LedgerEntry, bool) {
	e, ok := l.entries[resourceType]
	return e, ok
}

// Reset rolls this tick's supply and demand into the previous-tick fields
// and zeroes the accumulators.
func (l *Ledger) Reset() {
	for _, e := range l.entries {
		e.PrevSupply, e.PrevDemand = e.Supply, e.Demand
		e.Supply, e.Demand = 0, 0
	}
}

// AddSupply accumulates supply; unknown types are ignored.
func (l *Ledger) AddSupply(resourceType string, amount float64) {
	if e, ok := l.entries[resourceType]; ok && amount > 0 {
		e.Supply += amount
	}
}

// AddDemand accumulates demand; unknown types are ignored.
func (l *Ledger) AddDemand(resourceType string, amount float64) {
	if e, ok := l.entries[resourceType]; ok && amount > 0 {
		e.Demand += amount
	}
}

// Price returns the current price, or DefaultPrice for unknown types.
func (l *Ledger) Price(resourceType string) float64 {
	if e, ok := l.entries[resourceType]; ok {
		return e.Price
	}
	return DefaultPrice
}

// SetPrice stores a new price, keeping the old one for inflation tracking.
func (l *Ledger) SetPrice(resourceType string, price float64) {
	if e, ok := l.entries[resourceType]; ok && price > 0 && !math.IsNaN(price) {
		e.PrevPrice = e.Price
		e.Price = price
	}
}

// Restore sets prices saved from an earlier run. Previous prices are set to
// the same values so inflation starts from zero.
func (l *Ledger) Restore(prices map[string]float64) {
	for rt, price := range prices {
		if e, ok := l.entries[rt]; ok && price > 0 && !math.IsNaN(price) {
			e.Price, e.PrevPrice = price, price
		}
	}
}

// Supply returns this tick's supply of a resource type.
func (l *Ledger) Supply(resourceType string) float64 {
	if e, ok := l.entries[resourceType]; ok {
		return e.Supply
	}
	return 0
}

// Demand returns this tick's demand of a resource type.
func (l *Ledger) Demand(resourceType string) float64 {
	if e, ok := l.entries[resourceType]; ok {
		return e.Demand
	}
	return 0
}

// Entries returns copies of all entries in configuration order.
func (l *Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(l.order))
	for _, rt := range l.order {
		out = append(out, *l.entries[rt])
	}
	return out
}

// InflationRate returns the relative change of the mean price over the last
// price update.
func (l *Ledger) InflationRate() float64 {
	if len(l.order) == 0 {
		return 0
	}
	cur, prev := 0.0, 0.0
	for _, e := range l.entries {
		cur += e.Price
		prev += e.PrevPrice
	}
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev
}
