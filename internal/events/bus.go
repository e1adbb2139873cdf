// Package events is the typed publish/subscribe bus connecting the turn
// scheduler, the economic system and the nation system.
//
// Dispatch is synchronous and FIFO: a message published from inside a
// handler is queued and delivered only after the current message has been
// delivered to every subscriber. This is what guarantees that nation
// processing never starts before an economic tick has fully completed.
package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/statecraft/internal/world"
)

// Kind identifies a message type.
type Kind uint8

const (
	KindTurnEnded Kind = iota
	KindEconomicTick
	KindRegionUpdated
	KindRegionsAssignedToNations
	KindRegionNationChanged
	KindNationStatisticsUpdated
)

// String returns the topic name.
func (k Kind) String() string {
	switch k {
	case KindTurnEnded:
		return "TurnEnded"
	case KindEconomicTick:
		return "EconomicTick"
	case KindRegionUpdated:
		return "RegionUpdated"
	case KindRegionsAssignedToNations:
		return "RegionsAssignedToNations"
	case KindRegionNationChanged:
		return "RegionNationChanged"
	case KindNationStatisticsUpdated:
		return "NationStatisticsUpdated"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Message is anything that can travel on the bus.
type Message interface {
	Kind() Kind
}

// TurnEnded is published by the scheduler once per game turn.
type TurnEnded struct {
	Turn int
}

// EconomicTick is published when the economic pipeline has finished a tick.
type EconomicTick struct {
	Turn    int
	Regions int // Number of regions processed
}

// RegionUpdated is published once per region after every economic tick.
type RegionUpdated struct {
	Region *world.Region
}

// RegionsAssignedToNations signals a bulk (re)assignment of regions.
type RegionsAssignedToNations struct{}

// RegionNationChanged signals that one region moved to another nation.
type RegionNationChanged struct {
	RegionID world.RegionID
	NationID string
}

// NationStatisticsUpdated is published when nation processing is complete.
type NationStatisticsUpdated struct {
	Turn int
}

func (TurnEnded) Kind() Kind                { return KindTurnEnded }
func (EconomicTick) Kind() Kind             { return KindEconomicTick }
func (RegionUpdated) Kind() Kind            { return KindRegionUpdated }
func (RegionsAssignedToNations) Kind() Kind { return KindRegionsAssignedToNations }
func (RegionNationChanged) Kind() Kind      { return KindRegionNationChanged }
func (NationStatisticsUpdated) Kind() Kind  { return KindNationStatisticsUpdated }

// Handler receives a message.
type Handler func(Message)

// Subscription is the token returned by Subscribe.
type Subscription struct {
	kind Kind
	id   uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus dispatches messages to subscribers in subscription order.
type Bus struct {
	mu          sync.Mutex
	subscribers map[Kind][]subscriber
	nextID      uint64

	queue       []Message
	dispatching bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Kind][]subscriber)}
}

// Subscribe registers handler for messages of the given kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subscribers[kind] = append(b.subscribers[kind], subscriber{id: b.nextID, handler: handler})
	return Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.kind]
	for i, s := range subs {
		if s.id == sub.id {
			b.subscribers[sub.kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers msg to every subscriber of its kind. When called from
// inside a handler the message is queued behind the one being delivered.
func (b *Bus) Publish(msg Message) {
	if msg == nil {
		return
	}

	b.mu.Lock()
	b.queue = append(b.queue, msg)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		// Snapshot so handlers may subscribe or unsubscribe while we deliver.
		subs := append([]subscriber(nil), b.subscribers[next.Kind()]...)
		b.mu.Unlock()

		for _, s := range subs {
			deliver(s.handler, next)
		}
	}
}

// deliver runs one handler, containing any panic so one faulty subscriber
// cannot stop the others.
func deliver(h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "topic", msg.Kind(), "panic", r)
		}
	}()
	h(msg)
}
