package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/statecraft/internal/events"
)

func TestPublishDeliversToMatchingKind(t *testing.T) {
	bus := events.NewBus()
	var got []int
	bus.Subscribe(events.KindTurnEnded, func(m events.Message) {
		got = append(got, m.(events.TurnEnded).Turn)
	})
	bus.Subscribe(events.KindEconomicTick, func(events.Message) {
		t.Fatal("wrong kind delivered")
	})

	bus.Publish(events.TurnEnded{Turn: 1})
	bus.Publish(events.TurnEnded{Turn: 2})
	assert.Equal(t, []int{1, 2}, got)
}

func TestNestedPublishIsQueued(t *testing.T) {
	bus := events.NewBus()
	var order []string

	bus.Subscribe(events.KindTurnEnded, func(events.Message) {
		order = append(order, "economy:start")
		bus.Publish(events.EconomicTick{Regions: 1})
		order = append(order, "economy:end")
	})
	bus.Subscribe(events.KindTurnEnded, func(events.Message) {
		order = append(order, "second turn handler")
	})
	bus.Subscribe(events.KindEconomicTick, func(events.Message) {
		order = append(order, "nations")
	})

	bus.Publish(events.TurnEnded{Turn: 1})
	assert.Equal(t, []string{"economy:start", "economy:end", "second turn handler", "nations"}, order)
}

func TestUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	calls := 0
	sub := bus.Subscribe(events.KindRegionsAssignedToNations, func(events.Message) { calls++ })

	bus.Publish(events.RegionsAssignedToNations{})
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Publish(events.RegionsAssignedToNations{})
	assert.Equal(t, 1, calls)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := events.NewBus()
	reached := false
	bus.Subscribe(events.KindNationStatisticsUpdated, func(events.Message) { panic("boom") })
	bus.Subscribe(events.KindNationStatisticsUpdated, func(events.Message) { reached = true })

	assert.NotPanics(t, func() { bus.Publish(events.NationStatisticsUpdated{Turn: 3}) })
	assert.True(t, reached)

	// The bus is usable afterwards.
	reached = false
	bus.Publish(events.NationStatisticsUpdated{Turn: 4})
	assert.True(t, reached)
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "RegionNationChanged", events.RegionNationChanged{}.Kind().String())
	assert.Equal(t, "Kind(99)", events.Kind(99).String())
}
