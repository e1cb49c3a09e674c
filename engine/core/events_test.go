package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventBusFireStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first, second := "first", "second"
	require.True(t, bus.Register(EVENT_CODE_RESIZED, &first, func(ctx EventContext) bool {
		calls = append(calls, first)
		se := ctx.Data.(*SystemEvent)
		return se.WindowWidth == 0
	}))
	require.True(t, bus.Register(EVENT_CODE_RESIZED, &second, func(ctx EventContext) bool {
		calls = append(calls, second)
		return true
	}))
	require.False(t, bus.Register(EVENT_CODE_RESIZED, &first, func(EventContext) bool { return false }))

	require.True(t, bus.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 640, WindowHeight: 480}}))
	require.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	require.True(t, bus.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{}}))
	require.Equal(t, []string{"first"}, calls)

	require.False(t, bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
}

func TestEventBusUnregister(t *testing.T) {
	bus := NewEventBus()
	listener := struct{ name string }{"quit"}
	fired := 0
	bus.Register(EVENT_CODE_APPLICATION_QUIT, &listener, func(EventContext) bool {
		fired++
		return true
	})
	require.True(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, &listener))
	require.False(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, &listener))
	bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
	require.Zero(t, fired)
}

func TestMetricsRollsOncePerSecond(t *testing.T) {
	m := NewMetrics()
	rolled := 0
	for i := 0; i < 100; i++ {
		if m.Update(1.0 / 60.0) {
			rolled++
		}
	}
	require.Equal(t, 1, rolled)
	require.InDelta(t, 60, m.FPS(), 1)
	require.InDelta(t, 1000.0/60.0, m.FrameTime(), 0.01)
}
