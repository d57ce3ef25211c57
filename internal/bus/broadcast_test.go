package bus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gidterm/internal/bus"
)

func TestGidEventBroadcaster_FanOutToAllSubscribers(t *testing.T) {
	b := bus.NewGidEventBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	ev := bus.NewTaskStarted("t")
	b.Publish(ev)

	got1 := <-ch1
	got2 := <-ch2
	require.Equal(t, ev, got1)
	require.Equal(t, ev, got2)
}

func TestGidEventBroadcaster_PublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := bus.NewGidEventBroadcaster()
	_, unsub := b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(bus.NewTaskOutput("t", "line"))
		}
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // Publish must return even though nobody reads ch
	unsub()
}

func TestGidEventBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := bus.NewGidEventBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	_, ok := <-ch
	require.False(t, ok)
}

func TestGidEvent_ToJSONLine(t *testing.T) {
	ev := bus.NewTaskCompleted("t", 0)
	line, err := ev.ToJSONLine()
	require.NoError(t, err)
	require.Contains(t, line, `"type":"task_completed"`)
	require.Contains(t, line, "\n")
}
