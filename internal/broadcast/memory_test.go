package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"classtrack/internal/broadcast"
)

func mustEvent(t *testing.T, name string) broadcast.Event {
	t.Helper()
	evt, err := broadcast.NewEvent(name, map[string]string{"k": "v"})
	require.NoError(t, err)
	return evt
}

func recv(t *testing.T, ch <-chan broadcast.Event) broadcast.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return broadcast.Event{}
	}
}

func TestMemoryFanOut(t *testing.T) {
	ctx := context.Background()
	m := broadcast.NewMemory()

	ch1, cancel1, err := m.Subscribe(ctx, "session-1")
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := m.Subscribe(ctx, "session-1")
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, m.Publish(ctx, "session-1", mustEvent(t, broadcast.EventCredentialIssued)))

	for _, ch := range []<-chan broadcast.Event{ch1, ch2} {
		evt := recv(t, ch)
		require.Equal(t, broadcast.EventCredentialIssued, evt.Name)
		require.Equal(t, "session-1", evt.Channel)
	}
}

func TestMemoryChannelIsolation(t *testing.T) {
	ctx := context.Background()
	m := broadcast.NewMemory()

	other, cancel, err := m.Subscribe(ctx, "session-2")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, m.Publish(ctx, "session-1", mustEvent(t, broadcast.EventAttendanceCommitted)))

	select {
	case evt := <-other:
		t.Fatalf("subscriber of another channel received %q", evt.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	m := broadcast.NewMemory()

	ch, cancel, err := m.Subscribe(ctx, "session-1")
	require.NoError(t, err)
	cancel()

	// Publish after cancel must not panic and must not deliver.
	require.NoError(t, m.Publish(ctx, "session-1", mustEvent(t, broadcast.EventCredentialIssued)))

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after cancel")
}

func TestMemoryNoReplayForLateSubscriber(t *testing.T) {
	ctx := context.Background()
	m := broadcast.NewMemory()

	require.NoError(t, m.Publish(ctx, "session-1", mustEvent(t, broadcast.EventCredentialIssued)))

	ch, cancel, err := m.Subscribe(ctx, "session-1")
	require.NoError(t, err)
	defer cancel()

	select {
	case evt := <-ch:
		t.Fatalf("late subscriber received replayed event %q", evt.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemorySlowSubscriberDoesNotBlockPublish(t *testing.T) {
	ctx := context.Background()
	m := broadcast.NewMemory()

	_, cancel, err := m.Subscribe(ctx, "session-1")
	require.NoError(t, err)
	defer cancel()

	evt := mustEvent(t, broadcast.EventAttendanceCommitted)
	done := make(chan struct{})
	go func() {
		// Far more events than the subscriber buffer holds; nobody reads.
		for i := 0; i < 100; i++ {
			_ = m.Publish(ctx, "session-1", evt)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
