package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_StateSnapshot(t *testing.T) {
	m := NewMonitor(Offline)
	assert.Equal(t, Offline, m.State())

	m.Set(Online)
	assert.Equal(t, Online, m.State())
}

func TestMonitor_SubscribeImmediateAndTransitions(t *testing.T) {
	m := NewMonitor(Offline)

	var got []State
	unsubscribe := m.Subscribe(func(s State) { got = append(got, s) })

	m.Set(Online)
	m.Set(Online) // duplicate, must not notify
	m.Set(Offline)

	unsubscribe()
	m.Set(Online) // after unsubscribe, must not notify

	assert.Equal(t, []State{Offline, Online, Offline}, got)
}

func TestMonitor_WaitForOnline_ImmediateWhenOnline(t *testing.T) {
	m := NewMonitor(Online)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitForOnline(ctx))
}

func TestMonitor_WaitForOnline_UnblocksOnTransition(t *testing.T) {
	m := NewMonitor(Offline)

	done := make(chan error, 1)
	go func() {
		done <- m.WaitForOnline(context.Background())
	}()

	// Give the waiter a moment to block, then flip the state.
	time.Sleep(10 * time.Millisecond)
	m.Set(Online)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForOnline did not unblock on transition to online")
	}
}

func TestMonitor_WaitForOnline_ContextCancelled(t *testing.T) {
	m := NewMonitor(Offline)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.WaitForOnline(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMonitor_OfflineAgainRearmsWait(t *testing.T) {
	m := NewMonitor(Online)
	m.Set(Offline)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, m.WaitForOnline(ctx), "must block again after going offline")
}
