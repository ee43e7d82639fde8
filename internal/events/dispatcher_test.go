package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcherReportsHandlerErrors(t *testing.T) {
	var failures []error
	d := NewInMemoryDispatcher(func(_ Event, err error) { failures = append(failures, err) })

	var calls int
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls++
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}))
	assert.Equal(t, 2, calls)
	require.Len(t, failures, 1)
	assert.EqualError(t, failures[0], "smtp down")
}

func TestAsyncDispatcherDeliversAndDrains(t *testing.T) {
	d := NewAsyncDispatcher(2, 16, nil, nil)
	var got atomic.Int32
	d.Subscribe(EventCleaningApproved, func(context.Context, Event) error {
		got.Add(1)
		return nil
	})
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventCleaningApproved}))
	}
	d.Close()
	assert.Equal(t, int32(10), got.Load())
}

func TestAsyncDispatcherPublishNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var dropped int
	d := NewAsyncDispatcher(1, 1, nil, func(_ Event, err error) {
		if errors.Is(err, ErrQueueFull) {
			mu.Lock()
			dropped++
			mu.Unlock()
		}
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		<-release
		return nil
	})
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = d.Publish(context.Background(), Event{Type: EventTicketCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a saturated queue")
	}
	close(release)
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, dropped, 3)
}

func TestAsyncDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewAsyncDispatcher(1, 4, nil, nil)
	var after atomic.Bool
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error { panic("boom") })
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		after.Store(true)
		return nil
	})
	d.Start(context.Background())
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}))
	d.Close()
	assert.True(t, after.Load())
}

func TestPublishAfterCloseFails(t *testing.T) {
	d := NewAsyncDispatcher(1, 1, nil, nil)
	d.Start(context.Background())
	d.Close()
	assert.ErrorIs(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}), ErrQueueFull)
}
