package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/storage/docstore"
	dummystore "github.com/maharatedu/platform/storage/docstore/dummy"
)

func fastRetry(t *testing.T) {
	t.Helper()
	prev := core.Conf.Messaging.IndexRetryInterval
	core.Conf.Messaging.IndexRetryInterval = 10 * time.Millisecond
	t.Cleanup(func() { core.Conf.Messaging.IndexRetryInterval = prev })
}

func waitForState(t *testing.T, s *Stream, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want },
		2*time.Second, 5*time.Millisecond, "stream never reached state %v", want)
}

func TestStream_deliversLiveSnapshots(t *testing.T) {
	fastRetry(t)
	ctx := context.Background()
	store := dummystore.Open()
	defer store.Close()
	svc := NewService(store, nil, nil)

	stream := svc.Subscribe(ctx, "teacher1", nil)
	defer stream.Unsubscribe()
	waitForState(t, stream, StateActive)

	msgs := <-stream.Updates()
	assert.Empty(t, msgs)

	_, err := svc.Send(ctx, "s1", "teacher1", "hi")
	require.NoError(t, err)

	select {
	case msgs = <-stream.Updates():
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Body)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after send")
	}
	assert.Equal(t, 1, stream.Unread())
	assert.Len(t, stream.Messages(), 1)
}

func TestStream_degradesWhileIndexBuilds(t *testing.T) {
	fastRetry(t)
	ctx := context.Background()
	store := dummystore.Open()
	defer store.Close()
	svc := NewService(store, nil, nil)

	store.SetIndexBuilding(Collection, true)

	stream := svc.Subscribe(ctx, "teacher1", nil)
	defer stream.Unsubscribe()
	waitForState(t, stream, StateDegraded)

	// writes made while degraded appear once the index is ready
	_, err := svc.Send(ctx, "s1", "teacher1", "queued")
	require.NoError(t, err)

	store.SetIndexBuilding(Collection, false)
	waitForState(t, stream, StateActive)

	select {
	case msgs := <-stream.Updates():
		require.Len(t, msgs, 1)
		assert.Equal(t, "queued", msgs[0].Body)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after index became ready")
	}
}

func TestStream_reestablishesAfterMidStreamIndexFailure(t *testing.T) {
	fastRetry(t)
	ctx := context.Background()
	store := dummystore.Open()
	defer store.Close()
	svc := NewService(store, nil, nil)

	stream := svc.Subscribe(ctx, "teacher1", nil)
	defer stream.Unsubscribe()
	waitForState(t, stream, StateActive)
	<-stream.Updates()

	// tearing the live query down mid-flight degrades, then recovers
	store.SetIndexBuilding(Collection, true)
	waitForState(t, stream, StateDegraded)

	store.SetIndexBuilding(Collection, false)
	waitForState(t, stream, StateActive)
	assert.NoError(t, stream.Err())
}

func TestStream_unsubscribe(t *testing.T) {
	fastRetry(t)
	ctx := context.Background()
	store := dummystore.Open()
	defer store.Close()
	svc := NewService(store, nil, nil)

	stream := svc.Subscribe(ctx, "teacher1", nil)
	waitForState(t, stream, StateActive)

	stream.Unsubscribe()
	stream.Unsubscribe() // idempotent

	_, ok := <-stream.Updates()
	assert.False(t, ok)
	assert.NoError(t, stream.Err())
	assert.Equal(t, StateUnsubscribed, stream.State())
}

// brokenStore fails live queries with a non-transient error.
type brokenStore struct {
	*dummystore.Store
}

func (s *brokenStore) Query(context.Context, string, []docstore.Filter, []docstore.Order) (docstore.Subscription, error) {
	return nil, errors.New("boom")
}

func TestStream_terminatesOnFatalError(t *testing.T) {
	fastRetry(t)
	ctx := context.Background()
	store := &brokenStore{Store: dummystore.Open()}
	defer store.Close()
	svc := NewService(store, nil, nil)

	stream := svc.Subscribe(ctx, "teacher1", nil)

	_, ok := <-stream.Updates()
	assert.False(t, ok)
	assert.EqualError(t, stream.Err(), "boom")

	stream.Unsubscribe() // already terminated; must not hang
}

func TestStream_contextCancellation(t *testing.T) {
	fastRetry(t)
	ctx, cancel := context.WithCancel(context.Background())
	store := dummystore.Open()
	defer store.Close()
	svc := NewService(store, nil, nil)

	stream := svc.Subscribe(ctx, "teacher1", nil)
	waitForState(t, stream, StateActive)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream.Updates():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, stream.Err())
}
