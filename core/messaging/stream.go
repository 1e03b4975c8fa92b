package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/storage/docstore"
)

// Stream states.
type State int

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateActive
	// StateDegraded means the live query cannot be established because the
	// store's composite index is still building; the stream keeps serving
	// its last snapshot and retries on a fixed interval.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	}
	return "unsubscribed"
}

// Stream is a live, owned view of all messages a user participates in,
// ordered by ascending server timestamp. It delivers full result-set
// snapshots, never deltas, and survives index building by retrying until
// the subscription establishes. It terminates only on Unsubscribe, on
// context cancellation, or on a non-transient store error.
type Stream struct {
	store  docstore.Store
	userID string
	retry  time.Duration
	logger core.Logger

	mu    sync.RWMutex
	state State
	msgs  []Message
	err   error

	updates  chan []Message
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Subscribe opens a message stream for the user. The returned Stream must
// be released with Unsubscribe on every exit path of its owner.
func (svc *Service) Subscribe(ctx context.Context, userID string, logger core.Logger) *Stream {
	s := &Stream{
		store:   svc.store,
		userID:  userID,
		retry:   core.Conf.Messaging.IndexRetryInterval,
		logger:  logger,
		updates: make(chan []Message, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Updates delivers message snapshots; closed when the stream terminates.
// A snapshot not yet received by then is discarded, so the first receive
// after Unsubscribe observes the close.
func (s *Stream) Updates() <-chan []Message { return s.updates }

func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Messages returns the latest delivered snapshot.
func (s *Stream) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Unread counts the user's unread messages in the latest snapshot.
func (s *Stream) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return UnreadCount(s.userID, s.msgs)
}

// Err reports why the stream terminated; nil after a plain Unsubscribe.
func (s *Stream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Unsubscribe releases the live query and waits for the stream to wind down.
func (s *Stream) Unsubscribe() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		// a snapshot still sitting in the buffer is dropped: nothing is
		// delivered once the stream winds down
		select {
		case <-s.updates:
		default:
		}
		close(s.updates)
	}()
	defer s.setState(StateUnsubscribed)

	for {
		s.setState(StateSubscribing)
		sub, err := s.store.Query(ctx, Collection, participantFilters(s.userID), timestampOrder())
		if err != nil {
			if !errors.Is(err, docstore.ErrIndexNotReady) {
				s.fail(err)
				return
			}
			if !s.waitRetry(ctx) {
				return
			}
			continue
		}

		s.setState(StateActive)
		retry, alive := s.consume(ctx, sub)
		if !alive {
			return
		}
		if retry && !s.waitRetry(ctx) {
			return
		}
	}
}

// consume pumps snapshots until the subscription ends. It reports whether
// the stream should re-establish the query (index building) and whether
// it is still alive at all.
func (s *Stream) consume(ctx context.Context, sub docstore.Subscription) (retry, alive bool) {
	for {
		select {
		case docs, ok := <-sub.Updates():
			if !ok {
				err := sub.Err()
				if errors.Is(err, docstore.ErrIndexNotReady) {
					return true, true
				}
				if err != nil {
					s.fail(err)
				}
				return false, false
			}
			s.publish(decodeAll(docs))
		case <-s.stop:
			sub.Unsubscribe()
			return false, false
		case <-ctx.Done():
			sub.Unsubscribe()
			return false, false
		}
	}
}

// waitRetry parks a degraded stream until the next establishment attempt.
// Infinite retry is intentional: index creation is a one-time eventual event.
func (s *Stream) waitRetry(ctx context.Context) bool {
	s.setState(StateDegraded)
	if s.logger != nil {
		s.logger.Warn("message stream degraded: store index still building; retrying in " + s.retry.String())
	}
	t := time.NewTimer(s.retry)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Error("message stream terminated", err)
	}
}

// publish stores the snapshot and forwards it, coalescing when the
// consumer lags: an undelivered pending snapshot is replaced by the latest.
func (s *Stream) publish(msgs []Message) {
	s.mu.Lock()
	s.msgs = msgs
	s.mu.Unlock()

	select {
	case s.updates <- msgs:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- msgs
	}
}
