// Package docstore abstracts the hosted document database: point reads,
// collection scans, partial updates, atomic batches and live query
// subscriptions with filter/sort.
package docstore

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrIndexNotReady signals that the composite index required by a
	// filtered+ordered query is still building. It is transient: callers
	// are expected to retry subscription establishment.
	ErrIndexNotReady = errors.New("store index is still building")
	ErrUnavailable   = errors.New("store unavailable")
)

type (
	// Doc is a raw document as stored: an id plus loosely typed fields.
	Doc struct {
		ID   string
		Data map[string]interface{}
	}

	// Filter is a single field predicate; Op is one of "==", "array-contains".
	Filter struct {
		Path  string
		Op    string
		Value interface{}
	}

	Order struct {
		Path string
		Desc bool
	}

	// Update targets one field (possibly nested, via FieldPath) of a document.
	Update struct {
		FieldPath []string
		Value     interface{}
	}

	// Subscription is a live query handle. Updates delivers the full,
	// current result set after every matching change (snapshots, not
	// deltas); rapid successive changes may be coalesced into a single
	// delivery carrying only the latest state. The channel is closed on
	// error or Unsubscribe; Err reports why.
	Subscription interface {
		Updates() <-chan []Doc
		// Err is valid once Updates is closed; nil means Unsubscribe was called.
		Err() error
		Unsubscribe()
	}

	// Batch accumulates writes committed atomically: all succeed or none do.
	Batch interface {
		Set(collection, id string, data map[string]interface{})
		Delete(collection, id string)
		Commit(ctx context.Context) error
	}

	Store interface {
		GetDocument(ctx context.Context, collection, id string) (Doc, error)
		ListCollection(ctx context.Context, collection string) ([]Doc, error)
		// QueryOnce runs a filtered, ordered one-shot query.
		QueryOnce(ctx context.Context, collection string, filters []Filter, orders []Order) ([]Doc, error)
		// SetDocument creates or replaces a document; with merge, provided
		// fields are merged into the existing document instead.
		SetDocument(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error
		// AddDocument creates a document with a store-assigned id.
		AddDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error)
		UpdateFields(ctx context.Context, collection, id string, updates []Update) error
		DeleteDocument(ctx context.Context, collection, id string) error
		// Query opens a live subscription; establishment may fail with
		// ErrIndexNotReady either synchronously or via Subscription.Err.
		Query(ctx context.Context, collection string, filters []Filter, orders []Order) (Subscription, error)
		// WatchDocument opens a live subscription on a single document;
		// snapshots carry zero docs while the document does not exist.
		WatchDocument(ctx context.Context, collection, id string) (Subscription, error)
		Batch() Batch
		Close() error
	}
)

// TimestampSentinel marks a field to be assigned the server-side write time.
type TimestampSentinel struct{}

var ServerTimestamp = TimestampSentinel{}

// UnionOp is the additive set-union sentinel for field updates: listed
// elements are appended unless already present. Used instead of
// read-modify-write so concurrent writers cannot lose updates.
type UnionOp struct{ Elems []interface{} }

func ArrayUnion(elems ...interface{}) interface{} {
	return UnionOp{Elems: elems}
}
