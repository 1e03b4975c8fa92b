// Package dummystore is an in-memory docstore.Store used by tests and
// local development. It honors the contract's subscription semantics:
// full-snapshot deliveries, coalescing of rapid updates, and an index
// toggle to exercise the ErrIndexNotReady path.
package dummystore

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maharatedu/platform/storage/docstore"
)

type Store struct {
	mu         sync.RWMutex
	tables     map[string]map[string]map[string]interface{}
	subs       []*subscription
	notReady   map[string]bool // collection -> composite index still building
	clock      time.Time
	clockSteps int
}

var _ docstore.Store = (*Store)(nil) // interface compliance check

func Open() *Store {
	return &Store{
		tables:   make(map[string]map[string]map[string]interface{}),
		notReady: make(map[string]bool),
		clock:    time.Now().UTC(),
	}
}

// SetIndexBuilding toggles the simulated index-building condition for
// filtered+ordered queries against the collection.
func (s *Store) SetIndexBuilding(collection string, building bool) {
	s.mu.Lock()
	s.notReady[collection] = building
	subs := s.matchingSubs(collection)
	s.mu.Unlock()

	if building {
		for _, sub := range subs {
			if sub.isQuery() {
				sub.fail(docstore.ErrIndexNotReady)
			}
		}
	}
}

func (s *Store) table(collection string) map[string]map[string]interface{} {
	tbl, ok := s.tables[collection]
	if !ok {
		tbl = make(map[string]map[string]interface{})
		s.tables[collection] = tbl
	}
	return tbl
}

func (s *Store) now() time.Time {
	s.clockSteps++
	return s.clock.Add(time.Duration(s.clockSteps) * time.Millisecond)
}

func (s *Store) GetDocument(_ context.Context, collection, id string) (docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if data, ok := s.tables[collection][id]; ok {
		return docstore.Doc{ID: id, Data: deepCopy(data)}, nil
	}
	return docstore.Doc{}, docstore.ErrNotFound
}

func (s *Store) ListCollection(_ context.Context, collection string) ([]docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(collection, nil, nil), nil
}

func (s *Store) QueryOnce(_ context.Context, collection string, filters []docstore.Filter, orders []docstore.Order) ([]docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.indexBuilding(collection, filters, orders) {
		return nil, docstore.ErrIndexNotReady
	}
	return s.snapshot(collection, filters, orders), nil
}

func (s *Store) SetDocument(_ context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	s.mu.Lock()
	tbl := s.table(collection)
	if existing, ok := tbl[id]; ok && merge {
		for k, v := range data {
			existing[k] = s.resolve(v, existing[k])
		}
	} else {
		fresh := make(map[string]interface{}, len(data))
		for k, v := range data {
			fresh[k] = s.resolve(v, nil)
		}
		tbl[id] = fresh
	}
	s.notifyLocked(collection)
	return nil
}

func (s *Store) AddDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return id, s.SetDocument(ctx, collection, id, data, false)
}

func (s *Store) UpdateFields(_ context.Context, collection, id string, updates []docstore.Update) error {
	s.mu.Lock()
	data, ok := s.table(collection)[id]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	for _, u := range updates {
		setPath(data, u.FieldPath, s.resolve(u.Value, getPath(data, u.FieldPath)))
	}
	s.notifyLocked(collection)
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.table(collection), id)
	s.notifyLocked(collection)
	return nil
}

func (s *Store) Query(_ context.Context, collection string, filters []docstore.Filter, orders []docstore.Order) (docstore.Subscription, error) {
	s.mu.Lock()
	if s.indexBuilding(collection, filters, orders) {
		s.mu.Unlock()
		return nil, docstore.ErrIndexNotReady
	}
	sub := newSubscription(s, collection, filters, orders, false)
	s.subs = append(s.subs, sub)
	seq := sub.nextSeqLocked()
	snap := s.snapshot(collection, filters, orders)
	s.mu.Unlock()
	sub.push(seq, snap)
	return sub, nil
}

func (s *Store) WatchDocument(_ context.Context, collection, id string) (docstore.Subscription, error) {
	s.mu.Lock()
	sub := newSubscription(s, collection, nil, nil, true)
	sub.docID = id
	s.subs = append(s.subs, sub)
	seq := sub.nextSeqLocked()
	snap := s.docSnapshot(collection, id)
	s.mu.Unlock()
	sub.push(seq, snap)
	return sub, nil
}

func (s *Store) Batch() docstore.Batch { return &batch{store: s} }

func (s *Store) Close() error {
	s.mu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}

// locked helpers

func (s *Store) indexBuilding(collection string, filters []docstore.Filter, orders []docstore.Order) bool {
	return s.notReady[collection] && len(filters) > 0 && len(orders) > 0
}

func (s *Store) snapshot(collection string, filters []docstore.Filter, orders []docstore.Order) []docstore.Doc {
	docs := make([]docstore.Doc, 0)
	for id, data := range s.tables[collection] {
		if matches(data, filters) {
			docs = append(docs, docstore.Doc{ID: id, Data: deepCopy(data)})
		}
	}
	// store-assigned document order keeps snapshots stable for equal keys
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	for k := len(orders) - 1; k >= 0; k-- {
		ord := orders[k]
		sort.SliceStable(docs, func(i, j int) bool {
			less := compare(docs[i].Data[ord.Path], docs[j].Data[ord.Path]) < 0
			if ord.Desc {
				return !less
			}
			return less
		})
	}
	return docs
}

func (s *Store) docSnapshot(collection, id string) []docstore.Doc {
	if data, ok := s.tables[collection][id]; ok {
		return []docstore.Doc{{ID: id, Data: deepCopy(data)}}
	}
	return []docstore.Doc{}
}

func (s *Store) matchingSubs(collection string) []*subscription {
	out := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

// notifyLocked is called with s.mu held; it releases the lock before
// delivering snapshots so a slow consumer cannot block writers. The
// sequence numbers taken under the lock keep deliveries from concurrent
// writers in write order: a late push of an older snapshot is dropped.
func (s *Store) notifyLocked(collection string) {
	subs := s.matchingSubs(collection)
	snaps := make([][]docstore.Doc, len(subs))
	seqs := make([]uint64, len(subs))
	for i, sub := range subs {
		seqs[i] = sub.nextSeqLocked()
		if sub.single {
			snaps[i] = s.docSnapshot(collection, sub.docID)
		} else {
			snaps[i] = s.snapshot(collection, sub.filters, sub.orders)
		}
	}
	s.mu.Unlock()

	for i, sub := range subs {
		sub.push(seqs[i], snaps[i])
	}
}

func (s *Store) dropSub(target *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == target {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// resolve replaces write sentinels with their effective values.
func (s *Store) resolve(v, existing interface{}) interface{} {
	switch op := v.(type) {
	case docstore.TimestampSentinel:
		return s.now()
	case docstore.UnionOp:
		current, _ := existing.([]interface{})
		out := make([]interface{}, len(current))
		copy(out, current)
		for _, e := range op.Elems {
			if !contains(out, e) {
				out = append(out, e)
			}
		}
		return out
	default:
		return deepCopyValue(v)
	}
}

type subscription struct {
	store      *Store
	collection string
	docID      string
	single     bool
	filters    []docstore.Filter
	orders     []docstore.Order

	seq uint64 // last assigned delivery sequence; guarded by store.mu

	mu        sync.Mutex
	ch        chan []docstore.Doc
	delivered uint64 // highest sequence pushed so far
	closed    bool
	err       error
}

var _ docstore.Subscription = (*subscription)(nil)

func newSubscription(s *Store, collection string, filters []docstore.Filter, orders []docstore.Order, single bool) *subscription {
	return &subscription{
		store:      s,
		collection: collection,
		single:     single,
		filters:    filters,
		orders:     orders,
		ch:         make(chan []docstore.Doc, 1),
	}
}

func (sub *subscription) isQuery() bool { return !sub.single && len(sub.filters) > 0 }

// nextSeqLocked assigns the delivery sequence for a snapshot about to be
// computed; the caller holds store.mu.
func (sub *subscription) nextSeqLocked() uint64 {
	sub.seq++
	return sub.seq
}

func (sub *subscription) Updates() <-chan []docstore.Doc { return sub.ch }

func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *subscription) Unsubscribe() {
	sub.store.dropSub(sub)
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

func (sub *subscription) fail(err error) {
	sub.store.dropSub(sub)
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		sub.err = err
		close(sub.ch)
	}
}

// push coalesces: an undelivered pending snapshot is replaced by the
// latest. A snapshot arriving after a higher-sequence one has already
// been pushed is stale and dropped, so the subscriber's view never moves
// backwards.
func (sub *subscription) push(seq uint64, docs []docstore.Doc) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed || seq <= sub.delivered {
		return
	}
	sub.delivered = seq
	select {
	case sub.ch <- docs:
	default:
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- docs
	}
}

type batch struct {
	store *Store
	ops   []func()
}

var _ docstore.Batch = (*batch)(nil)

func (b *batch) Set(collection, id string, data map[string]interface{}) {
	b.ops = append(b.ops, func() {
		tbl := b.store.table(collection)
		fresh := make(map[string]interface{}, len(data))
		for k, v := range data {
			fresh[k] = b.store.resolve(v, nil)
		}
		tbl[id] = fresh
	})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, func() { delete(b.store.table(collection), id) })
}

// Commit applies all accumulated writes under a single lock; concurrent
// readers never observe a partially applied batch.
func (b *batch) Commit(_ context.Context) error {
	b.store.mu.Lock()
	for _, op := range b.ops {
		op()
	}
	subs := make([]*subscription, len(b.store.subs))
	copy(subs, b.store.subs)
	snaps := make([][]docstore.Doc, len(subs))
	seqs := make([]uint64, len(subs))
	for i, sub := range subs {
		seqs[i] = sub.nextSeqLocked()
		if sub.single {
			snaps[i] = b.store.docSnapshot(sub.collection, sub.docID)
		} else {
			snaps[i] = b.store.snapshot(sub.collection, sub.filters, sub.orders)
		}
	}
	b.store.mu.Unlock()

	for i, sub := range subs {
		sub.push(seqs[i], snaps[i])
	}
	b.ops = nil
	return nil
}

// value helpers

func matches(data map[string]interface{}, filters []docstore.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case "==":
			if !reflect.DeepEqual(data[f.Path], f.Value) {
				return false
			}
		case "array-contains":
			if !contains(toSlice(data[f.Path]), f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func toSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	}
	return nil
}

func contains(s []interface{}, v interface{}) bool {
	for _, e := range s {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return int(av - bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	return 0
}

func getPath(data map[string]interface{}, path []string) interface{} {
	for i, key := range path {
		if i == len(path)-1 {
			return data[key]
		}
		next, ok := data[key].(map[string]interface{})
		if !ok {
			return nil
		}
		data = next
	}
	return nil
}

func setPath(data map[string]interface{}, path []string, v interface{}) {
	for i, key := range path {
		if i == len(path)-1 {
			data[key] = v
			return
		}
		next, ok := data[key].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			data[key] = next
		}
		data = next
	}
}

func deepCopy(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopy(val)
	case map[string]bool:
		out := make(map[string]bool, len(val))
		for k, b := range val {
			out[k] = b
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
