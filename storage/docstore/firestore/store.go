// Package firestoredb implements docstore.Store on Google Cloud Firestore.
package firestoredb

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/storage/docstore"
)

type Store struct {
	client *firestore.Client
}

var _ docstore.Store = (*Store)(nil) // interface compliance check

func Open(ctx context.Context, conf core.FirebaseConfig) (*Store, error) {
	var opts []option.ClientOption
	if conf.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, conf.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to firestore")
	}
	return &Store{client: client}, nil
}

// mapErr maps Firestore failure codes onto the store contract's sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return docstore.ErrNotFound
	case codes.FailedPrecondition:
		return docstore.ErrIndexNotReady
	case codes.Unavailable:
		return docstore.ErrUnavailable
	}
	return err
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (docstore.Doc, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return docstore.Doc{}, mapErr(err)
	}
	if !snap.Exists() {
		return docstore.Doc{}, docstore.ErrNotFound
	}
	return docstore.Doc{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Store) ListCollection(ctx context.Context, collection string) ([]docstore.Doc, error) {
	return drain(s.client.Collection(collection).Documents(ctx))
}

func (s *Store) QueryOnce(ctx context.Context, collection string, filters []docstore.Filter, orders []docstore.Order) ([]docstore.Doc, error) {
	return drain(s.buildQuery(collection, filters, orders).Documents(ctx))
}

func (s *Store) SetDocument(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	ref := s.client.Collection(collection).Doc(id)
	var err error
	if merge {
		_, err = ref.Set(ctx, resolveMap(data), firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, resolveMap(data))
	}
	return mapErr(err)
}

func (s *Store) AddDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, resolveMap(data))
	if err != nil {
		return "", mapErr(err)
	}
	return ref.ID, nil
}

func (s *Store) UpdateFields(ctx context.Context, collection, id string, updates []docstore.Update) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{
			FieldPath: firestore.FieldPath(u.FieldPath),
			Value:     resolveValue(u.Value),
		})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, fsUpdates)
	return mapErr(err)
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return mapErr(err)
}

func (s *Store) Query(ctx context.Context, collection string, filters []docstore.Filter, orders []docstore.Order) (docstore.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan []docstore.Doc, 1),
		cancel: cancel,
	}
	go sub.run(s.buildQuery(collection, filters, orders).Snapshots(ctx))
	return sub, nil
}

func (s *Store) WatchDocument(ctx context.Context, collection, id string) (docstore.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan []docstore.Doc, 1),
		cancel: cancel,
	}
	go sub.runDoc(s.client.Collection(collection).Doc(id).Snapshots(ctx))
	return sub, nil
}

func (s *Store) Batch() docstore.Batch {
	return &batch{wb: s.client.Batch(), client: s.client}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) buildQuery(collection string, filters []docstore.Filter, orders []docstore.Order) firestore.Query {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Path, f.Op, f.Value)
	}
	for _, o := range orders {
		dir := firestore.Asc
		if o.Desc {
			dir = firestore.Desc
		}
		q = q.OrderBy(o.Path, dir)
	}
	return q
}

func drain(it *firestore.DocumentIterator) ([]docstore.Doc, error) {
	defer it.Stop()
	docs := make([]docstore.Doc, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, mapErr(err)
		}
		docs = append(docs, docstore.Doc{ID: snap.Ref.ID, Data: snap.Data()})
	}
}

// resolveMap swaps the contract's write sentinels for Firestore's.
func resolveMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = resolveValue(v)
	}
	return out
}

func resolveValue(v interface{}) interface{} {
	switch val := v.(type) {
	case docstore.TimestampSentinel:
		return firestore.ServerTimestamp
	case docstore.UnionOp:
		return firestore.ArrayUnion(val.Elems...)
	case map[string]interface{}:
		return resolveMap(val)
	default:
		return v
	}
}

type subscription struct {
	ch     chan []docstore.Doc
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

var _ docstore.Subscription = (*subscription)(nil)

func (sub *subscription) Updates() <-chan []docstore.Doc { return sub.ch }

func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *subscription) Unsubscribe() { sub.cancel() }

func (sub *subscription) finish(err error) {
	if err != nil && status.Code(err) != codes.Canceled {
		sub.mu.Lock()
		sub.err = mapErr(err)
		sub.mu.Unlock()
	}
	close(sub.ch)
}

func (sub *subscription) run(it *firestore.QuerySnapshotIterator) {
	defer it.Stop()
	for {
		qsnap, err := it.Next()
		if err != nil {
			sub.finish(err)
			return
		}
		docs, err := drain(qsnap.Documents)
		if err != nil {
			sub.finish(err)
			return
		}
		sub.push(docs)
	}
}

func (sub *subscription) runDoc(it *firestore.DocumentSnapshotIterator) {
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			sub.finish(err)
			return
		}
		if snap.Exists() {
			sub.push([]docstore.Doc{{ID: snap.Ref.ID, Data: snap.Data()}})
		} else {
			sub.push([]docstore.Doc{})
		}
	}
}

// push coalesces: an undelivered pending snapshot is replaced by the latest.
func (sub *subscription) push(docs []docstore.Doc) {
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
	client *firestore.Client
	wb     *firestore.WriteBatch
}

var _ docstore.Batch = (*batch)(nil)

func (b *batch) Set(collection, id string, data map[string]interface{}) {
	b.wb.Set(b.client.Collection(collection).Doc(id), resolveMap(data))
}

func (b *batch) Delete(collection, id string) {
	b.wb.Delete(b.client.Collection(collection).Doc(id))
}

func (b *batch) Commit(ctx context.Context) error {
	_, err := b.wb.Commit(ctx)
	return mapErr(err)
}
