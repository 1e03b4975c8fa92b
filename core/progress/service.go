package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/storage/docstore"
)

const Collection = "studentProgress"

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

func (svc *Service) Get(ctx context.Context, studentID string) (Progress, error) {
	doc, err := svc.store.GetDocument(ctx, Collection, studentID)
	if err != nil {
		return Progress{}, err
	}
	return Decode(doc), nil
}

// Ensure returns the student's progress record, creating an empty one on
// first access.
func (svc *Service) Ensure(ctx context.Context, studentID, studentName string) (Progress, error) {
	p, err := svc.Get(ctx, studentID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Progress{}, err
	}

	p = Progress{StudentID: studentID, StudentName: studentName, CompletedLessons: []string{}}
	data := map[string]interface{}{
		"studentName":      studentName,
		"completedLessons": []interface{}{},
	}
	if err := svc.store.SetDocument(ctx, Collection, studentID, data, false); err != nil {
		return Progress{}, errors.Wrap(err, "creating progress record")
	}
	return p, nil
}

// MarkComplete records a completed lesson. It reports false without
// writing when the lesson is already in the completed set. The write is
// an additive set-union, never a read-modify-write of the whole set, so
// concurrent sessions cannot erase each other's completions.
func (svc *Service) MarkComplete(ctx context.Context, studentID, lessonID string) (bool, error) {
	p, err := svc.Get(ctx, studentID)
	if err != nil {
		return false, err
	}
	if p.Completed(lessonID) {
		return false, nil
	}
	err = svc.store.UpdateFields(ctx, Collection, studentID, []docstore.Update{
		{FieldPath: []string{"completedLessons"}, Value: docstore.ArrayUnion(lessonID)},
	})
	return err == nil, errors.Wrap(err, "marking lesson complete")
}

func (svc *Service) Delete(ctx context.Context, studentID string) error {
	return svc.store.DeleteDocument(ctx, Collection, studentID)
}

// Watch subscribes to one student's progress document.
func (svc *Service) Watch(ctx context.Context, studentID string) (docstore.Subscription, error) {
	return svc.store.WatchDocument(ctx, Collection, studentID)
}

// WatchAll subscribes to the whole progress collection (teacher overview).
func (svc *Service) WatchAll(ctx context.Context) (docstore.Subscription, error) {
	return svc.store.Query(ctx, Collection, nil, nil)
}

// All returns every student's progress, keyed by student id.
func (svc *Service) All(ctx context.Context) (map[string]Progress, error) {
	docs, err := svc.store.ListCollection(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Progress, len(docs))
	for _, d := range docs {
		out[d.ID] = Decode(d)
	}
	return out, nil
}
