package lesson

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/storage/docstore"
)

const Collection = "lessons"

var ErrNotFound = errors.New("lesson not found")

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

func (svc *Service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	l := Lesson{
		LessonNumber: nl.LessonNumber,
		Title:        nl.Title,
		VideoURL:     nl.VideoURL,
		PDFURL:       nl.PDFURL,
		QuizURL:      nl.QuizURL,
		CreatedAt:    time.Now().UTC(),
	}
	id, err := svc.store.AddDocument(ctx, Collection, encode(l))
	if err != nil {
		return Lesson{}, errors.Wrap(err, "saving lesson")
	}
	l.ID = id
	return l, nil
}

func (svc *Service) Update(ctx context.Context, id string, nl NewLesson) (Lesson, error) {
	l, err := svc.Get(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	l.LessonNumber = nl.LessonNumber
	l.Title = nl.Title
	l.VideoURL = nl.VideoURL
	l.PDFURL = nl.PDFURL
	l.QuizURL = nl.QuizURL
	l.UpdatedAt = time.Now().UTC()

	data := encode(l)
	data["updatedAt"] = l.UpdatedAt
	if err := svc.store.SetDocument(ctx, Collection, id, data, true /* merge */); err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return l, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Lesson, error) {
	doc, err := svc.store.GetDocument(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Lesson{}, ErrNotFound
		}
		return Lesson{}, err
	}
	return Decode(doc), nil
}

// List returns all lessons in display order (ascending lesson number).
func (svc *Service) List(ctx context.Context) ([]Lesson, error) {
	docs, err := svc.store.ListCollection(ctx, Collection)
	if err != nil {
		return nil, err
	}
	lessons := make([]Lesson, 0, len(docs))
	for _, d := range docs {
		lessons = append(lessons, Decode(d))
	}
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].LessonNumber < lessons[j].LessonNumber })
	return lessons, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return errors.Wrap(svc.store.DeleteDocument(ctx, Collection, id), "deleting lesson")
}

func encode(l Lesson) map[string]interface{} {
	return map[string]interface{}{
		"lessonNumber": l.LessonNumber,
		"title":        l.Title,
		"videoUrl":     l.VideoURL,
		"pdfUrl":       l.PDFURL,
		"quizUrl":      l.QuizURL,
		"createdAt":    l.CreatedAt,
	}
}

// Decode maps a raw lesson document onto a Lesson.
func Decode(d docstore.Doc) Lesson {
	return Lesson{
		ID:           d.ID,
		LessonNumber: docstore.Int(d.Data, "lessonNumber"),
		Title:        docstore.String(d.Data, "title"),
		VideoURL:     docstore.String(d.Data, "videoUrl"),
		PDFURL:       docstore.String(d.Data, "pdfUrl"),
		QuizURL:      docstore.String(d.Data, "quizUrl"),
		CreatedAt:    docstore.Time(d.Data, "createdAt"),
		UpdatedAt:    docstore.Time(d.Data, "updatedAt"),
	}
}
