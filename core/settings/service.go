package settings

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/storage/docstore"
)

const (
	Collection = "platformSettings"
	DocID      = "main"
)

var ErrLinkNotFound = errors.New("resource link not found")

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// Get returns the settings singleton, creating the default document on
// the first read-miss.
func (svc *Service) Get(ctx context.Context) (Settings, error) {
	doc, err := svc.store.GetDocument(ctx, Collection, DocID)
	if err == nil {
		return Decode(doc), nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Settings{}, err
	}

	def := Default()
	if err := svc.store.SetDocument(ctx, Collection, DocID, encode(def), false); err != nil {
		return Settings{}, errors.Wrap(err, "creating default settings")
	}
	return def, nil
}

// Update merges the scalar fields into the singleton document.
func (svc *Service) Update(ctx context.Context, us UpdateSettings) (Settings, error) {
	if _, err := svc.Get(ctx); err != nil { // ensure the document exists
		return Settings{}, err
	}
	data := make(map[string]interface{}, 3)
	if us.SiteName != "" {
		data["siteName"] = us.SiteName
	}
	if us.TeacherAIToolsURL != "" {
		data["teacherAiToolsUrl"] = us.TeacherAIToolsURL
	}
	if us.StudentAIToolsURL != "" {
		data["studentAiToolsUrl"] = us.StudentAIToolsURL
	}
	if len(data) > 0 {
		if err := svc.store.SetDocument(ctx, Collection, DocID, data, true /* merge */); err != nil {
			return Settings{}, errors.Wrap(err, "updating settings")
		}
	}
	return svc.Get(ctx)
}

// AddFinalExam appends a link to the final exams list and returns it with
// its assigned id.
func (svc *Service) AddFinalExam(ctx context.Context, link ResourceLink) (ResourceLink, error) {
	return svc.addLink(ctx, "finalExamsList", link)
}

func (svc *Service) RemoveFinalExam(ctx context.Context, linkID string) error {
	return svc.removeLink(ctx, "finalExamsList", linkID)
}

// AddMeetingRoom appends a link to the meeting rooms list and returns it
// with its assigned id.
func (svc *Service) AddMeetingRoom(ctx context.Context, link ResourceLink) (ResourceLink, error) {
	return svc.addLink(ctx, "meetingRoomsList", link)
}

func (svc *Service) RemoveMeetingRoom(ctx context.Context, linkID string) error {
	return svc.removeLink(ctx, "meetingRoomsList", linkID)
}

// Watch subscribes to the settings singleton document.
func (svc *Service) Watch(ctx context.Context) (docstore.Subscription, error) {
	return svc.store.WatchDocument(ctx, Collection, DocID)
}

func (svc *Service) addLink(ctx context.Context, field string, link ResourceLink) (ResourceLink, error) {
	if _, err := svc.Get(ctx); err != nil {
		return ResourceLink{}, err
	}
	link.ID = uuid.New().String()
	elem := map[string]interface{}{"id": link.ID, "name": link.Name, "url": link.URL}
	err := svc.store.UpdateFields(ctx, Collection, DocID, []docstore.Update{
		{FieldPath: []string{field}, Value: docstore.ArrayUnion(elem)},
	})
	if err != nil {
		return ResourceLink{}, errors.Wrap(err, "adding resource link")
	}
	return link, nil
}

func (svc *Service) removeLink(ctx context.Context, field string, linkID string) error {
	s, err := svc.Get(ctx)
	if err != nil {
		return err
	}
	var links []ResourceLink
	if field == "finalExamsList" {
		links = s.FinalExams
	} else {
		links = s.MeetingRooms
	}

	kept := make([]ResourceLink, 0, len(links))
	for _, l := range links {
		if l.ID != linkID {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(links) {
		return ErrLinkNotFound
	}

	data := map[string]interface{}{field: encodeLinks(kept)}
	return errors.Wrap(svc.store.SetDocument(ctx, Collection, DocID, data, true /* merge */), "removing resource link")
}
