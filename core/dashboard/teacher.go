package dashboard

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
	"github.com/maharatedu/platform/core/messaging"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/settings"
	"github.com/maharatedu/platform/core/user"
	"github.com/maharatedu/platform/storage/docstore"
)

// TeacherState is the live view backing the teacher's dashboard.
type TeacherState struct {
	User     user.User                    `json:"user"`
	Lessons  []lesson.Lesson              `json:"lessons"`
	Students []user.User                  `json:"students"`
	Progress map[string]progress.Progress `json:"progress"`
	Settings settings.Settings            `json:"settings"`
	Messages []messaging.Message          `json:"messages"`
	Unread   int                          `json:"unread"`
}

type Teacher struct {
	userID string
	usrSvc *user.Service
	lsnSvc *lesson.Service
	prgSvc *progress.Service
	setSvc *settings.Service
	msgSvc *messaging.Service
	logger core.Logger

	mu    sync.RWMutex
	state TeacherState

	cancel context.CancelFunc
	subs   []docstore.Subscription
	stream *messaging.Stream
	wg     sync.WaitGroup
}

func NewTeacher(
	userID string,
	usrSvc *user.Service,
	lsnSvc *lesson.Service,
	prgSvc *progress.Service,
	setSvc *settings.Service,
	msgSvc *messaging.Service,
	logger core.Logger,
) *Teacher {
	return &Teacher{
		userID: userID,
		usrSvc: usrSvc,
		lsnSvc: lsnSvc,
		prgSvc: prgSvc,
		setSvc: setSvc,
		msgSvc: msgSvc,
		logger: logger,
	}
}

// Start fetches the static data (user, lessons, students) once, then
// opens the progress, settings and message subscriptions.
func (c *Teacher) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	usr, err := c.usrSvc.GetByID(ctx, c.userID)
	if err != nil {
		return errors.Wrap(err, "loading user")
	}
	lessons, err := c.lsnSvc.List(ctx)
	if err != nil {
		return errors.Wrap(err, "loading lessons")
	}
	students, err := c.usrSvc.ListStudents(ctx)
	if err != nil {
		return errors.Wrap(err, "loading students")
	}
	prg, err := c.prgSvc.All(ctx)
	if err != nil {
		return errors.Wrap(err, "loading progress")
	}
	set, err := c.setSvc.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}

	c.mu.Lock()
	c.state = TeacherState{
		User:     usr,
		Lessons:  lessons,
		Students: students,
		Progress: prg,
		Settings: set,
		Messages: []messaging.Message{},
	}
	c.mu.Unlock()

	prgSub, err := c.prgSvc.WatchAll(ctx)
	if err != nil {
		return errors.Wrap(err, "watching progress")
	}
	setSub, err := c.setSvc.Watch(ctx)
	if err != nil {
		prgSub.Unsubscribe()
		return errors.Wrap(err, "watching settings")
	}
	c.subs = []docstore.Subscription{prgSub, setSub}

	c.consume(prgSub, c.applyProgress)
	c.consume(setSub, c.applySettings)

	// the message stream handles index building internally
	c.stream = c.msgSvc.Subscribe(ctx, c.userID, c.logger)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for msgs := range c.stream.Updates() {
			c.mu.Lock()
			c.state.Messages = msgs
			c.state.Unread = messaging.UnreadCount(c.userID, msgs)
			c.mu.Unlock()
		}
	}()
	return nil
}

// Stop releases every live subscription. Safe to call more than once.
func (c *Teacher) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	if c.stream != nil {
		c.stream.Unsubscribe()
		c.stream = nil
	}
	c.wg.Wait()
}

func (c *Teacher) Snapshot() TeacherState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.state
	st.Messages = append([]messaging.Message(nil), c.state.Messages...)
	return st
}

// Unread is the teacher's current unread message count.
func (c *Teacher) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Unread
}

// StreamState exposes the message stream's lifecycle state (degraded
// while the store index is building).
func (c *Teacher) StreamState() messaging.State {
	if c.stream == nil {
		return messaging.StateUnsubscribed
	}
	return c.stream.State()
}

// Conversation returns the thread with one student from the latest snapshot.
func (c *Teacher) Conversation(studentID string) []messaging.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return messaging.Conversation(c.state.Messages, studentID)
}

func (c *Teacher) consume(sub docstore.Subscription, apply func([]docstore.Doc)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for docs := range sub.Updates() {
			apply(docs)
		}
		if err := sub.Err(); err != nil && c.logger != nil {
			c.logger.Error("dashboard subscription ended", err)
		}
	}()
}

func (c *Teacher) applyProgress(docs []docstore.Doc) {
	prg := make(map[string]progress.Progress, len(docs))
	for _, d := range docs {
		prg[d.ID] = progress.Decode(d)
	}
	c.mu.Lock()
	c.state.Progress = prg
	c.mu.Unlock()
}

func (c *Teacher) applySettings(docs []docstore.Doc) {
	if len(docs) == 0 {
		return
	}
	set := settings.Decode(docs[0])
	c.mu.Lock()
	c.state.Settings = set
	c.mu.Unlock()
}
