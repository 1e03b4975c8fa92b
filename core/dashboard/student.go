// Package dashboard hosts the per-role controllers: each one fetches its
// static reference data once, then owns a set of live subscriptions that
// push updates into a guarded view state. Every subscription is released
// on every exit path of the controller's lifetime.
package dashboard

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/settings"
	"github.com/maharatedu/platform/core/user"
	"github.com/maharatedu/platform/storage/docstore"
)

// StudentState is the live view backing a student's dashboard.
type StudentState struct {
	User     user.User         `json:"user"`
	Lessons  []lesson.Lesson   `json:"lessons"`
	Progress progress.Progress `json:"progress"`
	Settings settings.Settings `json:"settings"`
}

type Student struct {
	userID string
	usrSvc *user.Service
	lsnSvc *lesson.Service
	prgSvc *progress.Service
	setSvc *settings.Service
	logger core.Logger

	mu    sync.RWMutex
	state StudentState

	cancel context.CancelFunc
	subs   []docstore.Subscription
	wg     sync.WaitGroup
}

func NewStudent(
	userID string,
	usrSvc *user.Service,
	lsnSvc *lesson.Service,
	prgSvc *progress.Service,
	setSvc *settings.Service,
	logger core.Logger,
) *Student {
	return &Student{
		userID: userID,
		usrSvc: usrSvc,
		lsnSvc: lsnSvc,
		prgSvc: prgSvc,
		setSvc: setSvc,
		logger: logger,
	}
}

// Start fetches static reference data once, then opens the progress and
// settings subscriptions. A failure part-way releases whatever was
// already acquired.
func (c *Student) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	usr, err := c.usrSvc.GetByID(ctx, c.userID)
	if err != nil {
		return errors.Wrap(err, "loading user")
	}
	lessons, err := c.lsnSvc.List(ctx)
	if err != nil {
		return errors.Wrap(err, "loading lessons")
	}
	prg, err := c.prgSvc.Ensure(ctx, c.userID, usr.Name)
	if err != nil {
		return errors.Wrap(err, "loading progress")
	}
	set, err := c.setSvc.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}

	c.mu.Lock()
	c.state = StudentState{User: usr, Lessons: lessons, Progress: prg, Settings: set}
	c.mu.Unlock()

	prgSub, err := c.prgSvc.Watch(ctx, c.userID)
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
	return nil
}

// Stop releases every live subscription. Safe to call more than once.
func (c *Student) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	c.wg.Wait()
}

func (c *Student) Snapshot() StudentState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Percent is the student's overall completion percentage.
func (c *Student) Percent() int {
	st := c.Snapshot()
	return progress.Percent(len(st.Lessons), len(st.Progress.CompletedLessons))
}

func (c *Student) consume(sub docstore.Subscription, apply func([]docstore.Doc)) {
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

func (c *Student) applyProgress(docs []docstore.Doc) {
	if len(docs) == 0 {
		// progress record missing (first access or deleted); recreate lazily
		c.mu.RLock()
		name := c.state.User.Name
		c.mu.RUnlock()
		if prg, err := c.prgSvc.Ensure(context.Background(), c.userID, name); err == nil {
			c.mu.Lock()
			c.state.Progress = prg
			c.mu.Unlock()
		}
		return
	}
	prg := progress.Decode(docs[0])
	c.mu.Lock()
	c.state.Progress = prg
	c.mu.Unlock()
}

func (c *Student) applySettings(docs []docstore.Doc) {
	if len(docs) == 0 {
		return
	}
	set := settings.Decode(docs[0])
	c.mu.Lock()
	c.state.Settings = set
	c.mu.Unlock()
}
