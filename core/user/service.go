package user

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/storage/docstore"
)

// Store collections / documents.
const (
	Collection = "users"

	// flagCollection/flagDoc is the singleton flag gating teacher registration.
	flagCollection = "settings"
	flagDoc        = "teacher"
)

var (
	// errors
	ErrNotFound      = errors.New("user not found")
	ErrTeacherExists = errors.New("a teacher is already registered on this platform")
)

type Service struct {
	store    docstore.Store
	identity core.Identity
	mailSvc  core.EmailService
}

func NewService(store docstore.Store, identity core.Identity, mailSvc core.EmailService) *Service {
	return &Service{store: store, identity: identity, mailSvc: mailSvc}
}

// Register creates the identity record and the user document. Teacher
// registration is gated by the singleton flag document; the check and the
// flag write are two separate store operations, so two perfectly
// concurrent teacher registrations can still both pass the check.
func (svc *Service) Register(ctx context.Context, reg Registration) (User, error) {
	if reg.Role == RoleTeacher {
		flag, err := svc.store.GetDocument(ctx, flagCollection, flagDoc)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return User{}, errors.Wrap(err, "reading teacher flag")
		}
		if err == nil && docstore.Bool(flag.Data, "exists") {
			return User{}, ErrTeacherExists
		}
	}

	uid, err := svc.identity.CreateAccount(ctx, reg.Email, reg.Password)
	if err != nil {
		if errors.Is(err, core.ErrEmailInUse) {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "creating identity account")
	}

	usr := User{
		ID:        uid,
		Name:      reg.Name,
		Email:     reg.Email,
		Role:      reg.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := svc.store.SetDocument(ctx, Collection, usr.ID, encode(usr), false); err != nil {
		return User{}, errors.Wrap(err, "saving user record")
	}

	if reg.Role == RoleTeacher {
		flag := map[string]interface{}{"exists": true, "teacherId": usr.ID}
		if err := svc.store.SetDocument(ctx, flagCollection, flagDoc, flag, false); err != nil {
			return User{}, errors.Wrap(err, "setting teacher flag")
		}
	}

	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	uid, err := svc.identity.Authenticate(ctx, core.CleanString(email, true /* lower */), password)
	if err != nil {
		return User{}, err
	}
	return svc.GetByID(ctx, uid)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	doc, err := svc.store.GetDocument(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return Decode(doc), nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	docs, err := svc.store.ListCollection(ctx, Collection)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(docs))
	for _, d := range docs {
		users = append(users, Decode(d))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// ListStudents returns all student-role users, oldest account first.
func (svc *Service) ListStudents(ctx context.Context) ([]User, error) {
	users, err := svc.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	students := make([]User, 0, len(users))
	for _, u := range users {
		if u.IsStudent() {
			students = append(students, u)
		}
	}
	return students, nil
}

// CreateStudent lets the teacher open a student account directly.
func (svc *Service) CreateStudent(ctx context.Context, reg Registration) (User, error) {
	reg.Role = RoleStudent
	return svc.Register(ctx, reg)
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, uu UpdateStudent) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	updates := make([]docstore.Update, 0, 2)
	if uu.Name != "" {
		usr.Name = uu.Name
		updates = append(updates, docstore.Update{FieldPath: []string{"name"}, Value: uu.Name})
	}
	if uu.Email != "" {
		usr.Email = uu.Email
		updates = append(updates, docstore.Update{FieldPath: []string{"email"}, Value: uu.Email})
	}
	if len(updates) == 0 {
		return usr, nil
	}
	if err := svc.store.UpdateFields(ctx, Collection, id, updates); err != nil {
		return User{}, errors.Wrap(err, "updating user record")
	}
	return usr, nil
}

// DeleteStudent removes the identity account and the user document. The
// caller is responsible for cleaning up the student's progress record.
func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	if err := svc.identity.DeleteAccount(ctx, id); err != nil && !errors.Is(err, core.ErrInvalidCredentials) {
		return errors.Wrap(err, "deleting identity account")
	}
	return errors.Wrap(svc.store.DeleteDocument(ctx, Collection, id), "deleting user record")
}

func (svc *Service) sendWelcomeEmail(usr User) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome!",
		Body:    fmt.Sprintf("Hi %s,\n\nYour %s account is ready.\n", usr.Name, core.Conf.AppName),
	})
}

func encode(u User) map[string]interface{} {
	return map[string]interface{}{
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
}

// Decode maps a raw user document onto a User.
func Decode(d docstore.Doc) User {
	return User{
		ID:        d.ID,
		Name:      docstore.String(d.Data, "name"),
		Email:     docstore.String(d.Data, "email"),
		Role:      docstore.String(d.Data, "role"),
		CreatedAt: docstore.Time(d.Data, "createdAt"),
	}
}
