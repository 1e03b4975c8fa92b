package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/maharatedu/platform/apps/api/echo"
	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
	"github.com/maharatedu/platform/core/messaging"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/settings"
	"github.com/maharatedu/platform/core/user"
	emailsvc "github.com/maharatedu/platform/services/email"
	dummyid "github.com/maharatedu/platform/services/identity/dummy"
	logsvc "github.com/maharatedu/platform/services/logger"
	revokesvc "github.com/maharatedu/platform/services/revoke"
	dummystore "github.com/maharatedu/platform/storage/docstore/dummy"
)

var (
	usrSvc      *user.Service
	lsnSvc      *lesson.Service
	prgSvc      *progress.Service
	setSvc      *settings.Service
	msgSvc      *messaging.Service
	revocations revokesvc.Store

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	core.Conf.TestMode = true
	core.Conf.Debug = false

	// set up store & services
	store := dummystore.Open()
	idSvc := dummyid.NewService()
	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	revocations = revokesvc.NewMemoryStore()

	usrSvc = user.NewService(store, idSvc, mailSvc)
	lsnSvc = lesson.NewService(store)
	prgSvc = progress.NewService(store)
	setSvc = settings.NewService(store)
	msgSvc = messaging.NewService(store, usrSvc, mailSvc)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			LessonSvc:      lsnSvc,
			ProgressSvc:    prgSvc,
			SettingsSvc:    setSvc,
			MessageSvc:     msgSvc,
			Revocations:    revocations,
			Logger:         logger,
		},
	)
}

func createTeacher(t *testing.T) user.User {
	usr, err := usrSvc.Register(context.Background(), user.Registration{
		Name:     "Mr. Kamal",
		Email:    "kamal@test.cd",
		Password: "LordOfTheRings",
		Role:     user.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return usr
}

func createStudent(t *testing.T, name, email string) user.User {
	usr, err := usrSvc.CreateStudent(context.Background(), user.Registration{
		Name:     name,
		Email:    email,
		Password: "LordOfTheRings",
		Role:     user.RoleStudent,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return usr
}

func createLesson(t *testing.T, number int, title string) lesson.Lesson {
	lsn, err := lsnSvc.Create(context.Background(), lesson.NewLesson{
		LessonNumber: number,
		Title:        title,
		VideoURL:     "https://youtu.be/abc123",
	})
	if err != nil {
		t.Fatalf("createLesson() failed: %v", err)
	}
	return lsn
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
