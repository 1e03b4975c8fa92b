package tests

import (
	"net/http"
	"testing"

	echoapi "github.com/maharatedu/platform/apps/api/echo"
	"github.com/maharatedu/platform/core/progress"
)

func Test_progressApi_retrieveOwn(t *testing.T) {
	app := setup(t)
	_ = createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	studentToken := getToken(t, student)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			// the record is created on first access
			name: "lazy creation", token: studentToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, progress.Progress{StudentID: student.ID, StudentName: student.Name, CompletedLessons: []string{}}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/progress/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_progressApi_complete(t *testing.T) {
	app := setup(t)
	_ = createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	l1 := createLesson(t, 1, "Variables")
	_ = createLesson(t, 2, "Functions")
	studentToken := getToken(t, student)

	tests := []httpTest{
		{
			name: "empty body", token: studentToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.CompleteLessonRequest{}),
			wantData: marchallObj(t, map[string]string{"lesson_id": "this field is required"}),
		},
		{
			name: "unknown lesson", token: studentToken, wantCode: http.StatusNotFound,
			body:     marchallObj(t, echoapi.CompleteLessonRequest{LessonID: "nope"}),
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "first completion", token: studentToken, wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.CompleteLessonRequest{LessonID: l1.ID}),
			wantData: marchallObj(t, echoapi.CompleteLessonResponse{Completed: true, Percent: 50}),
		},
		{
			// completing twice is a no-op but still reports the percent
			name: "repeat completion", token: studentToken, wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.CompleteLessonRequest{LessonID: l1.ID}),
			wantData: marchallObj(t, echoapi.CompleteLessonResponse{Completed: false, Percent: 50}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/progress/complete"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_progressApi_teacherOverview(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	l1 := createLesson(t, 1, "Variables")
	teacherToken := getToken(t, teacher)

	// the student completes a lesson
	req, rec := newAuthRequest(http.MethodPost, "/v1/progress/complete", getToken(t, student),
		marchallObj(t, echoapi.CompleteLessonRequest{LessonID: l1.ID}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	prg := progress.Progress{StudentID: student.ID, StudentName: student.Name, CompletedLessons: []string{l1.ID}}

	tests := []httpTest{
		{
			name: "teacher required", method: http.MethodGet, path: "/v1/progress",
			token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "overview", method: http.MethodGet, path: "/v1/progress",
			token: teacherToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]progress.Progress{student.ID: prg}),
		},
		{
			name: "single student", method: http.MethodGet, path: "/v1/progress/" + student.ID,
			token: teacherToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, prg),
		},
		{
			name: "unknown student", method: http.MethodGet, path: "/v1/progress/nope",
			token: teacherToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
