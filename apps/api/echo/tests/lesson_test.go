package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	echoapi "github.com/maharatedu/platform/apps/api/echo"
	"github.com/maharatedu/platform/core/lesson"
)

func Test_lessonApi_query(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")

	l3 := createLesson(t, 3, "Closures")
	l1 := createLesson(t, 1, "Variables")
	l2 := createLesson(t, 2, "Functions")

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students may list", token: getToken(t, student), wantCode: http.StatusOK,
			wantData: marchallList(t, l1, l2, l3), // ordered by lesson number
		},
		{
			name: "teacher may list", token: getToken(t, teacher), wantCode: http.StatusOK,
			wantData: marchallList(t, l1, l2, l3),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/lessons"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_lessonApi_retrieve(t *testing.T) {
	app := setup(t)
	_ = createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	lsn := createLesson(t, 1, "Variables")

	studentToken := getToken(t, student)

	tests := []httpTest{
		{name: "found", path: "/v1/lessons/" + lsn.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, lsn)},
		{
			name: "not found", path: "/v1/lessons/nope", token: studentToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_lessonApi_resources(t *testing.T) {
	app := setup(t)
	_ = createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	studentToken := getToken(t, student)

	lsn, err := lsnSvc.Create(context.Background(), lesson.NewLesson{
		LessonNumber: 1,
		Title:        "Variables",
		VideoURL:     "https://youtu.be/abc123",
		PDFURL:       "https://drive.google.com/file/d/FILE123/view?usp=sharing",
		QuizURL:      "https://forms.gle/xyz",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	want := []echoapi.ResourceResponse{
		{Kind: "video", Title: "Variables", URL: lsn.VideoURL, ViewerURL: lsn.VideoURL},
		{
			Kind: "pdf", Title: "Variables", URL: lsn.PDFURL,
			ViewerURL: "https://docs.google.com/gview?url=" +
				url.QueryEscape("https://drive.google.com/file/d/FILE123/preview") + "&embedded=true",
		},
		{Kind: "quiz", Title: "Variables", URL: lsn.QuizURL, ViewerURL: lsn.QuizURL, External: true},
	}

	tests := []httpTest{
		{name: "viewer links", path: "/v1/lessons/" + lsn.ID + "/resources", token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, want)},
		{
			name: "not found", path: "/v1/lessons/nope/resources", token: studentToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_lessonApi_create(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	teacherToken := getToken(t, teacher)

	tests := []httpTest{
		{
			name: "teacher required", token: getToken(t, student), wantCode: http.StatusForbidden,
			body:     marchallObj(t, lesson.NewLesson{LessonNumber: 1, Title: "Variables"}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "empty body", token: teacherToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, lesson.NewLesson{}),
			wantData: marchallObj(t, map[string]string{
				"lesson_number": "this field is required", "title": "this field is required",
			}),
		},
		{
			name: "links must be http(s)", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, lesson.NewLesson{LessonNumber: 1, Title: "Variables", VideoURL: "ftp://example.com/v.mp4"}),
			wantData: marchallObj(t, map[string]string{"video_url": "only http(s) links are allowed"}),
		},
		{
			name: "created", token: teacherToken, wantCode: http.StatusCreated,
			body: marchallObj(t, lesson.NewLesson{
				LessonNumber: 1,
				Title:        "Variables",
				VideoURL:     "https://youtu.be/abc123",
				PDFURL:       "https://example.com/notes.pdf",
				QuizURL:      "https://forms.gle/xyz",
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/lessons"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var lsn lesson.Lesson
				if err := json.Unmarshal(rec.Body.Bytes(), &lsn); err != nil {
					t.Fatalf("failed to unmarshall lesson; %v", err)
				}
				if lsn.ID == "" || lsn.Title != "Variables" || lsn.CreatedAt.IsZero() {
					t.Errorf("unexpected lesson; got %+v", lsn)
				}
			}
		})
	}
}

func Test_lessonApi_updateDestroy(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	lsn := createLesson(t, 1, "Variables")
	teacherToken := getToken(t, teacher)

	// update replaces all content fields
	req, rec := newAuthRequest(http.MethodPut, "/v1/lessons/"+lsn.ID, teacherToken,
		marchallObj(t, lesson.NewLesson{LessonNumber: 2, Title: "Constants"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var updated lesson.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to unmarshall lesson; %v", err)
	}
	if updated.Title != "Constants" || updated.LessonNumber != 2 || updated.VideoURL != "" {
		t.Errorf("unexpected lesson; got %+v", updated)
	}
	if updated.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	// unknown lesson
	req, rec = newAuthRequest(http.MethodPut, "/v1/lessons/nope", teacherToken,
		marchallObj(t, lesson.NewLesson{LessonNumber: 1, Title: "Ghost"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

	// destroy
	req, rec = newAuthRequest(http.MethodDelete, "/v1/lessons/"+lsn.ID, teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/lessons/"+lsn.ID, teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}
