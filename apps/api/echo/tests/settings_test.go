package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/maharatedu/platform/core/settings"
)

func Test_settingsApi_retrieve(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			// first read materializes the defaults
			name: "students may read", token: getToken(t, student), wantCode: http.StatusOK,
			wantData: marchallObj(t, settings.Default()),
		},
		{
			name: "teacher may read", token: getToken(t, teacher), wantCode: http.StatusOK,
			wantData: marchallObj(t, settings.Default()),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/settings"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_settingsApi_update(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	teacherToken := getToken(t, teacher)

	renamed := settings.Default()
	renamed.SiteName = "Maharat Academy"

	tests := []httpTest{
		{
			name: "teacher required", token: getToken(t, student), wantCode: http.StatusForbidden,
			body:     marchallObj(t, settings.UpdateSettings{SiteName: "Maharat Academy"}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "links must be http(s)", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, settings.UpdateSettings{TeacherAIToolsURL: "javascript:alert(1)"}),
			wantData: marchallObj(t, map[string]string{"teacher_ai_tools_url": "only http(s) links are allowed"}),
		},
		{
			// untouched fields keep their value
			name: "partial update", token: teacherToken, wantCode: http.StatusOK,
			body:     marchallObj(t, settings.UpdateSettings{SiteName: "Maharat Academy"}),
			wantData: marchallObj(t, renamed),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/v1/settings"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_settingsApi_resourceLinks(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	teacherToken := getToken(t, teacher)

	// validation
	req, rec := newAuthRequest(http.MethodPost, "/v1/settings/final-exams", teacherToken,
		marchallObj(t, settings.ResourceLink{}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"name": "this field is required", "url": "this field is required"}),
	}, rec)

	// add a final exam and a meeting room
	req, rec = newAuthRequest(http.MethodPost, "/v1/settings/final-exams", teacherToken,
		marchallObj(t, settings.ResourceLink{Name: "Final Exam", URL: "https://forms.gle/exam"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add final exam failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var exam settings.ResourceLink
	if err := json.Unmarshal(rec.Body.Bytes(), &exam); err != nil {
		t.Fatalf("failed to unmarshall link; %v", err)
	}
	if exam.ID == "" || exam.Name != "Final Exam" {
		t.Errorf("unexpected link; got %+v", exam)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/settings/meeting-rooms", teacherToken,
		marchallObj(t, settings.ResourceLink{Name: "Office Hours", URL: "https://meet.google.com/abc"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add meeting room failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var room settings.ResourceLink
	if err := json.Unmarshal(rec.Body.Bytes(), &room); err != nil {
		t.Fatalf("failed to unmarshall link; %v", err)
	}

	// both lists are visible on the settings doc
	want := settings.Default()
	want.FinalExams = []settings.ResourceLink{exam}
	want.MeetingRooms = []settings.ResourceLink{room}
	req, rec = newAuthRequest(http.MethodGet, "/v1/settings", teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)

	// removals are per-list
	req, rec = newAuthRequest(http.MethodDelete, "/v1/settings/final-exams/"+room.ID, teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/settings/final-exams/"+exam.ID, teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)

	want.FinalExams = []settings.ResourceLink{}
	req, rec = newAuthRequest(http.MethodGet, "/v1/settings", teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)
}
