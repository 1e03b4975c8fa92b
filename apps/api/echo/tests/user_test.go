package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/maharatedu/platform/apps/api/echo"
	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/user"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)

	tests := []httpTest{
		{
			name: "empty body", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{}),
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "not-an-email", Password: "LordOfTheRings"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown account", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ghost@test.cd", Password: "LordOfTheRings"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: teacher.Email, Password: "nope"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "email is case-insensitive", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: "KAMAL@test.cd", Password: "LordOfTheRings"}),
		},
		{
			name: "valid credentials", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: teacher.Email, Password: "LordOfTheRings"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshall token; %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token")
				}

				// the token must be accepted by an authed endpoint
				req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", resp.Token)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, teacher)}, rec)
			}
		})
	}
}

func Test_authApi_register(t *testing.T) {
	app := setup(t)

	reg := user.Registration{Name: "Mr. Kamal", Email: "kamal@test.cd", Password: "LordOfTheRings", Role: user.RoleTeacher}

	tests := []httpTest{
		{
			name: "empty body", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.Registration{}),
			wantData: marchallObj(t, map[string]string{
				"name": "this field is required", "email": "this field is required",
				"password": "this field is required", "role": "this field is required",
			}),
		},
		{
			name: "short password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Registration{Name: "X", Email: "x@test.cd", Password: "meh", Role: user.RoleTeacher}),
			wantData: marchallObj(t, map[string]string{"password": "password must be at least 6 characters in length"}),
		},
		{
			name: "unknown role", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Registration{Name: "X", Email: "x@test.cd", Password: "LordOfTheRings", Role: "admin"}),
			wantData: marchallObj(t, map[string]string{"role": "role must be one of [teacher student]"}),
		},
		{name: "teacher registration", wantCode: http.StatusCreated, body: marchallObj(t, reg)},
		{
			name: "teacher account is a singleton", wantCode: http.StatusConflict,
			body:     marchallObj(t, user.Registration{Name: "Usurper", Email: "usurper@test.cd", Password: "LordOfTheRings", Role: user.RoleTeacher}),
			wantData: marchallObj(t, httpErr{Error: "a teacher is already registered on this platform"}),
		},
		{
			name: "email already in use", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Registration{Name: "Clone", Email: reg.Email, Password: "LordOfTheRings", Role: user.RoleStudent}),
			wantData: marchallObj(t, map[string]string{"email": "an account with this email already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("failed to unmarshall user; %v", err)
				}
				if usr.ID == "" || usr.Email != reg.Email || !usr.IsTeacher() {
					t.Errorf("unexpected user; got %+v", usr)
				}
			}
		})
	}
}

func Test_authApi_tokenRefresh(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)

	expiredOriat := time.Now().Add(-(core.Conf.Server.JWTRefreshExpirationDelta + time.Hour)).Unix()
	expiredRefresh, err := echoapi.GenerateToken(echoapi.GetUserClaims(teacher, expiredOriat))
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "refresh window expired", token: expiredRefresh, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "valid token", token: getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshall token; %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a fresh token")
				}
			}
		})
	}
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)

	token := getToken(t, teacher)
	otherToken := getToken(t, teacher) // separate session

	// a live token is accepted
	req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, teacher)}, rec)

	// sign out
	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Signed out."}),
	}, rec)

	// the revoked token is rejected for the remainder of its lifetime
	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusUnauthorized,
		wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
	}, rec)

	// other sessions of the same user are unaffected
	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", otherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, teacher)}, rec)
}

func Test_studentApi_query(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	s1 := createStudent(t, "Hero", "hero@test.cd")
	s2 := createStudent(t, "King", "king@test.cd")

	teacherToken := getToken(t, teacher)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "teacher required", token: getToken(t, s1), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "oldest account first", token: teacherToken, wantCode: http.StatusOK,
			wantData: marchallList(t, s1, s2),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_create(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	teacherToken := getToken(t, teacher)

	tests := []httpTest{
		{
			name: "empty body", token: teacherToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.Registration{}),
			wantData: marchallObj(t, map[string]string{
				"name": "this field is required", "email": "this field is required", "password": "this field is required",
			}),
		},
		{
			name: "created", token: teacherToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.Registration{Name: "Hero", Email: "hero@test.cd", Password: "LordOfTheRings"}),
		},
		{
			// the role field is ignored; students is all this endpoint makes
			name: "role is forced to student", token: teacherToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.Registration{Name: "Sneaky", Email: "sneaky@test.cd", Password: "LordOfTheRings", Role: user.RoleTeacher}),
		},
		{
			name: "duplicate email", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Registration{Name: "Clone", Email: "hero@test.cd", Password: "LordOfTheRings"}),
			wantData: marchallObj(t, map[string]string{"email": "an account with this email already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("failed to unmarshall user; %v", err)
				}
				if !usr.IsStudent() {
					t.Errorf("role = %q; want %q", usr.Role, user.RoleStudent)
				}
			}
		})
	}
}

func Test_studentApi_updateDestroy(t *testing.T) {
	app := setup(t)
	teacher := createTeacher(t)
	student := createStudent(t, "Hero", "hero@test.cd")
	teacherToken := getToken(t, teacher)

	renamed := student
	renamed.Name = "Big Hero"

	// update
	req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+student.ID, teacherToken,
		marchallObj(t, user.UpdateStudent{Name: "Big Hero"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, renamed)}, rec)

	// unknown student
	req, rec = newAuthRequest(http.MethodPut, "/v1/students/nope", teacherToken,
		marchallObj(t, user.UpdateStudent{Name: "Ghost"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)

	// destroy
	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+student.ID, teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)

	// gone
	req, rec = newAuthRequest(http.MethodGet, "/v1/students", teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}, rec)
}
