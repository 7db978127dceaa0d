package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/hatua/core/user"
)

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "Jane", "janelogin", "janelogin@test.cd", "LordOfTheRings", []string{user.RoleTrainee}, true)
	deactivated := createUser(t, "Gone", "gonelogin", "gonelogin@test.cd", "LordOfTheRings", []string{user.RoleTrainee}, false)
	_ = deactivated

	tests := []httpTest{
		{
			name: "empty body", wantCode: http.StatusBadRequest,
			body:     []byte(`{}`),
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, LoginRequest{Username: "nobody", Password: "LordOfTheRings"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "nope"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, LoginRequest{Username: "gonelogin", Password: "LordOfTheRings"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("successful login issues a token", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: usr.Username, Password: "LordOfTheRings"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling LoginResponse: %v", err)
		}
		if resp.Token == "" {
			t.Error("token is empty")
		}

		// the token authenticates follow-up requests
		req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var me user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
			t.Fatalf("unmarshalling User: %v", err)
		}
		if me.ID != usr.ID {
			t.Errorf("me.ID = %v, want %v", me.ID, usr.ID)
		}
	})
}

func Test_userApi_authRequired(t *testing.T) {
	trainee := createUser(t, "Tee", "teeauth", "teeauth@test.cd", "", []string{user.RoleTrainee}, true)

	tests := []httpTest{
		{
			name: "users query needs a token", method: http.MethodGet, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "dashboard needs a token", method: http.MethodGet, path: "/v1/me/dashboard",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "users query needs staff", method: http.MethodGet, path: "/v1/users",
			token:    getToken(t, trainee),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "register needs admin", method: http.MethodPost, path: "/v1/users/register",
			token:    getToken(t, trainee),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
