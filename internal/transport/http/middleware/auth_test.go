package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			userID = "anonymous"
		}
		w.Write([]byte(userID))
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := SignToken(secret, "u1", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	expired, err := SignToken(secret, "u1", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	otherSecret, _ := SignToken("other", "u1", time.Hour)
	numericID := signed(t, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(secret))
	noneAlg := signed(t, jwt.MapClaims{"user_id": "u1"}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantCode int
		wantErr  string
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, "", http.StatusOK, ""},
		{"cookie fallback", "", valid, http.StatusOK, ""},
		{"missing", "", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"wrong secret", "Bearer " + otherSecret, "", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"numeric user id", "Bearer " + numericID, "", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"none algorithm", "Bearer " + noneAlg, "", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"garbage", "Bearer not-a-token", "", http.StatusUnauthorized, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(secret)(echoUser()).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantErr == "" {
				if got := rec.Body.String(); got != "u1" {
					t.Errorf("user = %q, want u1", got)
				}
				return
			}
			if got := errorCode(t, rec); got != tt.wantErr {
				t.Errorf("code = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	valid, _ := SignToken(secret, "u2", time.Hour)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid token", "Bearer " + valid, "u2"},
		{"no token", "", "anonymous"},
		{"invalid token is ignored", "Bearer nope", "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			OptionalAuthMiddleware(secret)(echoUser()).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("user = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViewerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ViewerID(req.Context()) != nil {
		t.Fatal("anonymous context should have no viewer")
	}

	valid, _ := SignToken(secret, "u3", time.Hour)
	req.Header.Set("Authorization", "Bearer "+valid)

	var got *string
	OptionalAuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ViewerID(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || *got != "u3" {
		t.Fatalf("ViewerID = %v, want u3", got)
	}
}
