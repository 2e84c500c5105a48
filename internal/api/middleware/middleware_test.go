package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockVerifier accepts a single token.
type mockVerifier struct {
	token string
	email string
}

func (m mockVerifier) Verify(ctx context.Context, bearer string) (*identity.User, error) {
	if bearer == "" || bearer != m.token {
		return nil, identity.ErrUnauthenticated
	}
	return &identity.User{Email: m.email, AccessToken: bearer}, nil
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	u, ok := identity.FromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]string{"user": ""})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"user": u.Email})
}

func TestAuth(t *testing.T) {
	h := Auth(mockVerifier{token: "good", email: "me@example.com"})(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "/api/budgets", "Bearer good", http.StatusOK, "me@example.com"},
		{"missing header", "/api/budgets", "", http.StatusUnauthorized, ""},
		{"wrong token", "/api/budgets", "Bearer bad", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/budgets", "Basic good", http.StatusUnauthorized, ""},
		{"health is open", "/health", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "unauthenticated", body["error"])
				return
			}
			assert.Equal(t, tt.wantUser, body["user"])
		})
	}
}

func TestAuth_StaticAcceptsMissingHeader(t *testing.T) {
	h := Auth(identity.StaticVerifier{Email: "dev@example.com"})(http.HandlerFunc(echoUser))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev@example.com")
}

func TestLogger_RecordsUserAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	h := Chain(http.HandlerFunc(echoUser),
		RequestID,
		Logger(log),
		Auth(mockVerifier{token: "good", email: "me@example.com"}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/budgets", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "me@example.com", entry["user"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, "/api/budgets", entry["path"])
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/budgets", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWriteFieldError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFieldError(rec, "amount", "amount is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"amount is required","field":"amount"}`, rec.Body.String())
}
