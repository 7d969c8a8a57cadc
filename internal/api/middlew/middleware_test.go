package middlew

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gw-ipn-relay/internal/service"
	"gw-ipn-relay/pkg/logger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(auth service.Auth) http.Handler {
	return RequireAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetPrincipal(r.Context())))
	}))
}

func TestRequireAuth(t *testing.T) {
	auth := service.NewAuthService("1", "secret", time.Hour, logger.NewDiscard())
	token, err := auth.IssueToken("1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer abc", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + token.Token, http.StatusOK, "1"},
		{"lowercase scheme", "bearer " + token.Token, http.StatusOK, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected(auth).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireAuth_Disabled(t *testing.T) {
	auth := service.NewAuthService("1", "", time.Hour, logger.NewDiscard())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()

	protected(auth).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWithLogger_AttachesLogger(t *testing.T) {
	base := logger.NewDiscard()
	var got bool
	h := middleware.RequestID(WithLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetLogger(r.Context()) != nil
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, got)
}
