package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beerzone-pos/internal/service"
	"beerzone-pos/pkg/apierror"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "has space")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, strings.HasPrefix(seen, "req_"))
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	h := NewRecovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLogging_CapturesStatus(t *testing.T) {
	h := NewLogging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestAuth(t *testing.T) {
	verifier := service.NewIdentityVerifier("secret", "")
	token, err := verifier.Issue("cashier-1", "", time.Hour)
	require.NoError(t, err)

	protected := NewAuthMiddleware(AuthConfig{Verifier: verifier})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetIdentity(r.Context()); id != nil {
			w.Header().Set("X-User", id.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		header string
		status int
		user   string
	}{
		{"missing token", "/api/v1/products", "", http.StatusUnauthorized, ""},
		{"bad token", "/api/v1/products", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "/api/v1/products", "Bearer " + token, http.StatusOK, "cashier-1"},
		{"public health", "/api/v1/health", "", http.StatusOK, ""},
		{"public metrics", "/metrics", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, rec.Header().Get("X-User"))
		})
	}
}

func TestAuth_DisabledWithoutVerifier(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{})(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type adjustBody struct {
	Operation string `json:"operation" validate:"required,oneof=add remove"`
	Amount    int    `json:"amount" validate:"gt=0"`
}

func TestBind(t *testing.T) {
	var body adjustBody
	err := Bind(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"operation":"add","amount":3}`)), &body)
	require.NoError(t, err)
	assert.Equal(t, 3, body.Amount)

	err = Bind(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"operation":"steal","amount":0}`)), &body)
	apiErr, ok := err.(*apierror.Error)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	fields := map[string]string{}
	for _, d := range apiErr.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "Must be one of: add remove", fields["operation"])
	assert.Equal(t, "Must be greater than 0", fields["amount"])

	err = Bind(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &body)
	apiErr, ok = err.(*apierror.Error)
	require.True(t, ok)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)

	err = Bind(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``)), &body)
	apiErr, ok = err.(*apierror.Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(apiErr.ToJSON(), &env))
	assert.Equal(t, false, env["success"])
}
