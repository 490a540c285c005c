package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = JWTConfig{Secret: "test-secret", Issuer: "facility-monitor", Audience: "dashboard"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"username": "operator",
		"iss":      testJWT.Issuer,
		"aud":      []string{testJWT.Audience},
		"iat":      now.Unix(),
		"exp":      now.Add(time.Hour).Unix(),
	}
}

func protected(t *testing.T) http.Handler {
	t.Helper()
	wrap, err := NewJWTMiddleware(testJWT, discardLogger())
	require.NoError(t, err)
	return wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := UsernameFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = io.WriteString(w, name)
	}))
}

func call(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/sensor1", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddlewareAdmitsValidToken(t *testing.T) {
	rec := call(protected(t), "Bearer "+sign(t, testJWT.Secret, validClaims()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operator", rec.Body.String())
}

func TestJWTMiddlewareMissingTokenIs401(t *testing.T) {
	h := protected(t)
	for _, header := range []string{"", "Basic b3A6cHc=", "Token abc"} {
		rec := call(h, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), "Authentication required")
	}
}

func TestJWTMiddlewareBadTokenIs403(t *testing.T) {
	h := protected(t)

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	expired["iat"] = time.Now().Add(-2 * time.Hour).Unix()

	wrongAudience := validClaims()
	wrongAudience["aud"] = []string{"someone-else"}

	noUser := validClaims()
	delete(noUser, "username")

	cases := map[string]string{
		"malformed":      "not.a.jwt",
		"bad signature":  sign(t, "other-secret", validClaims()),
		"expired":        sign(t, testJWT.Secret, expired),
		"wrong audience": sign(t, testJWT.Secret, wrongAudience),
		"no username":    sign(t, testJWT.Secret, noUser),
	}
	for name, token := range cases {
		rec := call(h, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "Invalid or expired token", name)
	}
}

func TestWrapWithLoggingAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := WrapWithLogging(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"status":202`)
	assert.Contains(t, buf.String(), `"path":"/api/login"`)
}

func TestRecoverKeepsServing(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
