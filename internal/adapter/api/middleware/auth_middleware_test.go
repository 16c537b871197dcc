package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequireVerifiedEmail(t *testing.T) {
	e := echo.New()
	m := &AuthMiddleware{}

	next := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}

	run := func(verified interface{}) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if verified != nil {
			c.Set("email_verified", verified)
		}
		return m.RequireVerifiedEmail(next)(c)
	}

	assert.NoError(t, run(true))

	err := run(false)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)

	// Missing claim is treated as unverified.
	err = run(nil)
	httpErr, ok = err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestAuthenticateRejectsMissingOrMalformedHeader(t *testing.T) {
	e := echo.New()
	m := &AuthMiddleware{}

	next := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.Authenticate(next)(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok, "header %q", header)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	}
}
