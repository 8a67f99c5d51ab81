package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/recycleshare/recycleshare/internal/utils"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, header string, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	require.NoError(t, mw(okHandler)(c))
	return rec
}

func TestJWTAuthValidToken(t *testing.T) {
	const secret = "mw-secret"
	at, err := utils.NewAccessToken(secret, 7, "RESIDENT", 5)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenUID, seenRole interface{}
	inner := func(c echo.Context) error {
		seenUID = c.Get("user_id")
		seenRole = c.Get("role")
		return c.String(http.StatusOK, "ok")
	}
	require.NoError(t, JWTAuth(secret)(inner)(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(7), seenUID)
	require.Equal(t, "RESIDENT", seenRole)
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	rec := doRequest(t, JWTAuth("mw-secret"), "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, JWTAuth("mw-secret"), "Bearer not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	at, err := utils.NewAccessToken("other-secret", 7, "RESIDENT", 5)
	require.NoError(t, err)
	rec = doRequest(t, JWTAuth("mw-secret"), "Bearer "+at.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole("ADMIN")

	rec := doRequest(t, mw, "", func(c echo.Context) { c.Set("role", "ADMIN") })
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, mw, "", func(c echo.Context) { c.Set("role", "RESIDENT") })
	require.Equal(t, http.StatusForbidden, rec.Code)

	// No role set at all.
	rec = doRequest(t, mw, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleMultiple(t *testing.T) {
	mw := RequireRole("RESIDENT", "ADMIN")
	for _, role := range []string{"RESIDENT", "ADMIN"} {
		rec := doRequest(t, mw, "", func(c echo.Context) { c.Set("role", role) })
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
