package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/recycleshare/recycleshare/internal/lifecycle"
)

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRespondEngineError(t *testing.T) {
	cases := []struct {
		kind lifecycle.Kind
		code int
	}{
		{lifecycle.KindValidation, http.StatusBadRequest},
		{lifecycle.KindConflict, http.StatusConflict},
		{lifecycle.KindState, http.StatusUnprocessableEntity},
		{lifecycle.KindNotFound, http.StatusNotFound},
		{lifecycle.KindForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		c, rec := newContext(t)
		err := &lifecycle.Error{Kind: tc.kind, Msg: "boom"}
		require.NoError(t, respondEngineError(c, err))
		require.Equal(t, tc.code, rec.Code)
		require.Contains(t, rec.Body.String(), "boom")
	}
}

func TestRespondEngineErrorHidesInternals(t *testing.T) {
	c, rec := newContext(t)
	require.NoError(t, respondEngineError(c, errors.New("dial tcp: connection refused")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "dial tcp")
	require.Contains(t, rec.Body.String(), "database error")
}

func TestGetUserID(t *testing.T) {
	c, _ := newContext(t)
	c.Set("user_id", float64(12))
	id, err := getUserID(c)
	require.NoError(t, err)
	require.Equal(t, uint64(12), id)

	c, _ = newContext(t)
	c.Set("user_id", "34")
	id, err = getUserID(c)
	require.NoError(t, err)
	require.Equal(t, uint64(34), id)

	c, _ = newContext(t)
	_, err = getUserID(c)
	require.Error(t, err)

	c, _ = newContext(t)
	c.Set("user_id", float64(0))
	_, err = getUserID(c)
	require.Error(t, err)
}

func TestParamID(t *testing.T) {
	c, _ := newContext(t)
	c.SetParamNames("id")
	c.SetParamValues("57")
	id, ok := paramID(c, "id")
	require.True(t, ok)
	require.Equal(t, uint64(57), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		c, _ := newContext(t)
		c.SetParamNames("id")
		c.SetParamValues(bad)
		_, ok := paramID(c, "id")
		require.False(t, ok)
	}
}
