package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fly8app/fly8_backend/repositories"
)

// A missing agent profile and a broken store must not both look like an
// authentication failure.
func TestAgentLookupErrorMapping(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing or invalid token", echo.ErrUnauthorized, http.StatusUnauthorized},
		{"no agent profile", repositories.ErrNotFound, http.StatusNotFound},
		{"store failure", errors.New("connection reset by peer"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/agent/wallet", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, agentLookupError(c, tc.err))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
