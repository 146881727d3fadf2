package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func authTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	g := e.Group("/api", BearerAuth("secret-token"))
	g.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestBearerAuth(t *testing.T) {
	srv := authTestServer(t)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"valid header", "Bearer secret-token", "", http.StatusOK},
		{"valid query param", "", "?token=secret-token", http.StatusOK},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"missing token", "", "", http.StatusUnauthorized},
		{"query param wrong", "", "?token=nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/ping"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			assert.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
