package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type panicHandler struct{}

func (panicHandler) Register(e *echo.Echo) {
	e.GET("/boom", func(echo.Context) error { panic("boom") })
	e.GET("/fine", func(c echo.Context) error { return c.String(http.StatusOK, "fine") })
}

func TestServerRoutesAndRecovers(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, "", panicHandler{}, nil)
	if srv.Addr() != ":8080" {
		t.Fatalf("default addr = %q", srv.Addr())
	}

	cases := []struct {
		path string
		want int
	}{
		{path: "/fine", want: http.StatusOK},
		{path: "/boom", want: http.StatusInternalServerError},
		{path: "/missing", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("path=%q want=%d got=%d", tc.path, tc.want, rec.Code)
		}
	}
}
