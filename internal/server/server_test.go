package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"badgeshop/internal/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}

func TestNew_RecoversPanicsAndAllowsFrontendOrigin(t *testing.T) {
	e := New(config.Config{FEURL: "http://fe.local"}, nil)
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "http://fe.local")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://fe.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
