package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, origin string) int {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestOrigin(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    int
	}{
		{"empty list allows all", nil, "https://evil.example", http.StatusOK},
		{"wildcard", []string{"*"}, "https://evil.example", http.StatusOK},
		{"listed", []string{"https://app.example/"}, "https://APP.example", http.StatusOK},
		{"no origin header", []string{"https://app.example"}, "", http.StatusOK},
		{"not listed", []string{"https://app.example"}, "https://evil.example", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Origin(tc.allowed))
			r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })
			assert.Equal(t, tc.want, serve(r, tc.origin))
		})
	}
}

func TestManagerStopsOnAbort(t *testing.T) {
	var order []string
	m := NewManager(
		func(c *gin.Context) { order = append(order, "a") },
		func(c *gin.Context) { order = append(order, "b"); c.AbortWithStatus(http.StatusTeapot) },
		func(c *gin.Context) { order = append(order, "c") },
	)
	m.Add(nil)
	assert.Equal(t, 3, m.Len())

	r := gin.New()
	r.Use(m.Use(), AccessLog())
	r.GET("/ws", func(c *gin.Context) { order = append(order, "handler") })

	assert.Equal(t, http.StatusTeapot, serve(r, ""))
	assert.Equal(t, []string{"a", "b"}, order)

	m.Clear()
	order = nil
	assert.Equal(t, http.StatusOK, serve(r, ""))
	assert.Equal(t, []string{"handler"}, order)
}
