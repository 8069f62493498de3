package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(perSecond float64, burst int) *gin.Engine {
		r := gin.New()
		r.GET("/ping", RateLimit(perSecond, burst), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	hit := func(r *gin.Engine, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("requests within the burst pass", func(t *testing.T) {
		r := newRouter(1, 3)
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
		}
	})

	t.Run("requests beyond the burst are rejected", func(t *testing.T) {
		r := newRouter(0.001, 2)
		hit(r, "10.0.0.2")
		hit(r, "10.0.0.2")
		assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.2"))
	})

	t.Run("buckets are per client", func(t *testing.T) {
		r := newRouter(0.001, 1)
		assert.Equal(t, http.StatusOK, hit(r, "10.0.0.3"))
		assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.3"))
		assert.Equal(t, http.StatusOK, hit(r, "10.0.0.4"))
	})
}
