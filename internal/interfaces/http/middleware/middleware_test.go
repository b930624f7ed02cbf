// internal/interfaces/http/middleware/middleware_test.go
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			CORSAllowedOrigins: []string{"http://register.local"},
			CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
			CORSAllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
		},
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestSecurityHeadersMarkResponsesUncacheable(t *testing.T) {
	router := newTestRouter()
	router.Use(middleware.SecurityHeaders())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestCORSExposesReceiptDownloadHeaders(t *testing.T) {
	router := newTestRouter()
	router.Use(middleware.CORS(testConfig()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://register.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://register.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	router := newTestRouter()
	router.Use(middleware.CORS(testConfig()))

	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	req.Header.Set("Origin", "http://unknown.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTimeoutGivesReceiptRenderingALongerBudget(t *testing.T) {
	router := newTestRouter()
	router.Use(middleware.Timeout(50 * time.Millisecond))
	slow := func(c *gin.Context) {
		time.Sleep(120 * time.Millisecond)
		if c.Request.Context().Err() == nil {
			c.Status(http.StatusOK)
		}
	}
	router.GET("/sales/1/receipt", slow)
	router.GET("/sales/1", slow)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sales/1/receipt", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sales/1", nil))
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}
