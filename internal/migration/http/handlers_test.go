package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/siteporter/siteporter-backend/internal/migration/service"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Request validation happens before any repository access, so a
	// service with no backing stores exercises the rejection paths.
	New(service.NewMigrationService(nil, nil, nil, nil)).Register(r.Group("/api/v1"))
	return r
}

func TestCreateMigration_Validation(t *testing.T) {
	r := testRouter()

	t.Run("rejects malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", strings.NewReader("{not json"))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations",
			strings.NewReader(`{"project_name": "p"}`))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown source platform", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", strings.NewReader(
			`{"project_name":"p","source_url":"https://x.com","source_platform":"geocities","target_platform":"wordpress_elementor"}`))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "geocities")
	})

	t.Run("rejects unknown target platform", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", strings.NewReader(
			`{"project_name":"p","source_url":"https://x.com","source_platform":"wix","target_platform":"drupal"}`))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "drupal")
	})
}

func TestListMigrations_InvalidStatus(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/migrations?status=exploded", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
