package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
)

func getHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database and sources are available", func(t *testing.T) {
		app := setupTestApp(t, &stubAdapter{source: entities.SourceGutendex})

		code, response := getHealth(t, NewHealthController(app.db, app.registry, "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Equal(t, "1 registered", response.Checks["sources"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("reports missing dependencies as not configured", func(t *testing.T) {
		code, response := getHealth(t, NewHealthController(nil, nil, "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "not configured", response.Checks["database"])
		assert.Equal(t, "not configured", response.Checks["sources"])
	})

	t.Run("returns unhealthy with an empty registry", func(t *testing.T) {
		code, response := getHealth(t, NewHealthController(nil, importers.NewRegistry(), ""))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		app := setupTestApp(t, &stubAdapter{source: entities.SourceGutendex})
		app.db.Close()

		code, response := getHealth(t, NewHealthController(app.db, app.registry, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})
}
