package unit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uimetrics/uima-go-api/internal/config"
	"github.com/uimetrics/uima-go-api/internal/handler"
	"github.com/uimetrics/uima-go-api/internal/registry"
)

const healthTestCatalog = `{
  "metrics": {
    "t1": {
      "category": "c", "name": "One", "evidence": 1, "relevance": 1, "speed": 1,
      "input": "png", "visualization": "table",
      "results": [{"id": "t1_0", "index": 0, "type": "int", "name": "v"}]
    }
  }
}`

type response struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
}

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{
		AppName: "UIMA API",
		AppEnv:  "test",
	}
	reg, err := registry.Load([]byte(healthTestCatalog))
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, reg, nil))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload response
	err = json.NewDecoder(resp.Body).Decode(&payload)
	assert.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.Equal(t, cfg.AppName, payload.Data.Service)
	assert.Equal(t, cfg.AppEnv, payload.Data.Environment)
	assert.Equal(t, 1, payload.Data.Metrics)
	assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}
