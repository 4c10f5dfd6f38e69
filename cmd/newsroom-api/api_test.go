package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/newsroom/pkg/cmd"
	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	persistence, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	logger := discardLogger()

	app := NewAPI(logger, persistence, Integrations{Triggers: cmd.NewTriggerRegistry(logger)})

	return app.App(), persistence
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := send(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Newsroom API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		status, body := send(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, "OK", body, path)
	}
}

func TestAPI_StageTriggerValidation(t *testing.T) {
	t.Parallel()

	app, persistence := setupTestApp(t)

	admin := &models.User{UserName: "admin", AccessToken: "admin-token-0123456789", Admin: true}
	require.NoError(t, persistence.UserRepository().Create(t.Context(), admin))

	post := func(path, body string) (int, string) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+admin.AccessToken)

		return send(t, app, req)
	}

	status, body := post("/workflows", `{"name":"Daily"}`)
	require.Equal(t, http.StatusCreated, status, body)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal([]byte(body), &workflow))

	status, body = post("/workflows/"+workflow.ID+"/stages",
		`{"name":"Review","trigger":{"type":"slack","config":{"webhook_url":"https://hooks.slack.com/services/T/B/X"}}}`)
	assert.Equal(t, http.StatusCreated, status, body)

	status, body = post("/workflows/"+workflow.ID+"/stages",
		`{"name":"Legal","trigger":{"type":"slack","config":{}}}`)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = post("/workflows/"+workflow.ID+"/stages",
		`{"name":"Print","trigger":{"type":"pager","config":{}}}`)
	assert.Equal(t, http.StatusBadRequest, status, body)
}
