package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utmlens/internal/config"
	apphttp "utmlens/internal/http"
	"utmlens/internal/settings"
	"utmlens/internal/testsupport"
)

const testAdminKey = "test-admin-key"

func setupRoutesApp(t *testing.T) *fiber.App {
	t.Helper()
	st := testsupport.SetupTestStore(t)

	cfg := *config.GetConfig()
	cfg.AdminAPIKey = testAdminKey
	h := apphttp.NewHandlers(nil, nil, testsupport.FixedClock(2025, 6, 15, 12), settings.DefaultsFromConfig(&cfg))

	return testsupport.CreateMinimalTestApp(t, st.DB(), func(srv *cartridge.Server) {
		MountRoutes(srv, &cfg, h)
	})
}

func doRequest(t *testing.T, app *fiber.App, method, path string, payload interface{}, withKey bool) (int, map[string]interface{}) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("Authorization", "Bearer "+testAdminKey)
	}
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestPublicTrackingRouteRateLimited(t *testing.T) {
	app := setupRoutesApp(t)
	routes := app.GetRoutes(true)

	var utmRoute *fiber.Route
	for idx := range routes {
		if routes[idx].Method == fiber.MethodPost && routes[idx].Path == "/x/api/v1/utm" {
			utmRoute = &routes[idx]
			break
		}
	}
	require.NotNil(t, utmRoute, "expected tracking route to be registered")

	// The limiter only runs in production, but the conditional wrapper is
	// always installed.
	hasRateLimiter := false
	var handlerNames []string
	for _, handler := range utmRoute.Handlers {
		name := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
		handlerNames = append(handlerNames, name)
		if strings.Contains(name, "middleware/limiter") || strings.Contains(name, "MountRoutes.func") {
			hasRateLimiter = true
			break
		}
	}
	require.Truef(t, hasRateLimiter, "expected rate limiter middleware for tracking route, handlers: %v", handlerNames)
}

func TestAdminRoutesRequireAPIKey(t *testing.T) {
	app := setupRoutesApp(t)

	status, body := doRequest(t, app, "GET", "/api/rules", nil, false)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.NotEmpty(t, body["error"])

	status, body = doRequest(t, app, "GET", "/api/rules", nil, true)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["rules"], 6)
}

func TestHealthRoute(t *testing.T) {
	app := setupRoutesApp(t)

	status, body := doRequest(t, app, "GET", "/_health", nil, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["crm_enabled"])
}

func TestMetricsRouteExposesCounters(t *testing.T) {
	app := setupRoutesApp(t)

	status, _ := doRequest(t, app, "POST", "/x/api/v1/utm", map[string]interface{}{"utm_source": "google", "utm_medium": "organic"}, false)
	require.Equal(t, fiber.StatusCreated, status)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), 30000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "utmlens_touchpoints_ingested_total")
}

func TestAttributionFlow(t *testing.T) {
	app := setupRoutesApp(t)

	journey := []map[string]interface{}{
		{"utm_source": "fb", "utm_medium": "paid", "contact_id": "c-1", "timestamp": "2025-06-01T10:00:00Z"},
		{"utm_source": "email", "contact_id": "c-1", "timestamp": "2025-06-05T10:00:00Z"},
	}
	for _, hit := range journey {
		status, _ := doRequest(t, app, "POST", "/x/api/v1/utm", hit, false)
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, _ := doRequest(t, app, "POST", "/api/costs", map[string]interface{}{
		"channel":    "Paid Social",
		"cost":       250,
		"period":     "monthly",
		"start_date": "2025-06-01T00:00:00Z",
		"end_date":   "2025-06-30T23:59:59Z",
	}, true)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := doRequest(t, app, "POST", "/x/api/v1/conversions", map[string]interface{}{
		"contact_id": "c-1",
		"revenue":    1000,
		"model":      "linear",
	}, false)
	require.Equal(t, fiber.StatusCreated, status)
	require.Len(t, body["events"], 2)

	status, body = doRequest(t, app, "GET", "/api/metrics/channels?from=2025-06-01&to=2025-06-30", nil, true)
	require.Equal(t, fiber.StatusOK, status)

	var paidSocial map[string]interface{}
	for _, raw := range body["channels"].([]interface{}) {
		row := raw.(map[string]interface{})
		if row["channel"] == "Paid Social" {
			paidSocial = row
		}
	}
	require.NotNil(t, paidSocial, "expected a Paid Social row")
	assert.InDelta(t, 500.0, paidSocial["total_revenue"], 0.001)
	assert.InDelta(t, 250.0, paidSocial["total_cost"], 0.001)
	assert.InDelta(t, 100.0, paidSocial["roi"], 0.001)
	assert.InDelta(t, 2.0, paidSocial["roas"], 0.001)

	status, body = doRequest(t, app, "POST", "/api/attribution/c-1/recalculate?mode=replace&model=first_touch", nil, true)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["events"], 1)
}

func TestRuleUpdateRoute(t *testing.T) {
	app := setupRoutesApp(t)

	status, body := doRequest(t, app, "POST", "/api/rules", map[string]interface{}{
		"field":            "utm_source",
		"match_type":       "contains",
		"match_value":      "goog",
		"normalized_value": "google",
		"priority":         5,
		"is_active":        true,
	}, true)
	require.Equal(t, fiber.StatusCreated, status)
	id := body["id"]
	require.NotNil(t, id)

	path := fmt.Sprintf("/api/rules/%.0f", id)
	status, body = doRequest(t, app, "POST", path, map[string]interface{}{
		"field":            "utm_source",
		"match_type":       "contains",
		"match_value":      "goog",
		"normalized_value": "google",
		"priority":         50,
		"is_active":        true,
	}, true)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 50, body["priority"])

	status, _ = doRequest(t, app, "DELETE", path, nil, true)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = doRequest(t, app, "GET", path, nil, true)
	assert.Equal(t, fiber.StatusNotFound, status)
}
