package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/observability"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

func newTestApp(t *testing.T) (*fiber.App, *observability.Metrics, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.New(core), metrics, 0)

	app.Get("/codes/:code", func(c *fiber.Ctx) error {
		err := &domain.InvalidCodeError{Code: c.Params("code"), Reason: domain.CodeExpired}
		return apperrors.WithCause(apperrors.NewNotFound("signup code", nil), err)
	})
	app.Post("/signup", func(c *fiber.Ctx) error {
		return &domain.InvalidCodeError{Code: "used", Reason: domain.CodeExhausted}
	})
	app.Post("/email", func(c *fiber.Ctx) error {
		return domain.ErrEmailTaken
	})
	return app, metrics, logs
}

func call(t *testing.T, app *fiber.App, method, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestErrorMiddlewareCountsCodeRejectionsByReason(t *testing.T) {
	app, metrics, logs := newTestApp(t)

	status, body := call(t, app, nethttp.MethodGet, "/codes/OLD")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "signup code not found", body["error"].(map[string]any)["message"])

	status, body = call(t, app, nethttp.MethodPost, "/signup")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "INVALID_SIGNUP_CODE", body["error"].(map[string]any)["code"])
	assert.NotContains(t, body["error"].(map[string]any)["message"], "exhausted")

	status, _ = call(t, app, nethttp.MethodPost, "/email")
	assert.Equal(t, nethttp.StatusConflict, status)

	expected := `
# HELP account_service_signup_code_rejections_total The total number of rejected signup codes by reason
# TYPE account_service_signup_code_rejections_total counter
account_service_signup_code_rejections_total{reason="exhausted"} 1
account_service_signup_code_rejections_total{reason="expired"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected),
		"account_service_signup_code_rejections_total"))

	rejected := logs.FilterMessage("signup code rejected").All()
	require.Len(t, rejected, 2)
	assert.Equal(t, "/codes/:code", rejected[0].ContextMap()["route"])
	assert.Equal(t, "expired", rejected[0].ContextMap()["reason"])
	assert.Equal(t, "/signup", rejected[1].ContextMap()["route"])
	assert.Equal(t, "exhausted", rejected[1].ContextMap()["reason"])
}
