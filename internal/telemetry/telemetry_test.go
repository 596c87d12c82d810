package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitialize_Disabled(t *testing.T) {
	logger, _ := test.NewNullLogger()

	p, err := Initialize(context.Background(), Config{Enabled: false}, logger)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestBasicAuthHeaders(t *testing.T) {
	assert.Nil(t, BasicAuthHeaders("", ""))
	assert.Equal(t, map[string]string{"Authorization": "Basic MTIzOnRvaw=="}, BasicAuthHeaders("123", "tok"))
}

func TestFiberMiddleware_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	app := fiber.New()
	app.Use(FiberMiddleware())
	app.Post("/v1/sessions/:id/next", func(c *fiber.Ctx) error {
		SetSpanAttribute(c, "session.id", c.Params("id"))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/v1/sessions/4/next", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /v1/sessions/4/next", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "4", attrs["session.id"])
	assert.Equal(t, "200", attrs["http.response.status_code"])
}
