package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
)

type envelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "client app error keeps message",
			err:         domain.ErrInvalidContentType.WithError(errors.New("text/plain")),
			wantStatus:  400,
			wantCode:    "INVALID_CONTENT_TYPE",
			wantMessage: "File must be an image.",
		},
		{
			name:        "server app error exposes cause",
			err:         domain.ErrImageDecode.WithError(errors.New("image: unknown format")),
			wantStatus:  500,
			wantCode:    "IMAGE_DECODE_FAILED",
			wantMessage: "image: unknown format",
		},
		{
			name:        "fiber error",
			err:         fiber.ErrRequestEntityTooLarge,
			wantStatus:  413,
			wantCode:    "HTTP_ERROR",
			wantMessage: fiber.ErrRequestEntityTooLarge.Message,
		},
		{
			name:        "plain error",
			err:         errors.New("boom"),
			wantStatus:  500,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
		})
	}
}

func TestRecover(t *testing.T) {
	app := fiber.New()
	app.Use(Recover(testLogger()))
	app.Get("/", func(c *fiber.Ctx) error { panic("nil tensor") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestLogger(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalRequestID, "req-1")
		return c.Next()
	})
	app.Use(Logger(logger))
	app.Get("/missing", func(c *fiber.Ctx) error { return c.SendStatus(404) })

	_, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
}
