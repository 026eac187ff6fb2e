package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(Config{AllowedContentTypes: []string{fiber.MIMEApplicationJSON, fiber.MIMETextHTML}}))
	app.All("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{name: "get passes", method: "GET", want: fiber.StatusNoContent},
		{name: "valid json", method: "POST", contentType: "application/json", body: `{"question":"hi"}`, want: fiber.StatusNoContent},
		{name: "json with charset", method: "PUT", contentType: "application/json; charset=utf-8", body: `{}`, want: fiber.StatusNoContent},
		{name: "malformed json", method: "POST", contentType: "application/json", body: `{"question":`, want: fiber.StatusBadRequest},
		{name: "html allowed", method: "POST", contentType: "text/html", body: "<p>hello</p>", want: fiber.StatusNoContent},
		{name: "xml rejected", method: "POST", contentType: "application/xml", body: "<a/>", want: fiber.StatusUnsupportedMediaType},
		{name: "empty body passes", method: "DELETE", want: fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
