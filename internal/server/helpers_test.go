package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next     string
		expected string
	}{
		{"/follow/", "/follow/"},
		{"/posts/1/comment/", "/posts/1/comment/"},
		{"", "/"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.expected, safeNext(tt.next))
		})
	}
}

func TestIDParams(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(errorStatus(err)).SendString(err.Error())
	}})
	app.Get("/site/:id", func(c *fiber.Ctx) error {
		id, err := postIDParam(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id})
	})
	app.Get("/api/:id", func(c *fiber.Ctx) error {
		id, err := apiIDParam(c)
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/site/7", fiber.StatusOK},
		{"/site/0", fiber.StatusNotFound},
		{"/site/-3", fiber.StatusNotFound},
		{"/site/abc", fiber.StatusNotFound},
		{"/api/7", fiber.StatusOK},
		{"/api/abc", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestReadImageUploadWithoutFile(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		upload, err := readImageUpload(c, 1024)
		require.NoError(t, err)
		assert.Nil(t, upload)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
