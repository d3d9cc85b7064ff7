package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "middleware-secret"

func signToken(t *testing.T, userID string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, domain.AccessClaims{
		UserID: userID,
		Email:  userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestRequireAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/me", RequireAuth(secret), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + signToken(t, "u1", time.Hour), fiber.StatusOK, "u1"},
		{"missing header", "", fiber.StatusUnauthorized, ""},
		{"expired token", "Bearer " + signToken(t, "u1", -time.Minute), fiber.StatusUnauthorized, ""},
		{"garbage", "Bearer abc.def.ghi", fiber.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func newIdempotentApp(t *testing.T, hits *int32) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(UserIDKey, c.Get("X-User"))
		return c.Next()
	})
	app.Use(Idempotency(client, time.Hour, zap.NewNop()))
	app.Post("/complete", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(hits, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"n": n})
	})
	app.Post("/fail", func(c *fiber.Ctx) error {
		atomic.AddInt32(hits, 1)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "busy"})
	})
	return app, mr
}

func post(t *testing.T, app *fiber.App, path, user, key string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader("{}"))
	req.Header.Set("X-User", user)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header.Get(HeaderReplay)
}

func TestIdempotencyReplay(t *testing.T) {
	var hits int32
	app, mr := newIdempotentApp(t, &hits)

	status, body, replay := post(t, app, "/complete", "u1", "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, `{"n":1}`, body)
	assert.Empty(t, replay)

	status, body, replay = post(t, app, "/complete", "u1", "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, `{"n":1}`, body)
	assert.Equal(t, "true", replay)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// keys are scoped per user
	_, body, _ = post(t, app, "/complete", "u2", "k1")
	assert.JSONEq(t, `{"n":2}`, body)

	// no key, no replay
	_, body, _ = post(t, app, "/complete", "u1", "")
	assert.JSONEq(t, `{"n":3}`, body)

	mr.FastForward(2 * time.Hour)
	_, body, replay = post(t, app, "/complete", "u1", "k1")
	assert.JSONEq(t, `{"n":4}`, body)
	assert.Empty(t, replay)
}

func TestIdempotencySkipsFailures(t *testing.T) {
	var hits int32
	app, _ := newIdempotentApp(t, &hits)

	for i := 0; i < 2; i++ {
		status, _, replay := post(t, app, "/fail", "u1", "k1")
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Empty(t, replay)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestIdempotencyRedisDown(t *testing.T) {
	var hits int32
	app, mr := newIdempotentApp(t, &hits)
	mr.Close()

	status, _, _ := post(t, app, "/complete", "u1", "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	status, _, _ = post(t, app, "/complete", "u1", "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestIdempotencyKeyHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(IdempotencyKey(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderCorrelationID, "corr")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "corr", string(body))

	req.Header.Set(HeaderIdempotencyKey, "idem")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "idem", string(body))
}

func TestHTTPMetrics(t *testing.T) {
	m := NewHTTPMetrics("fittrack")
	app := fiber.New()
	app.Use(m.Handler())
	app.Get("/workouts/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/workouts/"+id, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/workouts/:id", "204")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}
