package app_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storekode/internal/app"
	"storekode/internal/config"
	"storekode/internal/database"
	"storekode/internal/models"
	"storekode/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "app_test_jwt_secret_value"

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Env:            "local",
		AppPort:        ":0",
		DatabaseDriver: "sqlite",
		DatabaseDSN:    dsn,
		JWTSecret:      testJWTSecret,
		BcryptCost:     4,
		LogLevel:       "error",
		CORSOrigins:    "*",
		MetricsEnabled: true,
	}
	require.NoError(t, cfg.Validate())

	return app.New(app.Deps{
		Config: cfg,
		DB:     db,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func do(t *testing.T, a *fiber.App, method, path, token string, payload any) response {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

type account struct {
	id    string
	email string
	token string
}

func signUp(t *testing.T, a *fiber.App, email string) account {
	t.Helper()
	resp := do(t, a, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "storeowner",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	user := resp.body["user"].(map[string]any)
	return account{id: user["id"].(string), email: email, token: resp.body["token"].(string)}
}

func newStore(pid string) map[string]any {
	body := map[string]any{
		"storeName": "Corner Shop",
		"address":   "12 Market Road",
		"city":      "Pune",
		"pincode":   "411001",
		"state":     "Maharashtra",
		"latitude":  18.52,
		"longitude": 73.85,
	}
	if pid != "" {
		body["googleReviewPid"] = pid
	}
	return body
}

func TestAuthFlow(t *testing.T) {
	a := setupApp(t)

	resp := do(t, a, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "storeowner",
		"email":    "owner@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.status)
	assert.NotEmpty(t, resp.body["token"])
	assert.NotEmpty(t, resp.body["expiresAt"])
	user := resp.body["user"].(map[string]any)
	assert.ElementsMatch(t, []string{"id", "username", "email"}, keys(user))

	dup := do(t, a, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "someoneelse",
		"email":    "OWNER@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, dup.status)
	assert.Equal(t, "User already exists", dup.body["message"])

	wrong := do(t, a, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email": "owner@example.com", "password": "not-the-password",
	})
	unknown := do(t, a, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email": "ghost@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, wrong.status)
	assert.Equal(t, wrong.status, unknown.status)
	assert.Equal(t, wrong.body, unknown.body)

	ok := do(t, a, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email": "owner@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, ok.status)
	token := ok.body["token"].(string)

	list := do(t, a, http.MethodGet, "/v1/stores", token, nil)
	assert.Equal(t, http.StatusOK, list.status)
}

func TestStoreLifecycle(t *testing.T) {
	a := setupApp(t)
	owner := signUp(t, a, "owner@example.com")

	created := do(t, a, http.MethodPost, "/v1/stores", owner.token, newStore("ChIJ-lifecycle"))
	require.Equal(t, http.StatusCreated, created.status, created.body)
	store := created.body["store"].(map[string]any)
	id := store["id"].(string)
	assert.Equal(t, owner.id, store["createdBy"])
	assert.Equal(t, true, store["isActive"])
	assert.Equal(t, map[string]any{"latitude": 18.52, "longitude": 73.85}, store["location"])

	got := do(t, a, http.MethodGet, "/v1/stores/"+id, owner.token, nil)
	assert.Equal(t, http.StatusOK, got.status)

	updated := do(t, a, http.MethodPatch, "/v1/stores/"+id, owner.token, map[string]any{
		"storeName": "Corner Shop Deluxe",
		"latitude":  19.07,
		"longitude": 72.87,
	})
	require.Equal(t, http.StatusOK, updated.status, updated.body)
	patched := updated.body["store"].(map[string]any)
	assert.Equal(t, "Corner Shop Deluxe", patched["storeName"])
	assert.Equal(t, "Pune", patched["city"])
	assert.Equal(t, map[string]any{"latitude": 19.07, "longitude": 72.87}, patched["location"])

	// A duplicate PID is refused while the holder is active.
	dup := do(t, a, http.MethodPost, "/v1/stores", owner.token, newStore("ChIJ-lifecycle"))
	assert.Equal(t, http.StatusBadRequest, dup.status)

	deleted := do(t, a, http.MethodDelete, "/v1/stores/"+id, owner.token, nil)
	require.Equal(t, http.StatusOK, deleted.status)
	assert.Equal(t, false, deleted.body["store"].(map[string]any)["isActive"])

	again := do(t, a, http.MethodDelete, "/v1/stores/"+id, owner.token, nil)
	assert.Equal(t, http.StatusOK, again.status, "soft delete is idempotent")

	// The partial index frees the PID once the holder is inactive.
	reused := do(t, a, http.MethodPost, "/v1/stores", owner.token, newStore("ChIJ-lifecycle"))
	assert.Equal(t, http.StatusCreated, reused.status, reused.body)

	revive := do(t, a, http.MethodPatch, "/v1/stores/"+id, owner.token, map[string]any{"isActive": true})
	assert.Equal(t, http.StatusBadRequest, revive.status)

	active := do(t, a, http.MethodGet, "/v1/stores?active=true", owner.token, nil)
	assert.EqualValues(t, 1, active.body["count"])
	all := do(t, a, http.MethodGet, "/v1/stores", owner.token, nil)
	assert.EqualValues(t, 2, all.body["count"])
}

func TestStoreOwnership(t *testing.T) {
	a := setupApp(t)
	owner := signUp(t, a, "owner@example.com")
	stranger := signUp(t, a, "stranger@example.com")

	created := do(t, a, http.MethodPost, "/v1/stores", owner.token, newStore(""))
	require.Equal(t, http.StatusCreated, created.status)
	id := created.body["store"].(map[string]any)["id"].(string)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp := do(t, a, method, "/v1/stores/"+id, stranger.token, nil)
		assert.Equal(t, http.StatusNotFound, resp.status, method)
	}
	patch := do(t, a, http.MethodPatch, "/v1/stores/"+id, stranger.token, map[string]any{"city": "Goa"})
	assert.Equal(t, http.StatusNotFound, patch.status)

	list := do(t, a, http.MethodGet, "/v1/stores", stranger.token, nil)
	assert.EqualValues(t, 0, list.body["count"])

	mine := do(t, a, http.MethodGet, "/v1/stores/"+id, owner.token, nil)
	require.Equal(t, http.StatusOK, mine.status)
	store := mine.body["store"].(map[string]any)
	assert.Equal(t, "Pune", store["city"])
	assert.Equal(t, true, store["isActive"])

	invalid := do(t, a, http.MethodGet, "/v1/stores/12345", owner.token, nil)
	assert.Equal(t, http.StatusBadRequest, invalid.status)
	assert.Equal(t, "Invalid store ID", invalid.body["message"])
}

func TestAuthenticationGate(t *testing.T) {
	a := setupApp(t)
	owner := signUp(t, a, "owner@example.com")

	missing := do(t, a, http.MethodGet, "/v1/stores", "", nil)
	assert.Equal(t, http.StatusUnauthorized, missing.status)
	assert.Equal(t, "Authentication failed", missing.body["message"])

	forged, _, err := services.NewTokenService("some_other_secret_value").
		Issue(&models.User{ID: owner.id, Email: owner.email})
	require.NoError(t, err)
	bad := do(t, a, http.MethodGet, "/v1/stores", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, bad.status)
	assert.Equal(t, "Authentication failed", bad.body["message"])

	issuedAt := time.Now().Add(-2 * services.TokenTTL)
	expired, _, err := services.NewTokenService(testJWTSecret, services.WithClock(func() time.Time { return issuedAt })).
		Issue(&models.User{ID: owner.id, Email: owner.email})
	require.NoError(t, err)
	old := do(t, a, http.MethodGet, "/v1/stores", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, old.status)
	assert.Equal(t, "Token expired", old.body["message"])

	orphan, _, err := services.NewTokenService(testJWTSecret).
		Issue(&models.User{ID: uuid.NewString(), Email: "ghost@example.com"})
	require.NoError(t, err)
	gone := do(t, a, http.MethodGet, "/v1/stores", orphan, nil)
	assert.Equal(t, http.StatusUnauthorized, gone.status)
	assert.Equal(t, "Authentication failed", gone.body["message"])
}

func TestOperationalEndpoints(t *testing.T) {
	a := setupApp(t)

	health := do(t, a, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, health.status)
	assert.Equal(t, "healthy", health.body["status"])
	assert.NotEmpty(t, health.header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := a.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "storekode_http_requests_total")

	notFound := do(t, a, http.MethodGet, "/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, notFound.status)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestStoreReviewPIDPatch(t *testing.T) {
	a := setupApp(t)
	owner := signUp(t, a, "owner@example.com")

	holder := do(t, a, http.MethodPost, "/v1/stores", owner.token, newStore("ChIJ-holder"))
	require.Equal(t, http.StatusCreated, holder.status, holder.body)

	plain := do(t, a, http.MethodPost, "/v1/stores", owner.token, newStore(""))
	require.Equal(t, http.StatusCreated, plain.status, plain.body)
	id := plain.body["store"].(map[string]any)["id"].(string)

	set := do(t, a, http.MethodPatch, "/v1/stores/"+id, owner.token, map[string]any{"googleReviewPid": "ChIJ-mine"})
	require.Equal(t, http.StatusOK, set.status, set.body)

	got := do(t, a, http.MethodGet, "/v1/stores/"+id, owner.token, nil)
	assert.Equal(t, "ChIJ-mine", got.body["store"].(map[string]any)["googleReviewPid"])

	conflict := do(t, a, http.MethodPatch, "/v1/stores/"+id, owner.token, map[string]any{"googleReviewPid": "ChIJ-holder"})
	assert.Equal(t, http.StatusBadRequest, conflict.status)
	assert.Equal(t, "A store with this Google Review PID already exists", conflict.body["message"])

	cleared := do(t, a, http.MethodPatch, "/v1/stores/"+id, owner.token, map[string]any{"googleReviewPid": ""})
	require.Equal(t, http.StatusOK, cleared.status)
	got = do(t, a, http.MethodGet, "/v1/stores/"+id, owner.token, nil)
	assert.NotContains(t, got.body["store"], "googleReviewPid")
}
