package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/credit-line-service/internal/api/http"
	"github.com/spec-kit/credit-line-service/internal/api/http/handlers"
	"github.com/spec-kit/credit-line-service/internal/auth"
	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/events"
	"github.com/spec-kit/credit-line-service/internal/observability"
	"github.com/spec-kit/credit-line-service/internal/persistence"
	"github.com/spec-kit/credit-line-service/internal/repository"
	"github.com/spec-kit/credit-line-service/internal/service"
)

// fakeStore backs the in-memory repositories used by the handler tests.
type fakeStore struct {
	mu     sync.Mutex
	seq    int
	users  map[string]domain.User
	apps   map[string]domain.Application
	ledger []domain.LedgerEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]domain.User),
		apps:  make(map[string]domain.Application),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type fakeRunner struct{}

func (fakeRunner) WithinTx(ctx context.Context, fn func(q persistence.Querier) error) error {
	return fn(nil)
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) WithTx(q persistence.Querier) repository.UserRepository { return r }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = r.store.nextID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]domain.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		result = append(result, user)
	}
	return result, nil
}

type fakeApplicationRepo struct{ store *fakeStore }

func (r *fakeApplicationRepo) WithTx(q persistence.Querier) repository.ApplicationRepository {
	return r
}

func (r *fakeApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	app.ID = r.store.nextID("app")
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	r.store.apps[app.ID] = *app
	return nil
}

func (r *fakeApplicationRepo) Update(ctx context.Context, app *domain.Application) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.apps[app.ID]; !ok {
		return pgx.ErrNoRows
	}
	app.UpdatedAt = time.Now()
	r.store.apps[app.ID] = *app
	return nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	app, ok := r.store.apps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &app, nil
}

func (r *fakeApplicationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Application, error) {
	return r.ListWithFilter(ctx, repository.ApplicationFilter{UserID: &userID})
}

func (r *fakeApplicationRepo) ListWithFilter(ctx context.Context, filter repository.ApplicationFilter) ([]domain.Application, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Application
	for _, app := range r.store.apps {
		if filter.UserID != nil && app.UserID != *filter.UserID {
			continue
		}
		result = append(result, app)
	}
	return result, nil
}

func (r *fakeApplicationRepo) TransitionStatus(ctx context.Context, id string, expected, next domain.ApplicationStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	app, ok := r.store.apps[id]
	if !ok || app.Status != expected {
		return false, nil
	}
	app.Status = next
	app.UpdatedAt = time.Now()
	r.store.apps[id] = app
	return true, nil
}

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) WithTx(q persistence.Querier) repository.LedgerRepository { return r }

func (r *fakeLedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.ID = r.store.nextID("ledger")
	entry.CreatedAt = time.Now()
	r.store.ledger = append(r.store.ledger, *entry)
	return nil
}

func (r *fakeLedgerRepo) ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.LedgerEntry
	for i := len(r.store.ledger) - 1; i >= 0; i-- {
		if r.store.ledger[i].ApplicationID == applicationID {
			result = append(result, r.store.ledger[i])
		}
	}
	return result, nil
}

const testAdminPassword = "operator-secret"

func newTestApp(t *testing.T) (*fiber.App, *fakeStore, *auth.TokenManager, *observability.Metrics) {
	t.Helper()

	store := newFakeStore()
	userRepo := &fakeUserRepo{store: store}
	appRepo := &fakeApplicationRepo{store: store}
	ledgerRepo := &fakeLedgerRepo{store: store}

	userService := service.NewUserService(userRepo)
	applicationService := service.NewApplicationService(service.ApplicationDependencies{
		Runner:          fakeRunner{},
		ApplicationRepo: appRepo,
		UserRepo:        userRepo,
		LedgerRepo:      ledgerRepo,
		Dispatcher:      events.NewInMemoryDispatcher(),
	})

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	passwordHash, err := auth.HashPassword(testAdminPassword, 4)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:         handlers.NewHealthHandler("credit-line-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(tokens, passwordHash),
		Users:          handlers.NewUsersHandler(userService, applicationService),
		Applications:   handlers.NewApplicationsHandler(applicationService),
		AuthMiddleware: auth.NewMiddleware(tokens),
	})
	return app, store, tokens, metrics
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func dataField(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return data
}

func errorCodeField(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func seedUser(store *fakeStore, creditLimit int64) string {
	store.mu.Lock()
	defer store.mu.Unlock()
	id := store.nextID("user")
	store.users[id] = domain.User{
		ID:          id,
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       fmt.Sprintf("%s@example.com", id),
		CreditLimit: creditLimit,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	return id
}

func adminHeader(t *testing.T, tokens *auth.TokenManager) map[string]string {
	t.Helper()
	token, _, err := tokens.GenerateAdminToken()
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRouter_Liveness(t *testing.T) {
	app, _, _, metrics := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", nil, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, int64(1), metrics.RequestTotal("/health/live", http.MethodGet, http.StatusOK))
}

func TestRouter_Readiness(t *testing.T) {
	// No postgres pool configured: the ledger store is down, so the probe
	// fails; redis is reported degraded without affecting readiness.
	app, _, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health/ready", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	details, ok := errObj["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["postgres"], "not configured")
	assert.Contains(t, details["redis"], "degraded")
}

func TestRouter_AdminTokenExchange(t *testing.T) {
	app, _, _, _ := newTestApp(t)

	t.Run("ValidPassword", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/auth/admin/token",
			map[string]any{"password": testAdminPassword}, nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := dataField(t, body)
		assert.NotEmpty(t, data["token"])
	})

	t.Run("WrongPassword", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/auth/admin/token",
			map[string]any{"password": "nope"}, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", errorCodeField(t, body))
	})
}

func TestRouter_AdminGate(t *testing.T) {
	app, _, tokens, _ := newTestApp(t)

	t.Run("MissingToken", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/applications", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", errorCodeField(t, body))
	})

	t.Run("MalformedToken", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/applications", nil,
			map[string]string{"Authorization": "Bearer garbage"})

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", errorCodeField(t, body))
	})

	t.Run("AdminToken", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/applications", nil, adminHeader(t, tokens))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_, hasData := body["data"]
		assert.True(t, hasData)
	})
}

func TestRouter_UserProvisioning(t *testing.T) {
	app, _, tokens, _ := newTestApp(t)

	payload := map[string]any{
		"first_name":   "Grace",
		"last_name":    "Hopper",
		"email":        "grace@example.com",
		"credit_limit": 100000,
	}

	resp, _ := doJSON(t, app, http.MethodPost, "/users", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/users", payload, adminHeader(t, tokens))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataField(t, body)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "grace@example.com", data["email"])

	userID := data["id"].(string)
	resp, body = doJSON(t, app, http.MethodGet, "/users/"+userID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100000), dataField(t, body)["credit_limit"])
}

func TestRouter_ApplicationLifecycle(t *testing.T) {
	app, store, _, _ := newTestApp(t)
	userID := seedUser(store, 100000)

	resp, body := doJSON(t, app, http.MethodPost, "/applications", map[string]any{
		"user_id":          userID,
		"requested_amount": 50000,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appID := dataField(t, body)["id"].(string)
	assert.Equal(t, "OPEN", dataField(t, body)["status"])

	resp, body = doJSON(t, app, http.MethodPost, "/applications/"+appID+"/disburse", map[string]any{
		"amount": 30000,
		"tip":    500,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OUTSTANDING", dataField(t, body)["status"])
	assert.Equal(t, float64(30500), dataField(t, body)["disbursed_amount"])

	resp, body = doJSON(t, app, http.MethodPost, "/applications/"+appID+"/repay", map[string]any{
		"amount": 30500,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "REPAID", dataField(t, body)["status"])
	assert.Equal(t, float64(0), dataField(t, body)["disbursed_amount"])

	resp, body = doJSON(t, app, http.MethodGet, "/applications/"+appID+"/ledger", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	app, store, _, _ := newTestApp(t)

	t.Run("NotFound", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/applications/app-404", nil, nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", errorCodeField(t, body))
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		userID := seedUser(store, 1000)

		resp, body := doJSON(t, app, http.MethodPost, "/applications", map[string]any{
			"user_id":          userID,
			"requested_amount": 500,
		}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		appID := dataField(t, body)["id"].(string)

		resp, body = doJSON(t, app, http.MethodPost, "/applications/"+appID+"/disburse", map[string]any{
			"amount": 5000,
		}, nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "LIMIT_EXCEEDED", errorCodeField(t, body))

		// the claim is rolled back: the application is OPEN again
		resp, body = doJSON(t, app, http.MethodGet, "/applications/"+appID, nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OPEN", dataField(t, body)["status"])
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/applications", map[string]any{
			"requested_amount": 500,
		}, nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", errorCodeField(t, body))
	})
}

func TestRouter_RejectRequiresAdmin(t *testing.T) {
	app, store, tokens, _ := newTestApp(t)
	userID := seedUser(store, 100000)

	resp, body := doJSON(t, app, http.MethodPost, "/applications", map[string]any{
		"user_id":          userID,
		"requested_amount": 1000,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appID := dataField(t, body)["id"].(string)

	resp, _ = doJSON(t, app, http.MethodPost, "/applications/"+appID+"/reject", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/applications/"+appID+"/reject", nil, adminHeader(t, tokens))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "REJECTED", dataField(t, body)["status"])
}
