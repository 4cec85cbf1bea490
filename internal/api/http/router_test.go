package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hse-tools/permit-service/internal/api/http/handlers"
	"github.com/hse-tools/permit-service/internal/auth"
	"github.com/hse-tools/permit-service/internal/config"
	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/events"
	"github.com/hse-tools/permit-service/internal/observability"
	"github.com/hse-tools/permit-service/internal/repository/memory"
	"github.com/hse-tools/permit-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokenManager("router-test-secret", 15)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	dispatcher := events.NewInMemoryDispatcher(nil)
	logger := zap.NewNop()

	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: 4}}
	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: store.Users(), TokenManager: tokens})
	itemService := service.NewItemService(service.ItemDependencies{ItemRepo: store.Items(), RequestRepo: store.Requests(), UserRepo: store.Users(), Dispatcher: dispatcher, Metrics: metrics, Logger: logger})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: store.Requests(),
		ItemRepo:    store.Items(),
		UserRepo:    store.Users(),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0, []string{"*"})
	requestsHandler := handlers.NewRequestsHandler(requestService)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("permit-service", "test", nil, nil),
		Auth:            handlers.NewAuthHandler(authService),
		Items:           handlers.NewItemsHandler(itemService),
		MOC:             handlers.NewMOCHandler(itemService),
		Requests:        requestsHandler,
		Contractors:     handlers.NewContractorsHandler(service.NewDirectoryService(store.Users()), requestsHandler),
		AuthMiddleware:  auth.NewAuthMiddleware(tokens),
		MetricsGatherer: registry,
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

func (s *testServer) user(t *testing.T, username string, role domain.Role) (string, string) {
	t.Helper()
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, s.store.Users().Create(context.Background(), user))
	token, err := s.tokens.GenerateToken(user)
	require.NoError(t, err)
	return user.ID, token.Value
}

type response struct {
	status int
	body   map[string]any
	raw    string
}

func (r response) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func (r response) list() []any {
	list, _ := r.body["data"].([]any)
	return list
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, raw: string(raw)}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body), out.raw)
	}
	return out
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)
	other := auth.NewTokenManager("another-secret", 15)
	forged, err := other.GenerateToken(&domain.User{ID: "2c4a1d8e-0000-4000-8000-000000000001", Role: domain.RoleHSE})
	require.NoError(t, err)

	resp := s.do(t, http.MethodGet, "/api/items", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "no token provided", resp.body["message"])
	assert.Equal(t, "FORBIDDEN", resp.body["code"])

	resp = s.do(t, http.MethodGet, "/api/items", forged.Value, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "UNAUTHENTICATED", resp.body["code"])
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "carla", "email": "carla@example.com", "password": "pa55word", "role": "Contractor",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	assert.NotEmpty(t, resp.data()["token"])

	resp = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "carla2", "email": "carla@example.com", "password": "pa55word", "role": "Contractor",
	})
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"username": "xyz"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "MISSING_FIELD", resp.body["code"])

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "carla", "password": "pa55word"})
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	token, _ := resp.data()["token"].(string)
	require.NotEmpty(t, token)

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "carla@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, "carla", resp.data()["username"])
	assert.Equal(t, "Contractor", resp.data()["role"])
	assert.NotContains(t, resp.raw, "password")
}

func TestMOCToJobStartedOverHTTP(t *testing.T) {
	s := newTestServer(t)
	contractorID, contractor := s.user(t, "carla", domain.RoleContractor)
	_, hse := s.user(t, "hana", domain.RoleHSE)

	resp := s.do(t, http.MethodPost, "/api/moc", contractor, map[string]any{
		"title": "Replace relief valve", "type": "MOC", "reasonForChange": "corrosion", "riskFactor": "medium",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	moc := resp.data()
	mocID := moc["id"].(string)
	assert.Equal(t, "Draft", moc["status"])
	assert.Equal(t, true, moc["isEditable"])
	assert.Equal(t, false, moc["canIssuePTW"])

	resp = s.do(t, http.MethodPut, "/api/moc/"+mocID+"/approve", hse, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "INVALID_TRANSITION", resp.body["code"])

	resp = s.do(t, http.MethodPut, "/api/moc/"+mocID+"/submit", contractor, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, true, resp.data()["isReviewable"])
	assert.NotNil(t, resp.data()["submittedAt"])

	resp = s.do(t, http.MethodPost, "/api/moc", hse, map[string]any{"title": "Permit", "type": "PTW", "mocId": mocID})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "PTW can only be created from approved MOC", resp.body["message"])

	resp = s.do(t, http.MethodPut, "/api/moc/"+mocID+"/approve", contractor, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = s.do(t, http.MethodPut, "/api/moc/"+mocID+"/approve", hse, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, "Approved", resp.data()["status"])
	assert.Equal(t, true, resp.data()["canIssuePTW"])

	resp = s.do(t, http.MethodPost, "/api/moc", hse, map[string]any{"title": "Hot work permit", "type": "PTW", "mocId": mocID})
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	ptwID := resp.data()["id"].(string)

	resp = s.do(t, http.MethodPut, "/api/moc/"+ptwID+"/submit", hse, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	resp = s.do(t, http.MethodPut, "/api/items/"+ptwID+"/approve", hse, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)

	resp = s.do(t, http.MethodPut, "/api/moc/"+ptwID+"/accept", contractor, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, "Job Started", resp.data()["status"])
	assert.NotNil(t, resp.data()["acceptedAt"])

	resp = s.do(t, http.MethodPut, "/api/moc/"+ptwID+"/accept", contractor, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = s.do(t, http.MethodGet, "/api/moc/moc/"+mocID, contractor, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, ptwID, resp.data()["id"])
	mocOwner, _ := resp.data()["mocOwner"].(map[string]any)
	assert.Equal(t, contractorID, mocOwner["id"])
	issuer, _ := resp.data()["createdBy"].(map[string]any)
	assert.Equal(t, "hana", issuer["username"])

	resp = s.do(t, http.MethodGet, "/api/moc/job-started", contractor, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)

	resp = s.do(t, http.MethodGet, "/api/moc/jobStarted", hse, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)

	resp = s.do(t, http.MethodDelete, "/api/items/"+mocID, hse, nil)
	assert.Equal(t, http.StatusConflict, resp.status)
}

func TestItemsRoutes(t *testing.T) {
	s := newTestServer(t)
	_, contractor := s.user(t, "carla", domain.RoleContractor)
	_, other := s.user(t, "omar", domain.RoleContractor)
	_, hse := s.user(t, "hana", domain.RoleHSE)

	resp := s.do(t, http.MethodPost, "/api/items", contractor, map[string]any{"title": "x", "type": "MOC"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = s.do(t, http.MethodPost, "/api/moc", contractor, map[string]any{"title": "t"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "INVALID_TYPE", resp.body["code"])

	resp = s.do(t, http.MethodPost, "/api/moc", contractor, map[string]any{"title": "t", "type": "MOC", "assignedTo": "nobody"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "VALIDATION_FAILED", resp.body["code"])

	resp = s.do(t, http.MethodPost, "/api/moc", hse, map[string]any{"title": "x", "type": "JSA"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "INVALID_TYPE", resp.body["code"])

	for _, title := range []string{"Pump swap", "Pipe rerouting"} {
		resp = s.do(t, http.MethodPost, "/api/moc", contractor, map[string]any{"title": title, "type": "MOC"})
		require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	}
	resp = s.do(t, http.MethodPost, "/api/moc", other, map[string]any{"title": "Pump tweak", "type": "MOC"})
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	otherID := resp.data()["id"].(string)

	resp = s.do(t, http.MethodGet, "/api/items", contractor, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 2)

	resp = s.do(t, http.MethodGet, "/api/items?type=MOC&search=pump", hse, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 2)

	resp = s.do(t, http.MethodGet, "/api/items?status=Closed", hse, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = s.do(t, http.MethodGet, "/api/moc/contractor", other, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)

	resp = s.do(t, http.MethodPut, "/api/items/"+otherID, hse, map[string]any{"title": "Pump tweak v2", "status": "Approved"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "INVALID_TRANSITION", resp.body["code"])

	resp = s.do(t, http.MethodPut, "/api/items/"+otherID, contractor, map[string]any{"status": "Approved"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = s.do(t, http.MethodPut, "/api/items/"+otherID, other, map[string]any{"status": "Submitted"})
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, "Submitted", resp.data()["status"])

	resp = s.do(t, http.MethodPut, "/api/items/"+otherID, hse, map[string]any{"title": "Pump tweak v2"})
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, "Pump tweak v2", resp.data()["title"])
	assert.Equal(t, "MOC", resp.data()["type"])

	resp = s.do(t, http.MethodGet, "/api/items/"+otherID, contractor, nil)
	require.Equal(t, http.StatusOK, resp.status)

	resp = s.do(t, http.MethodDelete, "/api/items/"+otherID, contractor, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)
	resp = s.do(t, http.MethodDelete, "/api/items/"+otherID, hse, nil)
	assert.Equal(t, http.StatusOK, resp.status)
	resp = s.do(t, http.MethodGet, "/api/items/"+otherID, hse, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestRequestsAndContractors(t *testing.T) {
	s := newTestServer(t)
	contractorID, contractor := s.user(t, "carla", domain.RoleContractor)
	_, other := s.user(t, "omar", domain.RoleContractor)
	_, hse := s.user(t, "hana", domain.RoleHSE)

	resp := s.do(t, http.MethodPost, "/api/moc", contractor, map[string]any{"title": "Crane lift", "type": "MOC"})
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	itemID := resp.data()["id"].(string)

	resp = s.do(t, http.MethodGet, "/api/contractors", contractor, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = s.do(t, http.MethodGet, "/api/contractors", hse, nil)
	require.Equal(t, http.StatusOK, resp.status)
	require.Len(t, resp.list(), 2)
	assert.Equal(t, "carla", resp.list()[0].(map[string]any)["username"])

	resp = s.do(t, http.MethodGet, "/api/contractors/"+contractorID, hse, nil)
	require.Equal(t, http.StatusOK, resp.status)

	resp = s.do(t, http.MethodPost, "/api/requests", hse, map[string]any{"contractorId": contractorID})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "MISSING_FIELD", resp.body["code"])

	resp = s.do(t, http.MethodPost, "/api/requests", contractor, map[string]any{"contractorId": contractorID, "itemId": itemID})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = s.do(t, http.MethodPost, "/api/contractors/sendRequests", hse, map[string]any{"contractorId": contractorID, "itemId": itemID})
	require.Equal(t, http.StatusCreated, resp.status, resp.raw)
	requestID := resp.data()["id"].(string)
	assert.Equal(t, "Pending", resp.data()["status"])
	item, _ := resp.data()["item"].(map[string]any)
	assert.Equal(t, "Crane lift", item["title"])

	resp = s.do(t, http.MethodGet, "/api/requests", other, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, resp.list())

	resp = s.do(t, http.MethodPut, "/api/requests/"+requestID, other, map[string]any{"status": "Accepted"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = s.do(t, http.MethodPut, "/api/requests/"+requestID, contractor, map[string]any{"status": "Accepted"})
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.Equal(t, "Accepted", resp.data()["status"])

	resp = s.do(t, http.MethodGet, "/api/requests/"+requestID, hse, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "Accepted", resp.data()["status"])

	resp = s.do(t, http.MethodDelete, "/api/items/"+itemID, hse, nil)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "CONFLICT", resp.body["code"])
	resp = s.do(t, http.MethodGet, "/api/requests/"+requestID, hse, nil)
	assert.Equal(t, http.StatusOK, resp.status)
}

func TestHealthMetricsAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	resp = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "NOT_FOUND", resp.body["code"])

	resp = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.raw, "permit_http_requests_total")
	assert.Contains(t, resp.raw, `permit_errors_total{code="NOT_FOUND"} 1`)
}
