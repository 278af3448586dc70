package httpserver

import (
	"bytes"
	"encoding/json"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sciencehub/internal/handler"
	"sciencehub/internal/repository/memstore"
	"sciencehub/internal/service/application"
	"sciencehub/internal/service/chat"
	"sciencehub/internal/service/profile"
	"sciencehub/internal/service/project"
	"sciencehub/internal/service/review"
	"sciencehub/pkg/util"
)

const (
	testSecret   = "test-secret"
	testAudience = "authenticated"
)

type testServer struct {
	t      *testing.T
	store  *memstore.Store
	router *Router
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	store := memstore.New()

	profiles := profile.NewService(store, logger)
	applications := application.NewService(store, store, logger)
	h := Handlers{
		Profile:     handler.NewProfileHandler(profiles, logger),
		Project:     handler.NewProjectHandler(project.NewService(store, logger), logger),
		Application: handler.NewApplicationHandler(applications, logger),
		Chat:        handler.NewChatHandler(chat.NewService(store, store, logger), logger),
		Review:      handler.NewReviewHandler(review.NewService(store, store, logger), logger),
	}

	opts.JWTSecret = testSecret
	opts.JWTAudience = testAudience
	return &testServer{t: t, store: store, router: NewRouter(h, profiles, opts, logger)}
}

func (s *testServer) token(userID string) string {
	tok, err := util.GenerateJWT(userID, userID+"@example.com", testSecret, testAudience, time.Hour)
	require.NoError(s.t, err)
	return tok
}

// do sends a request as userID (empty for anonymous) and decodes the JSON
// response body into a map.
func (s *testServer) do(method, path, userID string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func field(t *testing.T, body map[string]interface{}, envelope, key string) interface{} {
	t.Helper()
	obj, ok := body[envelope].(map[string]interface{})
	require.True(t, ok, "missing %q envelope in %v", envelope, body)
	return obj[key]
}

// onboard creates a company "co" and a researcher "re" through the API.
func (s *testServer) onboard() {
	t := s.t
	code, body := s.do(http.MethodPost, "/create-profile", "co", gin.H{"role": "company"})
	require.Equal(t, http.StatusCreated, code, body)
	code, body = s.do(http.MethodPut, "/profile", "co", gin.H{"company_name": "Acme"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(http.MethodPost, "/create-profile", "re", gin.H{"role": "researcher"})
	require.Equal(t, http.StatusCreated, code, body)
	code, body = s.do(http.MethodPut, "/profile", "re", gin.H{"first_name": "Ada", "last_name": "Lovelace"})
	require.Equal(t, http.StatusOK, code, body)
}

func (s *testServer) publishProject() string {
	code, body := s.do(http.MethodPost, "/projects", "co", gin.H{
		"title":           "Genome assembly",
		"description":     "Assemble a bacterial genome",
		"skills_required": []string{"bioinformatics"},
		"budget_min":      1000,
		"budget_max":      5000,
		"status":          "published",
	})
	require.Equal(s.t, http.StatusCreated, code, body)
	return field(s.t, body, "project", "id").(string)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})

	code, body := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = s.do(http.MethodHead, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyzReportsDependencyFailure(t *testing.T) {
	s := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})

	code, body := s.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body["status"])
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t, Options{})

	code, body := s.do(http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, body["error"])

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMethodNotAllowedAndPreflight(t *testing.T) {
	s := newTestServer(t, Options{})

	code, body := s.do(http.MethodPatch, "/projects", "co", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "method not allowed", body["error"])

	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestProfileRequiredForRoleActions(t *testing.T) {
	s := newTestServer(t, Options{})

	code, body := s.do(http.MethodPost, "/projects", "nobody", gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "insufficient permissions: project:create", body["error"])

	code, _ = s.do(http.MethodPut, "/profile", "nobody", gin.H{"company_name": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPost, "/create-profile", "nobody", gin.H{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProjectUpdateClearsBudget(t *testing.T) {
	s := newTestServer(t, Options{})
	s.onboard()
	id := s.publishProject()

	code, body := s.do(http.MethodPut, "/projects/"+id, "co", gin.H{"budget_min": 6000, "budget_max": nil})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 6000.0, field(t, body, "project", "budget_min"))
	assert.Nil(t, field(t, body, "project", "budget_max"))

	code, body = s.do(http.MethodPut, "/projects/"+id, "co", gin.H{"title": "Genome assembly v2"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 6000.0, field(t, body, "project", "budget_min"))
	assert.Nil(t, field(t, body, "project", "budget_max"))
}

func TestProjectVisibility(t *testing.T) {
	s := newTestServer(t, Options{})
	s.onboard()

	code, body := s.do(http.MethodPost, "/projects", "co", gin.H{"title": "Hidden"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "draft", field(t, body, "project", "status"))
	published := s.publishProject()

	code, body = s.do(http.MethodGet, "/projects", "re", nil)
	require.Equal(t, http.StatusOK, code)
	projects := body["projects"].([]interface{})
	require.Len(t, projects, 1)
	assert.Equal(t, published, projects[0].(map[string]interface{})["id"])

	code, body = s.do(http.MethodGet, "/projects", "co", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["projects"], 2)

	code, _ = s.do(http.MethodDelete, "/projects/"+published, "re", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(http.MethodPost, "/projects", "co", gin.H{"title": "Bad", "budget_min": 10, "budget_max": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])
}

func TestApplyAcceptAndChat(t *testing.T) {
	s := newTestServer(t, Options{})
	s.onboard()
	projectID := s.publishProject()

	code, body := s.do(http.MethodPost, "/applications", "re", gin.H{"project_id": projectID, "cover_letter": "I can help"})
	require.Equal(t, http.StatusCreated, code, body)
	appID := field(t, body, "application", "id").(string)
	assert.Equal(t, "pending", field(t, body, "application", "status"))

	code, _ = s.do(http.MethodPost, "/applications", "re", gin.H{"project_id": projectID, "cover_letter": "again"})
	assert.Equal(t, http.StatusBadRequest, code)

	// The company cannot edit application fields.
	code, _ = s.do(http.MethodPut, "/applications/"+appID, "co", gin.H{"cover_letter": "edited"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(http.MethodPut, "/applications/"+appID, "co", gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "accepted", field(t, body, "application", "status"))
	require.Len(t, s.store.AcceptedEvents(), 1)
	assert.Equal(t, appID, s.store.AcceptedEvents()[0].ApplicationID)

	// Accepted is terminal.
	code, _ = s.do(http.MethodPut, "/applications/"+appID, "re", gin.H{"status": "withdrawn"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodDelete, "/applications/"+appID, "re", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(http.MethodPost, "/chats", "re", gin.H{"application_id": appID})
	require.Equal(t, http.StatusCreated, code, body)
	chatID := field(t, body, "chat", "id").(string)

	code, _ = s.do(http.MethodPost, "/chats", "co", gin.H{"application_id": appID})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(http.MethodPost, "/chats/"+chatID+"/messages", "co", gin.H{"content": "Welcome aboard"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "text", field(t, body, "message", "message_type"))

	code, body = s.do(http.MethodGet, "/chats", "re", nil)
	require.Equal(t, http.StatusOK, code)
	chats := body["chats"].([]interface{})
	require.Len(t, chats, 1)
	assert.EqualValues(t, 1, chats[0].(map[string]interface{})["unread_count"])

	code, body = s.do(http.MethodGet, "/chats/"+chatID+"/messages", "re", nil)
	require.Equal(t, http.StatusOK, code)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	messageID := messages[0].(map[string]interface{})["id"].(string)

	code, _ = s.do(http.MethodPost, "/chats/"+chatID+"/read", "re", gin.H{"message_id": messageID})
	require.Equal(t, http.StatusOK, code)
	_, body = s.do(http.MethodGet, "/chats", "re", nil)
	assert.EqualValues(t, 0, body["chats"].([]interface{})[0].(map[string]interface{})["unread_count"])

	// Closed chats reject new messages.
	code, _ = s.do(http.MethodPut, "/chats/"+chatID, "co", gin.H{"status": "closed"})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/chats/"+chatID+"/messages", "re", gin.H{"content": "still there?"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/chats/"+chatID, "outsider", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestReviewsAfterAcceptance(t *testing.T) {
	s := newTestServer(t, Options{})
	s.onboard()
	projectID := s.publishProject()

	_, body := s.do(http.MethodPost, "/applications", "re", gin.H{"project_id": projectID, "cover_letter": "hi"})
	appID := field(t, body, "application", "id").(string)

	code, _ := s.do(http.MethodPost, "/reviews", "co", gin.H{"application_id": appID, "reviewee_id": "re", "rating": 5})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPut, "/applications/"+appID, "co", gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(http.MethodPost, "/reviews", "co", gin.H{"application_id": appID, "reviewee_id": "re", "rating": 5, "comment": "Great work"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "re", field(t, body, "review", "reviewee_id"))

	code, _ = s.do(http.MethodPost, "/reviews", "co", gin.H{"application_id": appID, "reviewee_id": "re", "rating": 4})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(http.MethodGet, "/reviews?user_id=re", "outsider", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["reviews"], 1)
}

func TestMessageRateLimit(t *testing.T) {
	s := newTestServer(t, Options{MessageLimiter: NewUserRateLimiter(0.001, 1)})
	s.onboard()
	projectID := s.publishProject()

	_, body := s.do(http.MethodPost, "/applications", "re", gin.H{"project_id": projectID, "cover_letter": "hi"})
	appID := field(t, body, "application", "id").(string)
	s.do(http.MethodPut, "/applications/"+appID, "co", gin.H{"status": "accepted"})
	_, body = s.do(http.MethodPost, "/chats", "co", gin.H{"application_id": appID})
	chatID := field(t, body, "chat", "id").(string)

	code, _ := s.do(http.MethodPost, "/chats/"+chatID+"/messages", "co", gin.H{"content": "one"})
	require.Equal(t, http.StatusCreated, code)
	code, body = s.do(http.MethodPost, "/chats/"+chatID+"/messages", "co", gin.H{"content": "two"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.NotEmpty(t, body["error"])

	// Budgets are per user.
	code, _ = s.do(http.MethodPost, "/chats/"+chatID+"/messages", "re", gin.H{"content": "hello"})
	assert.Equal(t, http.StatusCreated, code)
}
