package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fakenews/internal/api"
	"fakenews/internal/classifier"
	"fakenews/internal/config"
	"fakenews/internal/db"
	"fakenews/internal/detection"
	"fakenews/internal/detector"
	"fakenews/internal/explain"
	"fakenews/internal/llm"
	"fakenews/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type keywordClassifier struct{}

// Classify calls anything mentioning aliens fake.
func (keywordClassifier) Classify(ctx context.Context, text string) (*classifier.Result, error) {
	if strings.Contains(strings.ToLower(text), "aliens") {
		return &classifier.Result{Label: classifier.LabelFake, Score: 0.97}, nil
	}
	return &classifier.Result{Label: classifier.LabelReal, Score: 0.88}, nil
}

type cannedModel struct{ reply string }

func (m cannedModel) Invoke(ctx context.Context, prompt string) (llm.Reply, error) {
	return llm.MessageReply(m.reply), nil
}

type fixedKey string

func (k fixedKey) Resolve() (string, bool) { return string(k), k != "" }

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = conn

	cfg := &config.Config{}
	cfg.Server.JWTSecret = "integration-secret"

	explainer := explain.NewService(fixedKey("gsk_test"), func(apiKey, model string) llm.ChatModel {
		return cannedModel{reply: "  <b>Extraordinary</b> claim with no sources.  "}
	}, "")
	repo := detection.NewRepository(conn)
	d := detector.New(keywordClassifier{}, explainer, repo, nil, nil)

	return &testServer{
		t:      t,
		router: api.SetupRouter(cfg, rdb, api.Deps{Detector: d, Explainer: explainer, Detections: repo}),
	}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(username, password string) {
	s.t.Helper()
	w := s.do("POST", "/auth/login", map[string]string{"username": username, "password": password})
	if w.Code != http.StatusOK {
		s.t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	var resp api.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("decode login: %v", err)
	}
	s.token = resp.Token
}

func TestDetectionFlow(t *testing.T) {
	s := setupServer(t)

	if w := s.do("POST", "/setup", map[string]string{"username": "admin", "password": "pw"}); w.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d %s", w.Code, w.Body.String())
	}
	s.login("admin", "pw")

	w := s.do("POST", "/detect", map[string]string{"newsText": "Aliens built the pyramids last week."})
	if w.Code != http.StatusOK {
		t.Fatalf("detect failed: %d %s", w.Code, w.Body.String())
	}
	var fake detector.Result
	if err := json.Unmarshal(w.Body.Bytes(), &fake); err != nil {
		t.Fatalf("decode detect: %v", err)
	}
	if fake.Label != "FAKE" || fake.Explanation != "Extraordinary claim with no sources." {
		t.Errorf("unexpected fake result: %+v", fake)
	}

	w = s.do("POST", "/detect", map[string]string{"newsText": "The council approved the budget."})
	var genuine detector.Result
	_ = json.Unmarshal(w.Body.Bytes(), &genuine)
	if genuine.Label != "REAL" || genuine.Explanation != "" {
		t.Errorf("real news must not be explained: %+v", genuine)
	}

	if w := s.do("POST", "/detect", map[string]string{"newsText": "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank text should be 400, got %d", w.Code)
	}

	w = s.do("GET", "/detections/stats", nil)
	var stats detection.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Total != 2 || stats.Fake != 1 || stats.Real != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	w = s.do("GET", "/detections/export", nil)
	if !strings.Contains(w.Header().Get("Content-Disposition"), "fake-news-history-") {
		t.Errorf("missing export filename: %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(w.Body.String(), "97.0%") {
		t.Errorf("export should include confidence, got: %s", w.Body.String())
	}

	w = s.do("POST", "/explain", map[string]string{"text": "anything"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Extraordinary") {
		t.Errorf("explain endpoint: %d %s", w.Code, w.Body.String())
	}

	if w := s.do("DELETE", fmt.Sprintf("/detections/%d", fake.ID), nil); w.Code != http.StatusOK {
		t.Errorf("delete detection: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("GET", fmt.Sprintf("/detections/%d", fake.ID), nil); w.Code != http.StatusNotFound {
		t.Errorf("deleted detection should be 404, got %d", w.Code)
	}

	if w := s.do("POST", "/auth/logout", nil); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := s.do("GET", "/detections", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("token must be dead after logout, got %d", w.Code)
	}
}

func TestRegularUserCannotManageUsers(t *testing.T) {
	s := setupServer(t)

	if w := s.do("POST", "/setup", map[string]string{"username": "admin", "password": "pw"}); w.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d", w.Code)
	}
	s.login("admin", "pw")
	if w := s.do("POST", "/users", map[string]string{"username": "regular", "password": "pw2"}); w.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", w.Code, w.Body.String())
	}

	s.token = ""
	s.login("regular", "pw2")
	var admin user.User
	db.DB.Where("username = ?", "admin").First(&admin)
	if w := s.do("DELETE", fmt.Sprintf("/users/%d", admin.ID), nil); w.Code != http.StatusForbidden {
		t.Errorf("regular user must not delete others, got %d", w.Code)
	}
	if w := s.do("GET", "/users", nil); w.Code != http.StatusForbidden {
		t.Errorf("regular user must not list users, got %d", w.Code)
	}
	if w := s.do("GET", "/users/me", nil); w.Code != http.StatusOK {
		t.Errorf("regular user should see own profile, got %d", w.Code)
	}
}
