package dash

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/technotes/internal/app"
	"github.com/nao1215/technotes/internal/config"
	"github.com/nao1215/technotes/pkg/logging"
	"github.com/nao1215/technotes/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// generateTestJWT はテスト用のアクセストークンを生成する。
func generateTestJWT(t *testing.T, username string, roles ...string) string {
	t.Helper()
	claims := session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserInfo:         session.UserInfo{Username: username, Roles: roles},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("JWT生成に失敗: %v", err)
	}
	return token
}

// fakeAPI はtechnotes APIサーバーを模したテスト用バックエンド。
type fakeAPI struct {
	t *testing.T

	mu sync.Mutex
	// token はログインとリフレッシュで発行するトークン。
	token string
	// valid はAPIが受け付けるトークン。空の場合はtokenを受け付ける。
	valid string
	// refreshes はリフレッシュ回数。
	refreshes int
	// lastBody は最後に受け取った更新系リクエストのボディ。
	lastBody map[string]any
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := f.valid
	if want == "" {
		want = f.token
	}
	return r.Header.Get("Authorization") == "Bearer "+want
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/auth":
		_, _ = io.WriteString(w, `{"accessToken":"`+f.token+`"}`)
		return
	case "/auth/refresh":
		f.mu.Lock()
		f.refreshes++
		f.valid = ""
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"accessToken":"`+f.token+`"}`)
		return
	case "/auth/logout":
		_, _ = io.WriteString(w, `{"message":"Cookie cleared"}`)
		return
	}

	if !f.authorized(r) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"Forbidden"}`)
		return
	}

	if r.Method != http.MethodGet {
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()
		if body["title"] == "duplicate" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"Duplicate note title"}`)
			return
		}
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			_, _ = io.WriteString(w, `"Note 'done' with ID n1 deleted"`)
			return
		}
		_, _ = io.WriteString(w, `{"message":"ok"}`)
		return
	}

	switch r.URL.Path {
	case "/notes":
		_, _ = io.WriteString(w, `[
			{"_id":"n1","user":"u1","username":"dave","title":"done","text":"x","completed":true},
			{"_id":"n2","user":"u1","username":"dave","title":"open","text":"y","completed":false}
		]`)
	case "/users":
		_, _ = io.WriteString(w, `[{"_id":"u1","username":"dave","roles":["Employee"],"active":true}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// newTestServer はfakeAPIに接続したダッシュボードサーバーを生成する。
func newTestServer(t *testing.T, api http.Handler, reg *prometheus.Registry) *Server {
	t.Helper()
	backend := httptest.NewServer(api)
	t.Cleanup(backend.Close)
	return newTestServerWithURL(t, backend.URL, reg)
}

func newTestServerWithURL(t *testing.T, baseURL string, reg *prometheus.Registry) *Server {
	t.Helper()
	cfg := &config.Config{
		API:     config.APIConfig{BaseURL: baseURL, RefreshPath: "/auth/refresh", Timeout: 5 * time.Second},
		Server:  config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"http://localhost:3000"}},
		Storage: config.StorageConfig{Path: ":memory:"},
		Log:     config.LogConfig{Level: "info"},
	}

	var registerer prometheus.Registerer
	var gatherer prometheus.Gatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	a, err := app.New(context.Background(), cfg, logging.Discard(), registerer)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return NewServer(a, gatherer)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, s *Server) {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/login", `{"username":"dave","password":"secret","persist":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("ログインに失敗: %d %s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, reg)
	login(t, s)

	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("/health ステータスコード = %d", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics ステータスコード = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "technotes_gateway_requests_total") {
		t.Errorf("/metrics にゲートウェイのメトリクスが含まれない:\n%s", w.Body.String())
	}
}

func TestGuard(t *testing.T) {
	t.Parallel()

	t.Run("未ログインは/loginへリダイレクトされること", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, nil)

		w := doRequest(t, s, http.MethodGet, "/dash/notes", "")
		if w.Code != http.StatusTemporaryRedirect {
			t.Fatalf("ステータスコード = %d, want 307", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/login?from=%2Fdash%2Fnotes" {
			t.Errorf("Location = %q", loc)
		}

		w = doRequest(t, s, http.MethodGet, "/login?from=%2Fdash%2Fnotes", "")
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("ボディのパースに失敗: %v", err)
		}
		if body["loggedIn"] != false || body["from"] != "/dash/notes" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("EmployeeはユーザーAPIにアクセスできないこと", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, nil)
		login(t, s)

		if w := doRequest(t, s, http.MethodGet, "/dash/notes", ""); w.Code != http.StatusOK {
			t.Errorf("/dash/notes ステータスコード = %d", w.Code)
		}
		if w := doRequest(t, s, http.MethodGet, "/dash/users", ""); w.Code != http.StatusTemporaryRedirect {
			t.Errorf("/dash/users ステータスコード = %d, want 307", w.Code)
		}
	})

	t.Run("ManagerはユーザーAPIにアクセスできること", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "kate", "Employee", "Manager")}, nil)
		login(t, s)

		w := doRequest(t, s, http.MethodGet, "/dash/users/u1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"username":"dave"`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})
}

func TestNotes(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}
	s := newTestServer(t, api, nil)
	login(t, s)

	w := doRequest(t, s, http.MethodGet, "/dash/notes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("一覧 ステータスコード = %d", w.Code)
	}
	var list struct {
		Notes []struct {
			ID string `json:"id"`
		} `json:"notes"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("ボディのパースに失敗: %v", err)
	}
	if len(list.Notes) != 2 || list.Notes[0].ID != "n2" {
		t.Errorf("notes = %+v, want open note first", list.Notes)
	}
	if list.Count != 2 {
		t.Errorf("count = %d, want 2", list.Count)
	}

	if w := doRequest(t, s, http.MethodGet, "/dash/notes/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("存在しないノート ステータスコード = %d, want 404", w.Code)
	}

	w = doRequest(t, s, http.MethodPost, "/dash/notes", `{"user":"u1","title":"new","text":"body"}`)
	if w.Code != http.StatusCreated {
		t.Errorf("作成 ステータスコード = %d, body = %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodPatch, "/dash/notes/n2", `{"user":"u1","title":"open","text":"y","completed":true}`)
	if w.Code != http.StatusOK {
		t.Errorf("更新 ステータスコード = %d, body = %s", w.Code, w.Body.String())
	}
	api.mu.Lock()
	if api.lastBody["id"] != "n2" || api.lastBody["completed"] != true {
		t.Errorf("更新ボディ = %v", api.lastBody)
	}
	api.mu.Unlock()

	w = doRequest(t, s, http.MethodDelete, "/dash/notes/n1", "")
	if w.Code != http.StatusOK {
		t.Errorf("削除 ステータスコード = %d, body = %s", w.Code, w.Body.String())
	}
	var deleted struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &deleted); err != nil {
		t.Fatalf("ボディのパースに失敗: %v", err)
	}
	if deleted.Message != "Note 'done' with ID n1 deleted" {
		t.Errorf("削除メッセージ = %q", deleted.Message)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	t.Run("入力検証エラーは400", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, nil)
		login(t, s)

		w := doRequest(t, s, http.MethodPost, "/dash/notes", `{"user":"u1","title":"no text"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want 400", w.Code)
		}
	})

	t.Run("APIのステータスとメッセージをそのまま返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, nil)
		login(t, s)

		w := doRequest(t, s, http.MethodPost, "/dash/notes", `{"user":"u1","title":"duplicate","text":"x"}`)
		if w.Code != http.StatusConflict {
			t.Errorf("ステータスコード = %d, want 409", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Duplicate note title") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("不正なJSONは400", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, nil)

		if w := doRequest(t, s, http.MethodPost, "/login", `{"username":`); w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want 400", w.Code)
		}
	})

	t.Run("通信エラーは502", func(t *testing.T) {
		t.Parallel()
		closed := httptest.NewServer(http.NotFoundHandler())
		url := closed.URL
		closed.Close()
		s := newTestServerWithURL(t, url, nil)

		if w := doRequest(t, s, http.MethodPost, "/login", `{"username":"dave","password":"secret"}`); w.Code != http.StatusBadGateway {
			t.Errorf("ステータスコード = %d, want 502", w.Code)
		}
	})
}

func TestExpiredTokenIsRefreshedSilently(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}
	s := newTestServer(t, api, nil)
	login(t, s)

	api.mu.Lock()
	api.valid = "rotated"
	api.mu.Unlock()

	w := doRequest(t, s, http.MethodGet, "/dash/notes?force=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, body = %s", w.Code, w.Body.String())
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.refreshes != 1 {
		t.Errorf("リフレッシュ回数 = %d, want 1", api.refreshes)
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAPI{t: t, token: generateTestJWT(t, "dave", "Employee")}, nil)
	login(t, s)

	if w := doRequest(t, s, http.MethodPost, "/logout", ""); w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d", w.Code)
	}
	if w := doRequest(t, s, http.MethodGet, "/dash", ""); w.Code != http.StatusTemporaryRedirect {
		t.Errorf("ログアウト後の/dash ステータスコード = %d, want 307", w.Code)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAPI{t: t}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() がキャンセル後に終了しない")
	}
}
