package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/technotes/pkg/session"
)

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

// TestRequireRoles はロールによるルートガードを検証する。
func TestRequireRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		roles        []string
		noToken      bool
		wantStatus   int
		wantLocation string
	}{
		{name: "許可されたロール", roles: []string{"Employee", "Manager"}, wantStatus: http.StatusOK},
		{name: "許可されていないロール", roles: []string{"Employee"}, wantStatus: http.StatusTemporaryRedirect, wantLocation: "/login?from=%2Fdash%2Fusers"},
		{name: "トークンなし", noToken: true, wantStatus: http.StatusTemporaryRedirect, wantLocation: "/login?from=%2Fdash%2Fusers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := session.New()
			if !tt.noToken {
				sess.SetToken(generateTestJWT(t, "kate", tt.roles...))
			}

			var got session.Auth
			router := gin.New()
			router.GET("/dash/users", RequireRoles(sess, session.RoleManager, session.RoleAdmin), func(c *gin.Context) {
				got, _ = GetAuth(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dash/users", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if loc := w.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
			if tt.wantStatus == http.StatusOK && (got.Username != "kate" || !got.IsManager) {
				t.Errorf("GetAuth() = %+v", got)
			}
		})
	}
}

func TestGetAuth_WithoutGuard(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := GetAuth(c); ok {
		t.Error("GetAuth() ok = true, want false")
	}
}
