package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/technotes/pkg/session"
)

const (
	// LoginPath はガードに拒否された場合のリダイレクト先。
	LoginPath = "/login"
	// contextKeyAuth はGinコンテキストに認証情報を格納するキー。
	contextKeyAuth = "technotes.auth"
)

// RequireRoles はセッションのトークンから導出したロールのいずれかがallowedに含まれる場合だけ
// 後続のハンドラを実行するGinミドルウェアを返す。
// 含まれない場合は元のパスをfromに付けて/loginへ307でリダイレクトする。
func RequireRoles(sess *session.Session, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := sess.Auth()
		if !auth.HasAnyRole(allowed...) {
			c.Redirect(http.StatusTemporaryRedirect, LoginPath+"?"+url.Values{"from": {c.Request.URL.Path}}.Encode())
			c.Abort()
			return
		}
		c.Set(contextKeyAuth, auth)
		c.Next()
	}
}

// GetAuth はRequireRolesが格納した認証情報を返す。
// ガードを通っていない場合はokがfalseになる。
func GetAuth(c *gin.Context) (session.Auth, bool) {
	v, exists := c.Get(contextKeyAuth)
	if !exists {
		return session.Auth{}, false
	}
	auth, ok := v.(session.Auth)
	return auth, ok
}
