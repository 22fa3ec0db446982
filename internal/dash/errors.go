package dash

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/technotes/internal/resource"
	"github.com/nao1215/technotes/pkg/httpclient"
)

// statusFor はエラーをレスポンスのステータスコードに対応付ける。
// APIが返したエラーステータスはそのまま使い、通信エラーは502とする。
func statusFor(err error) int {
	if errors.Is(err, resource.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	var herr *httpclient.Error
	if !errors.As(err, &herr) {
		return http.StatusInternalServerError
	}
	switch {
	case herr.Status >= http.StatusBadRequest:
		return herr.Status
	case herr.Kind == httpclient.KindTransport:
		return http.StatusBadGateway
	case herr.Kind == httpclient.KindRefreshFailure, herr.Kind == httpclient.KindRefreshExpired, herr.Kind == httpclient.KindAuthExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// messageFor はレスポンスに載せるメッセージを返す。
func messageFor(err error) string {
	var herr *httpclient.Error
	if errors.As(err, &herr) && herr.Message != "" {
		return herr.Message
	}
	return err.Error()
}

// respondError はエラーを {"message": ...} 形式で返す。
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "APIリクエストに失敗", "path", c.Request.URL.Path, "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": messageFor(err)})
}

// respondBadRequest はリクエストボディの不備を400で返す。
func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "リクエストが不正です: " + err.Error()})
}
