package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// MessageLoginExpired はリフレッシュ自体が403で失敗した場合に付与するユーザー向けメッセージ。
const MessageLoginExpired = "Your login has expired."

// ErrorKind はゲートウェイが返すエラーの分類。
type ErrorKind int

const (
	// KindTransport はネットワーク到達不能などでレスポンスが得られなかったことを表す。
	KindTransport ErrorKind = iota + 1
	// KindAuthExpired は元のリクエストが403を返したことを表す。
	KindAuthExpired
	// KindRefreshExpired はリフレッシュリクエストが403を返したことを表す。
	KindRefreshExpired
	// KindRefreshFailure はリフレッシュが403以外で失敗した、またはトークンを返さなかったことを表す。
	KindRefreshFailure
	// KindApplication は元のリクエストが403以外の4xx/5xxを返したことを表す。
	KindApplication
)

// String はErrorKindのラベル文字列を返す。メトリクスのラベルにも使用する。
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthExpired:
		return "auth_expired"
	case KindRefreshExpired:
		return "refresh_expired"
	case KindRefreshFailure:
		return "refresh_failure"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Request は1回の呼び出しで発行するリクエストの記述子。
// 発行後に変更してはならない。
type Request struct {
	// Path はベースURLからの相対パス（例: "/notes"）。
	Path string
	// Method はHTTPメソッド。空の場合はGET。
	Method string
	// Body はJSONにシリアライズして送るボディ。nilの場合はボディなし。
	Body any
	// Header は追加のリクエストヘッダー。Authorizationはセッションの値で上書きされる。
	Header http.Header
}

// method はHTTPメソッドを返す。未指定の場合はGET。
func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// Result はゲートウェイの最終結果。DataとErrorのどちらか一方のみが意味を持つ。
type Result struct {
	// Path は結果を生成したリクエストのパス。
	// リフレッシュがトークンを返さなかった場合はリフレッシュエンドポイントのパスになる。
	Path string
	// Status はHTTPステータスコード。通信エラーの場合は0。
	Status int
	// Data は成功時のレスポンスボディ。
	Data json.RawMessage
	// Error は失敗時のエラー。成功時はnil。
	Error *Error
}

// OK は結果が成功かどうかを返す。
func (r *Result) OK() bool {
	return r != nil && r.Error == nil
}

// Error はゲートウェイが返す構造化エラー。
type Error struct {
	// Kind はエラーの分類。
	Kind ErrorKind
	// Status はHTTPステータスコード。通信エラーの場合は0。
	Status int
	// Data はエラーレスポンスのボディ。
	Data json.RawMessage
	// Message はユーザー向けのメッセージ。
	Message string
	// Err は通信エラーなどの原因。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: status=%d, message=%s", e.Kind, e.Status, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// kindForStatus は元のリクエストのステータスコードからエラー分類を決める。
func kindForStatus(status int) ErrorKind {
	if status == http.StatusForbidden {
		return KindAuthExpired
	}
	return KindApplication
}

// errorMessage はエラーボディからメッセージを取り出す。
// {"message": "..."} 形式でなければ本文、本文もなければステータステキストを返す。
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" && !json.Valid(body) {
		return text
	}
	return http.StatusText(status)
}

// withMessage はJSONオブジェクトのmessageフィールドを差し替えたボディを返す。
// オブジェクトでない場合は {"message": msg} を返す。
func withMessage(body []byte, msg string) json.RawMessage {
	obj := map[string]any{}
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		obj = map[string]any{}
	}
	obj["message"] = msg
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}

// Decode は結果のDataをvにデシリアライズする。結果がエラーの場合はそのエラーを返す。
func Decode(res *Result, v any) error {
	if res == nil {
		return fmt.Errorf("結果がnilです")
	}
	if res.Error != nil {
		return res.Error
	}
	if v == nil || len(res.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Data, v); err != nil {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
	}
	return nil
}
