package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/technotes/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultRefreshPath はアクセストークンを再発行するエンドポイント。
	DefaultRefreshPath = "/auth/refresh"
	// HeaderRequestID は1回の呼び出しを識別するヘッダー。リフレッシュと再送でも同じ値を使う。
	HeaderRequestID = "X-Request-ID"

	tracerName = "github.com/nao1215/technotes/pkg/httpclient"
)

// ErrNoAccessToken はリフレッシュが成功したがアクセストークンを含まなかったことを表す。
var ErrNoAccessToken = errors.New("リフレッシュレスポンスにアクセストークンが含まれていません")

// Client は認証付きリクエストゲートウェイ。
// セッションのトークンをBearerとして付与し、403を受けた場合に一度だけトークンを再発行して再送する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。Cookie Jarを持つ。
	httpClient *http.Client
	// baseURL はAPIサーバーのベースURL。
	baseURL string
	// session は現在のアクセストークンを保持するセッション。
	session *session.Session
	// refreshPath はリフレッシュエンドポイントのパス。
	refreshPath string
	// logger は構造化ロガー。
	logger *slog.Logger
	// metrics はPrometheusメトリクス。nilの場合は記録しない。
	metrics *Metrics
	// tracer はOpenTelemetryのトレーサー。
	tracer trace.Tracer
}

// New は新しいゲートウェイを生成する。
// baseURLにはAPIサーバーのベースURL（例: "https://technotes-api.onrender.com"）を指定する。
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	// publicsuffix.Listを渡した場合cookiejar.Newはエラーを返さない
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		session:     sess,
		refreshPath: DefaultRefreshPath,
		logger:      slog.Default(),
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "httpclient")
	return c
}

// Session はゲートウェイに注入されたセッションを返す。
func (c *Client) Session() *session.Session {
	return c.session
}

// Do はリクエストを発行し、最終結果を返す。
// 403の場合はリフレッシュと再送を一度だけ行う。戻り値は常に非nil。
func (c *Client) Do(ctx context.Context, req Request) *Result {
	start := time.Now()
	method := req.method()
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "httpclient.Do", trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", req.Path),
		attribute.String("technotes.request_id", requestID),
	))
	defer span.End()

	body, err := encodeBody(req.Body)
	if err != nil {
		res := &Result{Path: req.Path, Error: &Error{
			Kind:    KindTransport,
			Message: "リクエストボディのシリアライズに失敗",
			Err:     err,
		}}
		c.finish(span, method, start, stateDone, false, res)
		return res
	}

	var (
		st        = stateDispatch
		result    *Result
		refreshed bool
	)
	for !st.terminal() {
		switch st {
		case stateDispatch:
			result = c.send(ctx, method, req.Path, body, req.Header, requestID, true)
			st = transition(st, classify(result))
		case stateRefresh:
			refreshed = true
			c.logger.InfoContext(ctx, "アクセストークンの期限切れを検知。リフレッシュを試行します",
				"request_id", requestID, "path", req.Path)
			refreshResult, token, out := c.refresh(ctx, requestID)
			st = transition(st, out)
			if st == stateRetry {
				c.session.SetToken(token)
				continue
			}
			result = refreshResult
		case stateRetry:
			result = c.send(ctx, method, req.Path, body, req.Header, requestID, true)
			st = transition(st, classify(result))
		}
	}

	c.finish(span, method, start, st, refreshed, result)
	return result
}

// Refresh はリフレッシュエンドポイントだけを呼び出し、成功した場合はセッションを更新する。
// 永続ログインの復元に使用する。
func (c *Client) Refresh(ctx context.Context) (string, error) {
	res, token, out := c.refresh(ctx, uuid.NewString())
	switch out {
	case outcomeToken:
		c.session.SetToken(token)
		return token, nil
	case outcomeNoData:
		return "", &Error{Kind: KindRefreshFailure, Status: res.Status, Data: res.Data, Message: ErrNoAccessToken.Error(), Err: ErrNoAccessToken}
	default:
		return "", res.Error
	}
}

// SendJSON は指定メソッドとJSONボディでリクエストを送信し、レスポンスボディをresultにデシリアライズする。
func (c *Client) SendJSON(ctx context.Context, method, path string, body, result any) error {
	return Decode(c.Do(ctx, Request{Path: path, Method: method, Body: body}), result)
}

// refreshResponse はリフレッシュエンドポイントのレスポンス。
type refreshResponse struct {
	// AccessToken は新しいアクセストークン。
	AccessToken string `json:"accessToken"`
}

// refresh はリフレッシュリクエストを送信し、結果と新しいトークンと分類を返す。
// 期限切れのアクセストークンは付与しない。セッションは変更しない。
func (c *Client) refresh(ctx context.Context, requestID string) (*Result, string, outcome) {
	res := c.send(ctx, http.MethodGet, c.refreshPath, nil, nil, requestID, false)
	if res.Error != nil {
		if res.Status == http.StatusForbidden {
			res.Error.Kind = KindRefreshExpired
			res.Error.Message = MessageLoginExpired
			res.Error.Data = withMessage(res.Error.Data, MessageLoginExpired)
			c.observeRefresh("expired")
			return res, "", outcomeForbidden
		}
		res.Error.Kind = KindRefreshFailure
		c.observeRefresh("failure")
		return res, "", outcomeFailed
	}

	var payload refreshResponse
	if len(res.Data) == 0 || json.Unmarshal(res.Data, &payload) != nil || payload.AccessToken == "" {
		c.observeRefresh("no_token")
		return res, "", outcomeNoData
	}
	c.observeRefresh("success")
	return res, payload.AccessToken, outcomeToken
}

// send はHTTPリクエストを1回だけ送信する共通処理。
// withAuthがtrueの場合、送信時点のセッションのトークンを付与する。
func (c *Client) send(ctx context.Context, method, path string, body []byte, header http.Header, requestID string, withAuth bool) *Result {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return transportResult(path, "HTTPリクエストの作成に失敗", err)
	}
	for key, values := range header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(HeaderRequestID, requestID)

	httpReq.Header.Del("Authorization")
	if withAuth {
		if token := c.session.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportResult(path, "HTTPリクエストの送信に失敗", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportResult(path, "レスポンスの読み取りに失敗", err)
	}

	res := &Result{Path: path, Status: resp.StatusCode}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(data) > 0 {
			res.Data = data
		}
		return res
	}
	res.Error = &Error{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Data:    data,
		Message: errorMessage(resp.StatusCode, data),
	}
	return res
}

// finish はメトリクス、トレース、ログに最終結果を記録する。
func (c *Client) finish(span trace.Span, method string, start time.Time, st state, refreshed bool, res *Result) {
	outcomeLabel := "ok"
	if res.Error != nil {
		outcomeLabel = res.Error.Kind.String()
	}

	span.SetAttributes(
		attribute.String("technotes.final_state", st.String()),
		attribute.Bool("technotes.refreshed", refreshed),
		attribute.Int("http.response.status_code", res.Status),
	)
	if res.Error != nil {
		span.SetStatus(codes.Error, res.Error.Message)
	}

	if c.metrics != nil {
		c.metrics.RequestsTotal.WithLabelValues(method, outcomeLabel).Inc()
		c.metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}

	c.logger.Debug("リクエスト完了",
		"method", method,
		"path", res.Path,
		"status", res.Status,
		"state", st.String(),
		"outcome", outcomeLabel,
		"refreshed", refreshed,
	)
}

// observeRefresh はリフレッシュ結果をメトリクスに記録する。
func (c *Client) observeRefresh(result string) {
	if c.metrics != nil {
		c.metrics.RefreshTotal.WithLabelValues(result).Inc()
	}
}

// encodeBody はリクエストボディをJSONにシリアライズする。nilの場合はnilを返す。
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
	}
	return data, nil
}

// transportResult は通信エラーの結果を生成する。
func transportResult(path, msg string, err error) *Result {
	return &Result{Path: path, Error: &Error{Kind: KindTransport, Message: msg, Err: err}}
}
