package preference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// KeyCookies はAPIサーバーのCookieを保存する設定キー。
const KeyCookies = "cookies"

// storedCookie は保存するCookieの形式。
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"httpOnly,omitempty"`
}

// Jar はAPIサーバーの永続Cookieを設定ストアに保存するCookie Jar。
// リフレッシュトークンのCookieを再起動後も使えるようにする。
// 保存するのはログイン状態を維持する設定が有効な場合だけで、有効期限のないCookieは保存しない。
type Jar struct {
	inner  *cookiejar.Jar
	store  *Store
	base   *url.URL
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	saved map[string]storedCookie
}

var _ http.CookieJar = (*Jar)(nil)

// NewJar はbaseURLのCookieを保存するJarを生成し、保存済みのCookieを読み込む。
func NewJar(ctx context.Context, store *Store, baseURL string, logger *slog.Logger) (*Jar, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("APIのベースURLが不正です: %q", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	// publicsuffix.Listを渡した場合cookiejar.Newはエラーを返さない
	inner, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	j := &Jar{
		inner:  inner,
		store:  store,
		base:   base,
		logger: logger.With("component", "cookiejar"),
		now:    time.Now,
		saved:  map[string]storedCookie{},
	}
	if err := j.load(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// Cookies はuに送信するCookieを返す。
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// SetCookies はuから受け取ったCookieを保持し、APIサーバーの永続Cookieを保存する。
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	if !strings.EqualFold(u.Hostname(), j.base.Hostname()) {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, c := range cookies {
		var expires time.Time
		switch {
		case c.MaxAge < 0:
		case c.MaxAge > 0:
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		default:
			expires = c.Expires
		}
		if expires.IsZero() || !expires.After(now) {
			delete(j.saved, c.Name)
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		j.saved[c.Name] = storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Expires:  expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
	}

	// http.CookieJarはcontextを受け取らないため保存はバックグラウンドで行う
	if err := j.save(context.Background()); err != nil {
		j.logger.Warn("Cookieの保存に失敗", "error", err)
	}
}

// load は保存済みの有効なCookieを読み込む。
func (j *Jar) load(ctx context.Context) error {
	v, ok, err := j.store.Get(ctx, KeyCookies)
	if err != nil || !ok {
		return err
	}
	var stored []storedCookie
	if err := json.Unmarshal([]byte(v), &stored); err != nil {
		j.logger.WarnContext(ctx, "保存済みCookieが不正なため破棄します", "error", err)
		return nil
	}

	now := j.now()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		if !sc.Expires.After(now) {
			continue
		}
		j.saved[sc.Name] = sc
		cookies = append(cookies, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HTTPOnly,
		})
	}
	if len(cookies) > 0 {
		j.inner.SetCookies(j.base, cookies)
		j.logger.DebugContext(ctx, "保存済みCookieを読み込みました", "count", len(cookies))
	}
	return nil
}

// save は保持しているCookieを書き込む。ログイン状態を維持しない場合は保存済みのCookieを消す。
func (j *Jar) save(ctx context.Context) error {
	persist, err := j.store.Persist(ctx)
	if err != nil {
		return err
	}
	stored := []storedCookie{}
	if persist {
		for _, sc := range j.saved {
			stored = append(stored, sc)
		}
		slices.SortFunc(stored, func(a, b storedCookie) int { return strings.Compare(a.Name, b.Name) })
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("Cookieのシリアライズに失敗: %w", err)
	}
	return j.store.Set(ctx, KeyCookies, string(data))
}
