// Package auth はログイン、ログアウト、永続ログインの復元を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/technotes/internal/querycache"
	"github.com/nao1215/technotes/pkg/httpclient"
	"github.com/nao1215/technotes/pkg/session"
)

const (
	// PathLogin はログインエンドポイント。
	PathLogin = "/auth"
	// PathLogout はログアウトエンドポイント。
	PathLogout = "/auth/logout"
)

// ErrMissingToken はログインレスポンスにアクセストークンがないことを表す。
var ErrMissingToken = errors.New("ログインレスポンスにアクセストークンが含まれていません")

// Credentials はログインの入力。
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// Persist はログイン状態を維持するかどうか。APIには送信しない。
	Persist bool `json:"-"`
}

// PersistStore はログイン状態の維持設定を保存する。
type PersistStore interface {
	Persist(ctx context.Context) (bool, error)
	SetPersist(ctx context.Context, persist bool) error
}

// Service は認証フローを提供する。
type Service struct {
	client   *httpclient.Client
	cache    *querycache.Cache
	prefs    PersistStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService はServiceを生成する。prefsがnilの場合は永続ログインを扱わない。
func NewService(client *httpclient.Client, cache *querycache.Cache, prefs PersistStore, validate *validator.Validate, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:   client,
		cache:    cache,
		prefs:    prefs,
		validate: validate,
		logger:   logger.With("component", "auth"),
	}
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login はログインしてセッションにアクセストークンを設定し、デコードした認証情報を返す。
func (s *Service) Login(ctx context.Context, creds Credentials) (session.Auth, error) {
	if err := s.validate.Struct(creds); err != nil {
		return session.Auth{}, fmt.Errorf("ログイン情報が不正です: %w", err)
	}

	// preference.Jarが参照するためログイン要求より先に保存する
	if s.prefs != nil {
		if err := s.prefs.SetPersist(ctx, creds.Persist); err != nil {
			s.logger.WarnContext(ctx, "永続ログイン設定の保存に失敗", "error", err)
		}
	}

	var resp loginResponse
	if err := s.client.SendJSON(ctx, http.MethodPost, PathLogin, creds, &resp); err != nil {
		return session.Auth{}, err
	}
	if resp.AccessToken == "" {
		return session.Auth{}, ErrMissingToken
	}

	sess := s.client.Session()
	sess.SetToken(resp.AccessToken)
	s.logger.InfoContext(ctx, "ログインしました", "username", creds.Username)
	return sess.Auth(), nil
}

// Logout はログアウトする。APIの結果にかかわらずセッションとキャッシュを破棄する。
func (s *Service) Logout(ctx context.Context) error {
	res := s.client.Do(ctx, httpclient.Request{Path: PathLogout, Method: http.MethodPost})
	s.client.Session().ClearToken()
	s.cache.Reset()
	if res.Error != nil {
		s.logger.WarnContext(ctx, "ログアウトAPIが失敗しました", "error", res.Error)
		return res.Error
	}
	s.logger.InfoContext(ctx, "ログアウトしました")
	return nil
}

// Restore は永続ログインが有効でトークンを持っていない場合にリフレッシュでトークンを取得する。
// 復元した場合はtrueを返す。失敗した場合セッションは空のまま。
func (s *Service) Restore(ctx context.Context) (bool, error) {
	if s.prefs == nil || s.client.Session().HasToken() {
		return false, nil
	}
	persist, err := s.prefs.Persist(ctx)
	if err != nil {
		return false, err
	}
	if !persist {
		return false, nil
	}

	if _, err := s.client.Refresh(ctx); err != nil {
		s.logger.InfoContext(ctx, "ログイン状態の復元に失敗", "error", err)
		return false, err
	}
	s.logger.InfoContext(ctx, "ログイン状態を復元しました")
	return true, nil
}
