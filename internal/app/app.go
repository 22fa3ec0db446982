// Package app はtechnotesの構成要素を組み立てる。
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/technotes/internal/auth"
	"github.com/nao1215/technotes/internal/config"
	"github.com/nao1215/technotes/internal/notes"
	"github.com/nao1215/technotes/internal/preference"
	"github.com/nao1215/technotes/internal/querycache"
	"github.com/nao1215/technotes/internal/resource"
	"github.com/nao1215/technotes/internal/users"
	"github.com/nao1215/technotes/pkg/httpclient"
	"github.com/nao1215/technotes/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// App は1つのセッションを共有する構成要素の集合。
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Session *session.Session
	Gateway *httpclient.Client
	Cache   *querycache.Cache
	Notes   *notes.API
	Users   *users.API
	Auth    *auth.Service
	Prefs   *preference.Store
}

// New はcfgに従ってAppを組み立てる。regがnilの場合はメトリクスを記録しない。
// optsはゲートウェイに追加で渡すオプション。
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, opts ...httpclient.Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	prefs, err := preference.Open(ctx, cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("設定ストアの初期化に失敗: %w", err)
	}
	validate, err := resource.NewValidator()
	if err != nil {
		_ = prefs.Close()
		return nil, err
	}

	jar, err := preference.NewJar(ctx, prefs, cfg.API.BaseURL, logger)
	if err != nil {
		_ = prefs.Close()
		return nil, err
	}

	gatewayOpts := []httpclient.Option{
		httpclient.WithCookieJar(jar),
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithRefreshPath(cfg.API.RefreshPath),
		httpclient.WithLogger(logger),
	}
	if reg != nil {
		gatewayOpts = append(gatewayOpts, httpclient.WithMetrics(httpclient.NewMetrics(reg)))
	}
	gatewayOpts = append(gatewayOpts, opts...)

	sess := session.New()
	gateway := httpclient.New(cfg.API.BaseURL, sess, gatewayOpts...)
	cache := querycache.New()

	return &App{
		Config:  cfg,
		Logger:  logger,
		Session: sess,
		Gateway: gateway,
		Cache:   cache,
		Notes:   notes.New(gateway, cache, validate),
		Users:   users.New(gateway, cache, validate),
		Auth:    auth.NewService(gateway, cache, prefs, validate, logger),
		Prefs:   prefs,
	}, nil
}

// Close は保持しているリソースを解放する。
func (a *App) Close() error {
	return a.Prefs.Close()
}

// Prefetch はノートとユーザーの一覧を並行して強制的に再取得する。
// どちらかが失敗した場合は最初のエラーを返す。
func (a *App) Prefetch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := a.Notes.GetNotes(ctx, true); err != nil {
			return fmt.Errorf("ノート一覧の取得に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.Users.GetUsers(ctx, true); err != nil {
			return fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	a.Logger.DebugContext(ctx, "一覧をプリフェッチしました",
		"notes", len(a.Notes.SelectIDs()), "users", len(a.Users.SelectIDs()))
	return nil
}

// LoginWithConfig はログイン状態の復元を試み、復元できなければ設定ファイルのログイン情報でログインする。
func (a *App) LoginWithConfig(ctx context.Context) (session.Auth, error) {
	restored, err := a.Auth.Restore(ctx)
	if err != nil {
		a.Logger.DebugContext(ctx, "ログイン状態を復元できないためログインします", "error", err)
	}
	if restored {
		return a.Session.Auth(), nil
	}

	if !a.Config.Auth.HasCredentials() {
		return session.Auth{}, fmt.Errorf("ログイン情報が設定されていません（auth.username / auth.password）")
	}
	return a.Auth.Login(ctx, auth.Credentials{
		Username: a.Config.Auth.Username,
		Password: a.Config.Auth.Password,
		Persist:  a.Config.Auth.Persist,
	})
}
