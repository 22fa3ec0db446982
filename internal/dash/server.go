package dash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/technotes/internal/app"
	"github.com/nao1215/technotes/pkg/middleware"
	"github.com/nao1215/technotes/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Server はダッシュボードのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// app はセッションとAPIクライアントの集合。
	app *app.App
	// gatherer は /metrics で公開するメトリクス。
	gatherer prometheus.Gatherer
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewServer は新しいダッシュボードサーバーを生成する。gathererがnilの場合は /metrics を登録しない。
func NewServer(a *app.App, gatherer prometheus.Gatherer) *Server {
	logger := a.Logger.With("component", "dash")

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(a.Config.Server.AllowedOrigins))

	s := &Server{
		router:   router,
		app:      a,
		gatherer: gatherer,
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.app.Config.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ダッシュボードサーバーを起動します", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	s.logger.Info("ダッシュボードサーバーを停止しました")
	return nil
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "technotes"})
	})
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	s.router.GET(middleware.LoginPath, s.handleLoginStatus())
	s.router.POST(middleware.LoginPath, s.handleLogin())
	s.router.POST("/logout", s.handleLogout())

	sess := s.app.Session
	dash := s.router.Group("/dash")
	dash.Use(middleware.RequireRoles(sess, session.RoleEmployee, session.RoleManager, session.RoleAdmin))
	{
		dash.GET("", s.handleWelcome())

		notes := dash.Group("/notes")
		notes.GET("", s.handleListNotes())
		notes.GET("/:id", s.handleGetNote())
		notes.POST("", s.handleCreateNote())
		notes.PATCH("/:id", s.handleUpdateNote())
		notes.DELETE("/:id", s.handleDeleteNote())

		users := dash.Group("/users")
		users.Use(middleware.RequireRoles(sess, session.RoleManager, session.RoleAdmin))
		users.GET("", s.handleListUsers())
		users.GET("/:id", s.handleGetUser())
		users.POST("", s.handleCreateUser())
		users.PATCH("/:id", s.handleUpdateUser())
		users.DELETE("/:id", s.handleDeleteUser())
	}
}
