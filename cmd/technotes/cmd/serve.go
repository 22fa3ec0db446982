package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/technotes/internal/app"
	"github.com/nao1215/technotes/internal/dash"
	"github.com/nao1215/technotes/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "ダッシュボードサーバーを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := logging.New(cfg.Log.Level, opts.stderr)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger, reg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			restore(ctx, a)
			return dash.NewServer(a, reg).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "待ち受けアドレス (server.addr を上書き)")
	return cmd
}

// restore は永続ログインを復元し、成功した場合は一覧をプリフェッチする。
func restore(ctx context.Context, a *app.App) {
	restored, err := a.Auth.Restore(ctx)
	if err != nil || !restored {
		return
	}
	if err := a.Prefetch(ctx); err != nil {
		a.Logger.WarnContext(ctx, "プリフェッチに失敗", "error", err)
	}
}
