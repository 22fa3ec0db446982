// Package cmd はtechnotesのCLIコマンドを提供する。
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/technotes/internal/app"
	"github.com/nao1215/technotes/internal/config"
	"github.com/nao1215/technotes/pkg/logging"
	"github.com/spf13/cobra"
)

// options は全コマンド共通のフラグ。
type options struct {
	configFile string
	output     string
	stdout     io.Writer
	stderr     io.Writer
}

// Execute はルートコマンドを実行し、終了コードを返す。
func Execute() int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// NewRootCommand はルートコマンドを生成する。
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "technotes",
		Short: "technotes - 技術メモとユーザーを管理するクライアント",
		Long: `technotes はtechnotes APIサーバーのクライアント。

アクセストークンの期限が切れた場合は一度だけ自動で再発行してリクエストを再送する。

設定:
  ./technotes.yaml または ~/.technotes/technotes.yaml から読み込む。
  TECHNOTES_ で始まる環境変数で上書きできる。
  例: TECHNOTES_API_BASE_URL=http://localhost:3500`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if _, err := newPrinter(opts.output, opts.stdout); err != nil {
				return err
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "設定ファイル (デフォルト: ./technotes.yaml)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", formatJSON, "出力形式 (json|yaml)")

	root.AddCommand(
		newServeCommand(opts),
		newLoginCommand(opts),
		newNotesCommand(opts),
		newUsersCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// loadConfig は設定を読み込む。
func (o *options) loadConfig() (*config.Config, error) {
	return config.Load(config.New(o.configFile))
}

// openApp は設定を読み込んでAppを生成する。
func (o *options) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logging.New(cfg.Log.Level, o.stderr), nil)
}

// withSession は設定のログイン情報でログインしてからfnを実行する。
func (o *options) withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, p printer) error) error {
	ctx := cmd.Context()
	p, err := newPrinter(o.output, o.stdout)
	if err != nil {
		return err
	}
	a, err := o.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.LoginWithConfig(ctx); err != nil {
		return fmt.Errorf("ログインに失敗: %w", err)
	}
	return fn(ctx, a, p)
}
