package cmd

import (
	"fmt"

	"github.com/nao1215/technotes/internal/auth"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *options) *cobra.Command {
	var (
		username string
		password string
		persist  bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "ログインしてトークンの内容を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPrinter(opts.output, opts.stdout)
			if err != nil {
				return err
			}
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if username == "" {
				username = a.Config.Auth.Username
			}
			if password == "" {
				password = a.Config.Auth.Password
			}
			info, err := a.Auth.Login(cmd.Context(), auth.Credentials{
				Username: username,
				Password: password,
				Persist:  persist,
			})
			if err != nil {
				return fmt.Errorf("ログインに失敗: %w", err)
			}
			return p(info)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "ユーザー名 (auth.username を上書き)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "パスワード (auth.password を上書き)")
	cmd.Flags().BoolVar(&persist, "persist", false, "ログイン状態を維持する")
	return cmd
}
