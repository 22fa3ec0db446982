package cmd

import (
	"context"

	"github.com/nao1215/technotes/internal/app"
	"github.com/nao1215/technotes/internal/users"
	"github.com/nao1215/technotes/pkg/session"
	"github.com/spf13/cobra"
)

func newUsersCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "ユーザーを操作する",
	}
	cmd.AddCommand(
		newUsersListCommand(opts),
		newUsersAddCommand(opts),
		newUsersUpdateCommand(opts),
		newUsersDeleteCommand(opts),
	)
	return cmd
}

func newUsersListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "ユーザー一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				st, err := a.Users.GetUsers(ctx, true)
				if err != nil {
					return err
				}
				return p(st.SelectAll())
			})
		},
	}
}

func newUsersAddCommand(opts *options) *cobra.Command {
	var in users.NewUser
	cmd := &cobra.Command{
		Use:   "add",
		Short: "ユーザーを作成する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				msg, err := a.Users.AddNewUser(ctx, in)
				if err != nil {
					return err
				}
				return p(msg)
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "ユーザー名（英字3〜20文字）")
	cmd.Flags().StringVar(&in.Password, "password", "", "パスワード（4〜12文字）")
	cmd.Flags().StringSliceVar(&in.Roles, "roles", []string{session.RoleEmployee}, "ロール (Employee, Manager, Admin)")
	return cmd
}

func newUsersUpdateCommand(opts *options) *cobra.Command {
	var in users.UpdateUser
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "ユーザーを更新する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ID = args[0]
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				msg, err := a.Users.UpdateUser(ctx, in)
				if err != nil {
					return err
				}
				return p(msg)
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "ユーザー名")
	cmd.Flags().StringVar(&in.Password, "password", "", "新しいパスワード（省略時は変更しない）")
	cmd.Flags().StringSliceVar(&in.Roles, "roles", []string{session.RoleEmployee}, "ロール (Employee, Manager, Admin)")
	cmd.Flags().BoolVar(&in.Active, "active", true, "有効なユーザーにする")
	return cmd
}

func newUsersDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "ユーザーを削除する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				msg, err := a.Users.DeleteUser(ctx, args[0])
				if err != nil {
					return err
				}
				return p(msg)
			})
		},
	}
}
