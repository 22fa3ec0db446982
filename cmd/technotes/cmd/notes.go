package cmd

import (
	"context"

	"github.com/nao1215/technotes/internal/app"
	"github.com/nao1215/technotes/internal/notes"
	"github.com/spf13/cobra"
)

func newNotesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "ノートを操作する",
	}
	cmd.AddCommand(
		newNotesListCommand(opts),
		newNotesAddCommand(opts),
		newNotesUpdateCommand(opts),
		newNotesDeleteCommand(opts),
	)
	return cmd
}

func newNotesListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "ノート一覧を表示する（未完了が先）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				st, err := a.Notes.GetNotes(ctx, true)
				if err != nil {
					return err
				}
				return p(st.SelectAll())
			})
		},
	}
}

func newNotesAddCommand(opts *options) *cobra.Command {
	var in notes.NewNote
	cmd := &cobra.Command{
		Use:   "add",
		Short: "ノートを作成する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				msg, err := a.Notes.AddNewNote(ctx, in)
				if err != nil {
					return err
				}
				return p(msg)
			})
		},
	}
	cmd.Flags().StringVar(&in.User, "user", "", "担当ユーザーのID")
	cmd.Flags().StringVar(&in.Title, "title", "", "タイトル")
	cmd.Flags().StringVar(&in.Text, "text", "", "本文")
	return cmd
}

func newNotesUpdateCommand(opts *options) *cobra.Command {
	var in notes.UpdateNote
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "ノートを更新する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ID = args[0]
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				msg, err := a.Notes.UpdateNote(ctx, in)
				if err != nil {
					return err
				}
				return p(msg)
			})
		},
	}
	cmd.Flags().StringVar(&in.User, "user", "", "担当ユーザーのID")
	cmd.Flags().StringVar(&in.Title, "title", "", "タイトル")
	cmd.Flags().StringVar(&in.Text, "text", "", "本文")
	cmd.Flags().BoolVar(&in.Completed, "completed", false, "完了済みにする")
	return cmd
}

func newNotesDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "ノートを削除する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, a *app.App, p printer) error {
				msg, err := a.Notes.DeleteNote(ctx, args[0])
				if err != nil {
					return err
				}
				return p(msg)
			})
		},
	}
}
