package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Version はビルド時に -ldflags で埋め込むバージョン。
var Version = "dev"

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示する",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			p, err := newPrinter(opts.output, opts.stdout)
			if err != nil {
				return err
			}
			return p(map[string]string{
				"version": Version,
				"go":      runtime.Version(),
			})
		},
	}
}
