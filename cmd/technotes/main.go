// technotesのエントリポイント。
// ダッシュボードサーバーの起動と、ノート・ユーザーを操作するコマンドを提供する。
package main

import (
	"os"

	"github.com/nao1215/technotes/cmd/technotes/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
