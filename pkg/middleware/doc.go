// Package middleware はダッシュボードサーバーで使うGinミドルウェアを提供する。
//
// ロールによるルートガード、構造化ログ、パニックリカバリ、CORSを含む。
package middleware
