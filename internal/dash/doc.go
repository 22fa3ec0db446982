// Package dash はtechnotesのダッシュボードHTTPサーバーを提供する。
//
// ログイン状態を1つのセッションで保持し、ノートとユーザーの操作を
// 認証付きゲートウェイ経由でAPIサーバーへ中継する。/dash 以下はロールで保護する。
package dash
