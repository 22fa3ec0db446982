// Package session はアクセストークンを保持するセッションコンテキストを提供する。
//
// トークンはプロセス内メモリにのみ保持され、永続化されない。
// 変更はSetToken/ClearTokenの2つの入口に限定され、
// HTTPクライアントやルートガードへコンストラクタ経由で注入される。
package session
