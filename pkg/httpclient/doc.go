// Package httpclient はtechnotes APIへの認証付きリクエストを行うゲートウェイを提供する。
//
// すべてのリクエストにセッションのアクセストークンをBearerとして付与し、
// 403（アクセストークン期限切れ）を受け取った場合は一度だけ
// /auth/refresh でトークンを再発行して元のリクエストを再送する。
// リフレッシュトークンはCookieで運ばれるため、クライアントはCookie Jarを持つ。
//
// 同時に複数の呼び出しが403を受けた場合、それぞれが個別にリフレッシュする。
// セッションには最後に書き込まれたトークンが残る。
package httpclient
