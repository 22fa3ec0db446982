package session

import "sync"

// Session は現在のアクセストークンを1つだけ保持する。
// 空文字列は「トークンなし」を表す。
// 並行する更新は最後の書き込みが勝つ。
type Session struct {
	// mu はtokenへのアクセスを保護する。
	mu sync.RWMutex
	// token は現在のアクセストークン。
	token string
}

// New は空のセッションを生成する。
func New() *Session {
	return &Session{}
}

// Token は現在のアクセストークンを返す。トークンがない場合は空文字列を返す。
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken はトークンを保持しているかどうかを返す。
func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// SetToken はアクセストークンを設定する。
// ログイン成功時とトークンリフレッシュ成功時に呼び出される。
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// ClearToken はアクセストークンを破棄する。ログアウト時に呼び出される。
func (s *Session) ClearToken() {
	s.SetToken("")
}

// Auth は現在のトークンから導出した認証情報を返す。
// トークンがない、またはデコードできない場合はゼロ値（Status=Employee）を返す。
func (s *Session) Auth() Auth {
	token := s.Token()
	if token == "" {
		return newAuth(UserInfo{})
	}
	claims, err := DecodeClaims(token)
	if err != nil {
		return newAuth(UserInfo{})
	}
	return newAuth(claims.UserInfo)
}
