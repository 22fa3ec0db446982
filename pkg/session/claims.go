package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// ロール名。APIサーバーが発行するアクセストークンのrolesに含まれる。
const (
	// RoleEmployee は一般従業員ロール。
	RoleEmployee = "Employee"
	// RoleManager はマネージャーロール。
	RoleManager = "Manager"
	// RoleAdmin は管理者ロール。
	RoleAdmin = "Admin"
)

// ErrEmptyToken はデコード対象のトークンが空であることを表す。
var ErrEmptyToken = errors.New("トークンが空です")

// UserInfo はアクセストークンに埋め込まれたユーザー情報。
type UserInfo struct {
	// Username はユーザー名。
	Username string `json:"username"`
	// Roles はユーザーに付与されたロール一覧。
	Roles []string `json:"roles"`
}

// Claims はアクセストークンのクレーム（ペイロード）を表す。
type Claims struct {
	jwt.RegisteredClaims
	// UserInfo はユーザー名とロール。
	UserInfo UserInfo `json:"UserInfo"`
}

// DecodeClaims はアクセストークンのペイロードを署名検証なしでデコードする。
// クライアントは署名鍵を持たないため、検証はAPIサーバー側の責務となる。
func DecodeClaims(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("アクセストークンのデコードに失敗: %w", err)
	}
	return claims, nil
}

// Auth はルートガードや画面表示で使う認証情報。
type Auth struct {
	// Username はユーザー名。未ログイン時は空。
	Username string `json:"username" yaml:"username"`
	// Roles はロール一覧。未ログイン時は空スライス。
	Roles []string `json:"roles" yaml:"roles"`
	// IsManager はManagerロールを持つかどうか。
	IsManager bool `json:"isManager" yaml:"isManager"`
	// IsAdmin はAdminロールを持つかどうか。
	IsAdmin bool `json:"isAdmin" yaml:"isAdmin"`
	// Status は最上位のロール名（Employee / Manager / Admin）。
	Status string `json:"status" yaml:"status"`
}

// newAuth はユーザー情報からAuthを組み立てる。
func newAuth(info UserInfo) Auth {
	roles := info.Roles
	if roles == nil {
		roles = []string{}
	}
	a := Auth{
		Username:  info.Username,
		Roles:     roles,
		IsManager: slices.Contains(roles, RoleManager),
		IsAdmin:   slices.Contains(roles, RoleAdmin),
		Status:    RoleEmployee,
	}
	if a.IsManager {
		a.Status = RoleManager
	}
	if a.IsAdmin {
		a.Status = RoleAdmin
	}
	return a
}

// HasAnyRole はallowedのいずれかのロールを持つかどうかを返す。
func (a Auth) HasAnyRole(allowed ...string) bool {
	return slices.ContainsFunc(a.Roles, func(role string) bool {
		return slices.Contains(allowed, role)
	})
}
