// Package users はユーザーAPIのクライアントを提供する。
package users

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/technotes/internal/entity"
	"github.com/nao1215/technotes/internal/querycache"
	"github.com/nao1215/technotes/internal/resource"
	"github.com/nao1215/technotes/pkg/httpclient"
	"github.com/nao1215/technotes/pkg/tag"
)

const (
	// Path はユーザーAPIのパス。
	Path = "/users"
	// endpointGetUsers は一覧クエリのキャッシュキー名。
	endpointGetUsers = "getUsers"
)

// User はユーザー。
type User struct {
	// ID はユーザーのID。
	ID string `json:"id" yaml:"id"`
	// Username はユーザー名。
	Username string `json:"username" yaml:"username"`
	// Roles はロール一覧。
	Roles []string `json:"roles" yaml:"roles"`
	// Active は有効なユーザーかどうか。
	Active bool `json:"active" yaml:"active"`
}

// EntityID はentity.Entityを実装する。
func (u User) EntityID() string { return u.ID }

// NewUser はユーザー作成の入力。
type NewUser struct {
	Username string   `json:"username" validate:"required,technotes_username"`
	Password string   `json:"password" validate:"required,technotes_password"`
	Roles    []string `json:"roles" validate:"min=1,dive,oneof=Employee Manager Admin"`
}

// UpdateUser はユーザー更新の入力。Passwordが空の場合はパスワードを変更しない。
type UpdateUser struct {
	ID       string   `json:"id" validate:"required"`
	Username string   `json:"username" validate:"required,technotes_username"`
	Password string   `json:"password,omitempty" validate:"omitempty,technotes_password"`
	Roles    []string `json:"roles" validate:"min=1,dive,oneof=Employee Manager Admin"`
	Active   bool     `json:"active"`
}

type deleteUser struct {
	ID string `json:"id" validate:"required"`
}

// API はユーザーAPIのクライアント。
type API struct {
	res *resource.Resource[User]
}

// New はAPIを生成する。
func New(client *httpclient.Client, cache *querycache.Cache, validate *validator.Validate) *API {
	return &API{res: resource.New(client, cache, validate, resource.Config[User]{
		Path:     Path,
		Endpoint: endpointGetUsers,
		TagType:  tag.TypeUser,
		Adapter:  entity.NewAdapter[User](nil),
	})}
}

// GetUsers はユーザー一覧を取得する。
func (a *API) GetUsers(ctx context.Context, force bool) (entity.State[User], error) {
	return a.res.List(ctx, force)
}

// AddNewUser はユーザーを作成する。
func (a *API) AddNewUser(ctx context.Context, in NewUser) (resource.Message, error) {
	return a.res.Mutate(ctx, http.MethodPost, in, a.res.ListTag())
}

// UpdateUser はユーザーを更新する。
func (a *API) UpdateUser(ctx context.Context, in UpdateUser) (resource.Message, error) {
	return a.res.Mutate(ctx, http.MethodPatch, in, a.res.IDTag(in.ID))
}

// DeleteUser はユーザーを削除する。
func (a *API) DeleteUser(ctx context.Context, id string) (resource.Message, error) {
	return a.res.Mutate(ctx, http.MethodDelete, deleteUser{ID: id}, a.res.IDTag(id))
}

// SelectAll は取得済みのユーザーを返す。
func (a *API) SelectAll() []User { return a.res.SelectAll() }

// SelectByID は取得済みのユーザーをIDで検索する。
func (a *API) SelectByID(id string) (User, bool) { return a.res.SelectByID(id) }

// SelectIDs は取得済みのユーザーのID一覧を返す。
func (a *API) SelectIDs() []string { return a.res.SelectIDs() }
