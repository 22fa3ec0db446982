// Package notes はノートAPIのクライアントを提供する。
package notes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/technotes/internal/entity"
	"github.com/nao1215/technotes/internal/querycache"
	"github.com/nao1215/technotes/internal/resource"
	"github.com/nao1215/technotes/pkg/httpclient"
	"github.com/nao1215/technotes/pkg/tag"
)

const (
	// Path はノートAPIのパス。
	Path = "/notes"
	// endpointGetNotes は一覧クエリのキャッシュキー名。
	endpointGetNotes = "getNotes"
)

// Note はノート。
type Note struct {
	// ID はノートのID。
	ID string `json:"id" yaml:"id"`
	// User は担当ユーザーのID。
	User string `json:"user" yaml:"user"`
	// Username は担当ユーザー名。
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	// Title はタイトル。
	Title string `json:"title" yaml:"title"`
	// Text は本文。
	Text string `json:"text" yaml:"text"`
	// Completed は完了済みかどうか。
	Completed bool `json:"completed" yaml:"completed"`
	// Ticket はチケット番号。
	Ticket int `json:"ticket,omitempty" yaml:"ticket,omitempty"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// EntityID はentity.Entityを実装する。
func (n Note) EntityID() string { return n.ID }

// NewNote はノート作成の入力。
type NewNote struct {
	User  string `json:"user" validate:"required"`
	Title string `json:"title" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

// UpdateNote はノート更新の入力。
type UpdateNote struct {
	ID        string `json:"id" validate:"required"`
	User      string `json:"user" validate:"required"`
	Title     string `json:"title" validate:"required"`
	Text      string `json:"text" validate:"required"`
	Completed bool   `json:"completed"`
}

type deleteNote struct {
	ID string `json:"id" validate:"required"`
}

// openFirst は未完了のノートを完了済みより前に並べる。
func openFirst(a, b Note) int {
	switch {
	case a.Completed == b.Completed:
		return 0
	case a.Completed:
		return 1
	default:
		return -1
	}
}

// API はノートAPIのクライアント。
type API struct {
	res *resource.Resource[Note]
}

// New はAPIを生成する。
func New(client *httpclient.Client, cache *querycache.Cache, validate *validator.Validate) *API {
	return &API{res: resource.New(client, cache, validate, resource.Config[Note]{
		Path:     Path,
		Endpoint: endpointGetNotes,
		TagType:  tag.TypeNote,
		Adapter:  entity.NewAdapter(openFirst),
	})}
}

// GetNotes はノート一覧を取得する。
func (a *API) GetNotes(ctx context.Context, force bool) (entity.State[Note], error) {
	return a.res.List(ctx, force)
}

// AddNewNote はノートを作成する。
func (a *API) AddNewNote(ctx context.Context, in NewNote) (resource.Message, error) {
	return a.res.Mutate(ctx, http.MethodPost, in, a.res.ListTag())
}

// UpdateNote はノートを更新する。
func (a *API) UpdateNote(ctx context.Context, in UpdateNote) (resource.Message, error) {
	return a.res.Mutate(ctx, http.MethodPatch, in, a.res.IDTag(in.ID))
}

// DeleteNote はノートを削除する。
func (a *API) DeleteNote(ctx context.Context, id string) (resource.Message, error) {
	return a.res.Mutate(ctx, http.MethodDelete, deleteNote{ID: id}, a.res.IDTag(id))
}

// SelectAll は取得済みのノートを並び順どおりに返す。
func (a *API) SelectAll() []Note { return a.res.SelectAll() }

// SelectByID は取得済みのノートをIDで検索する。
func (a *API) SelectByID(id string) (Note, bool) { return a.res.SelectByID(id) }

// SelectIDs は取得済みのノートのID一覧を返す。
func (a *API) SelectIDs() []string { return a.res.SelectIDs() }
