// Package resource はnotes/usersに共通する一覧取得と更新系操作を提供する。
//
// 一覧は "_id" を "id" に移し替えて正規化し、タグ付きでクエリキャッシュに保存する。
// 更新系の操作は送信前に入力を検証し、送信後に宣言したタグを無効化する。
package resource

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/technotes/internal/entity"
	"github.com/nao1215/technotes/internal/querycache"
	"github.com/nao1215/technotes/pkg/httpclient"
	"github.com/nao1215/technotes/pkg/tag"
)

// Config はリソースごとの設定。
type Config[T entity.Entity] struct {
	// Path はAPIのパス（例: "/notes"）。
	Path string
	// Endpoint はキャッシュキーに使う一覧クエリ名（例: "getNotes"）。
	Endpoint string
	// TagType はキャッシュタグの種類。
	TagType tag.Type
	// Adapter は一覧を正規化するアダプタ。
	Adapter *entity.Adapter[T]
}

// Message は更新系APIが返すメッセージ。
type Message struct {
	// Message はAPIサーバーからのメッセージ。
	Message string `json:"message" yaml:"message"`
}

// Resource は1種類のエンティティに対するAPI操作。
type Resource[T entity.Entity] struct {
	client   *httpclient.Client
	cache    *querycache.Cache
	validate *validator.Validate
	cfg      Config[T]
	key      querycache.Key
}

// New はResourceを生成する。
func New[T entity.Entity](client *httpclient.Client, cache *querycache.Cache, validate *validator.Validate, cfg Config[T]) *Resource[T] {
	return &Resource[T]{
		client:   client,
		cache:    cache,
		validate: validate,
		cfg:      cfg,
		key:      querycache.NewKey(cfg.Endpoint, nil),
	}
}

// List は一覧を取得する。forceがfalseでキャッシュが有効な場合はリクエストを送らない。
func (r *Resource[T]) List(ctx context.Context, force bool) (entity.State[T], error) {
	if !force {
		if st, ok := querycache.Lookup[entity.State[T]](r.cache, r.key); ok {
			return st, nil
		}
	}

	res := r.client.Do(ctx, httpclient.Request{Path: r.cfg.Path, Method: http.MethodGet})
	if err := r.check(res); err != nil {
		return r.cfg.Adapter.InitialState(), err
	}
	if res.Status != http.StatusOK || isErrorPayload(res.Data) {
		return r.cfg.Adapter.InitialState(), &httpclient.Error{
			Kind:    httpclient.KindApplication,
			Status:  res.Status,
			Data:    res.Data,
			Message: messageOf(res.Data, "一覧の取得結果が不正です"),
		}
	}

	items, err := entity.RemapID[T](res.Data)
	if err != nil {
		return r.cfg.Adapter.InitialState(), err
	}
	st := r.cfg.Adapter.SetAll(items)
	r.cache.Provide(r.key, st, tag.ForList(r.cfg.TagType, st.IDs))
	return st, nil
}

// State は最後に取得した一覧を返す。未取得の場合は空の一覧を返す。
func (r *Resource[T]) State() entity.State[T] {
	if st, ok := querycache.PeekAs[entity.State[T]](r.cache, r.key); ok {
		return st
	}
	return r.cfg.Adapter.InitialState()
}

// SelectAll は最後に取得した一覧を並び順どおりに返す。
func (r *Resource[T]) SelectAll() []T {
	return r.State().SelectAll()
}

// SelectByID は最後に取得した一覧からIDで検索する。
func (r *Resource[T]) SelectByID(id string) (T, bool) {
	return r.State().SelectByID(id)
}

// SelectIDs は最後に取得した一覧のID一覧を返す。
func (r *Resource[T]) SelectIDs() []string {
	return r.State().SelectIDs()
}

// ListTag はこのリソースの一覧タグを返す。
func (r *Resource[T]) ListTag() tag.Tag {
	return tag.List(r.cfg.TagType)
}

// IDTag は指定IDのタグを返す。
func (r *Resource[T]) IDTag(id string) tag.Tag {
	return tag.New(r.cfg.TagType, id)
}

// Mutate は入力を検証してから更新系リクエストを送信し、結果にかかわらずinvalidatesを無効化する。
// 検証に失敗した場合はリクエストを送らない。
func (r *Resource[T]) Mutate(ctx context.Context, method string, input any, invalidates ...tag.Tag) (Message, error) {
	if err := validateInput(r.validate, input); err != nil {
		return Message{}, err
	}

	res := r.client.Do(ctx, httpclient.Request{Path: r.cfg.Path, Method: method, Body: input})
	r.cache.Invalidate(invalidates...)
	if err := r.check(res); err != nil {
		return Message{}, err
	}

	return mutationMessage(res.Data), nil
}

// mutationMessage は更新系APIの成功レスポンスからメッセージを取り出す。
// オブジェクトならmessageフィールド、JSON文字列ならその文字列を使い、それ以外は空とする。
func mutationMessage(data []byte) Message {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return Message{Message: text}
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err == nil {
		return msg
	}
	return Message{}
}

// check はゲートウェイの結果がこのリソースへのリクエストの成功結果かどうかを確認する。
// リフレッシュがトークンを返さずにその結果が返ってきた場合は認証エラーとして扱う。
func (r *Resource[T]) check(res *httpclient.Result) error {
	if res.Error != nil {
		return res.Error
	}
	if res.Path != r.cfg.Path {
		return &httpclient.Error{
			Kind:    httpclient.KindRefreshFailure,
			Status:  res.Status,
			Data:    res.Data,
			Message: httpclient.ErrNoAccessToken.Error(),
			Err:     httpclient.ErrNoAccessToken,
		}
	}
	return nil
}

// isErrorPayload はボディが {"isError": true} 形式のオブジェクトかどうかを返す。
func isErrorPayload(data []byte) bool {
	var payload struct {
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return false
	}
	return payload.IsError
}

// messageOf はボディのmessageフィールドを返す。なければfallbackを返す。
func messageOf(data []byte, fallback string) string {
	var msg Message
	if err := json.Unmarshal(data, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return fallback
}
