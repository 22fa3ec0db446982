// Package querycache はタグで無効化できるクエリ結果のキャッシュを提供する。
package querycache

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/nao1215/technotes/pkg/tag"
)

// Key はキャッシュエントリのキー。エンドポイント名と引数のハッシュから作る。
type Key string

// NewKey はエンドポイント名と引数からキーを生成する。
// 引数はJSONにシリアライズしてからxxhashでハッシュ化する。
func NewKey(endpoint string, args any) Key {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(err.Error())
	}
	return Key(endpoint + "(" + strconv.FormatUint(xxhash.Sum64(data), 16) + ")")
}

// entry は1つのクエリ結果。
type entry struct {
	// value はキャッシュされた値。
	value any
	// tags はこの結果が提供するタグ。
	tags []tag.Tag
	// stale は無効化済みかどうか。
	stale bool
}

// Cache はクエリ結果のキャッシュ。複数のgoroutineから安全に利用できる。
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// New は空のキャッシュを生成する。
func New() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// Provide はクエリ結果とそれが提供するタグを保存する。既存のエントリは置き換える。
func (c *Cache) Provide(key Key, value any, tags []tag.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, tags: append([]tag.Tag(nil), tags...)}
}

// Get は無効化されていない値を返す。エントリがない、または無効化済みの場合はfalseを返す。
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.stale {
		return nil, false
	}
	return e.value, true
}

// Peek は無効化済みかどうかにかかわらず最後に保存された値を返す。
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Invalidate はtagsのいずれかに一致するタグを提供したエントリを無効化し、その数を返す。
func (c *Cache) Invalidate(tags ...tag.Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.stale {
			continue
		}
		if providesAny(e.tags, tags) {
			e.stale = true
			n++
		}
	}
	return n
}

// Reset はすべてのエントリを削除する。ログアウト時に使用する。
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}

// providesAny はprovidedのいずれかがinvalidatingのいずれかに一致するかどうかを返す。
func providesAny(provided, invalidating []tag.Tag) bool {
	for _, p := range provided {
		for _, inv := range invalidating {
			if p.Matches(inv) {
				return true
			}
		}
	}
	return false
}

// Lookup はGetの結果をTとして返す。型が異なる場合は見つからなかったものとして扱う。
func Lookup[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// PeekAs はPeekの結果をTとして返す。
func PeekAs[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
