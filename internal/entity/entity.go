// Package entity はIDとエンティティのマップで一覧を正規化して保持する。
package entity

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Entity は正規化して保持できる値。
type Entity interface {
	// EntityID はエンティティの一意識別子を返す。
	EntityID() string
}

// State は正規化された一覧。IDsが表示順を、Entitiesが実体を持つ。
type State[T Entity] struct {
	// IDs は並び順どおりのID一覧。
	IDs []string
	// Entities はIDをキーとしたエンティティ。
	Entities map[string]T
}

// Adapter は一覧をStateに変換する。
type Adapter[T Entity] struct {
	// compare は並び順を決める比較関数。nilの場合は受け取った順序を保つ。
	compare func(a, b T) int
}

// NewAdapter はAdapterを生成する。compareがnilの場合は並べ替えない。
func NewAdapter[T Entity](compare func(a, b T) int) *Adapter[T] {
	return &Adapter[T]{compare: compare}
}

// InitialState は空のStateを返す。
func (a *Adapter[T]) InitialState() State[T] {
	return State[T]{IDs: []string{}, Entities: map[string]T{}}
}

// SetAll はitemsですべてを置き換えたStateを返す。
// 同じIDが複数ある場合は後のものが残る。
func (a *Adapter[T]) SetAll(items []T) State[T] {
	sorted := slices.Clone(items)
	if a.compare != nil {
		slices.SortStableFunc(sorted, a.compare)
	}

	st := State[T]{IDs: make([]string, 0, len(sorted)), Entities: make(map[string]T, len(sorted))}
	for _, item := range sorted {
		id := item.EntityID()
		if _, dup := st.Entities[id]; !dup {
			st.IDs = append(st.IDs, id)
		}
		st.Entities[id] = item
	}
	return st
}

// SelectAll は並び順どおりのエンティティ一覧を返す。
func (s State[T]) SelectAll() []T {
	out := make([]T, 0, len(s.IDs))
	for _, id := range s.IDs {
		out = append(out, s.Entities[id])
	}
	return out
}

// SelectByID はIDに対応するエンティティを返す。
func (s State[T]) SelectByID(id string) (T, bool) {
	e, ok := s.Entities[id]
	return e, ok
}

// SelectIDs はID一覧のコピーを返す。
func (s State[T]) SelectIDs() []string {
	return slices.Clone(s.IDs)
}

// Len はエンティティ数を返す。
func (s State[T]) Len() int {
	return len(s.IDs)
}

// RemapID はAPIが返すレコード配列の "_id" を "id" にコピーしてからTにデシリアライズする。
func RemapID[T any](data []byte) ([]T, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("レコード配列のデシリアライズに失敗: %w", err)
	}
	for _, rec := range records {
		if id, ok := rec["_id"]; ok {
			rec["id"] = id
		}
	}

	remapped, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("レコード配列の再シリアライズに失敗: %w", err)
	}
	out := make([]T, 0, len(records))
	if err := json.Unmarshal(remapped, &out); err != nil {
		return nil, fmt.Errorf("レコードの変換に失敗: %w", err)
	}
	return out, nil
}
