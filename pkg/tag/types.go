// Package tag はクエリキャッシュの無効化に使うタグを定義する。
//
// 一覧クエリは取得結果に応じて {種類, LIST} と {種類, id} のタグを提供し、
// 更新系の操作は影響するタグを宣言してキャッシュを古いものとしてマークする。
package tag

// Type はタグの対象となるエンティティの種類を表す。
type Type string

const (
	// TypeNote はノートエンティティを表す。
	TypeNote Type = "Note"
	// TypeUser はユーザーエンティティを表す。
	TypeUser Type = "User"
)

// IDList は一覧全体を表す特別なID。
const IDList = "LIST"

// Tag はキャッシュ無効化の単位。
type Tag struct {
	// Type はエンティティの種類。
	Type Type `json:"type"`
	// ID はエンティティのID、または一覧全体を表すIDList。空の場合は種類全体に一致する。
	ID string `json:"id,omitempty"`
}

// New はタグを生成する。
func New(t Type, id string) Tag {
	return Tag{Type: t, ID: id}
}

// List は指定した種類の一覧タグを返す。
func List(t Type) Tag {
	return Tag{Type: t, ID: IDList}
}

// ForList は一覧クエリが提供するタグを返す。
// 取得に成功した場合は一覧タグと各IDのタグ、失敗した場合（idsがnil）は一覧タグのみを返す。
func ForList(t Type, ids []string) []Tag {
	tags := make([]Tag, 0, len(ids)+1)
	tags = append(tags, List(t))
	for _, id := range ids {
		tags = append(tags, New(t, id))
	}
	return tags
}

// Matches はinvalidatingによる無効化がこのタグに及ぶかどうかを返す。
// invalidatingのIDが空の場合は同じ種類のすべてのタグに一致する。
func (t Tag) Matches(invalidating Tag) bool {
	if t.Type != invalidating.Type {
		return false
	}
	return invalidating.ID == "" || t.ID == invalidating.ID
}

// Key はタグを "種類:ID" 形式の文字列にする。
func (t Tag) Key() string {
	return string(t.Type) + ":" + t.ID
}

// String はKeyと同じ値を返す。
func (t Tag) String() string {
	return t.Key()
}
