package model

import (
	"strings"
	"time"
)

// Note はノートを表す（ストア内部データモデル）
// IDはストアが採番する10進数文字列で、削除後も再利用されない
type Note struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Tags    []string  `json:"tags"` // 重複可、順序保持
}

// NoteFields はノート作成時の入力
type NoteFields struct {
	Title   string
	Content string
	Tags    []string
}

// NotePatch はノート部分更新の入力（nilは変更なし）
type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// IsEmpty は更新対象フィールドが1つも指定されていないかを返す
func (p NotePatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

// Apply はパッチをノートに適用し、1つ以上のフィールドを書き換えた場合trueを返す
// updatedはフィールドが書き換えられた場合のみnowに更新される
func (p NotePatch) Apply(n *Note, now time.Time) bool {
	if p.IsEmpty() {
		return false
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = CopyTags(*p.Tags)
	}
	n.Updated = now
	return true
}

// Clone はノートのディープコピーを返す
func (n *Note) Clone() *Note {
	c := *n
	c.Tags = CopyTags(n.Tags)
	return &c
}

// TagList はタグをカンマ区切りで返す（空なら "none"）
func (n *Note) TagList() string {
	if len(n.Tags) == 0 {
		return "none"
	}
	return strings.Join(n.Tags, ", ")
}

// CopyTags はタグ配列をコピーする（nilは空配列）
func CopyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// FormatTime はノートのタイムスタンプを表示用に整形する
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
