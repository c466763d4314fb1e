package tool

import (
	"github.com/brbranch/notes_mcp/internal/model"
)

// CreateNoteArgs は create_note の引数
type CreateNoteArgs struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Fields はストアへの入力に変換
func (a *CreateNoteArgs) Fields() model.NoteFields {
	return model.NoteFields{
		Title:   a.Title,
		Content: a.Content,
		Tags:    a.Tags,
	}
}

// UpdateNoteArgs は update_note の引数
// ポインタで「キー未指定」と「値あり」を区別する
type UpdateNoteArgs struct {
	ID      string    `json:"id"`
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// Patch はストアへの部分更新に変換
func (a *UpdateNoteArgs) Patch() model.NotePatch {
	return model.NotePatch{
		Title:   a.Title,
		Content: a.Content,
		Tags:    a.Tags,
	}
}

// DeleteNoteArgs は delete_note の引数
type DeleteNoteArgs struct {
	ID string `json:"id"`
}

// SearchNotesArgs は search_notes の引数
type SearchNotesArgs struct {
	Query      string `json:"query"`
	SearchTags *bool  `json:"search_tags"`
}

// IncludeTags はタグ検索の有無を返す（未指定ならtrue）
func (a *SearchNotesArgs) IncludeTags() bool {
	if a.SearchTags == nil {
		return true
	}
	return *a.SearchTags
}
