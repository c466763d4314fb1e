package tool

import (
	"fmt"
	"strings"

	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/store"
)

func renderCreated(note *model.Note) string {
	return fmt.Sprintf("Created note with ID: %s\nTitle: %s\nTags: %s", note.ID, note.Title, note.TagList())
}

func renderUpdated(note *model.Note) string {
	return fmt.Sprintf("Updated note %s\nTitle: %s\nLast updated: %s", note.ID, note.Title, model.FormatTime(note.Updated))
}

func renderDeleted(note *model.Note) string {
	return fmt.Sprintf("Deleted note %s: %s", note.ID, note.Title)
}

// renderNotFound はツール向けの存在しないIDの結果（エラーではなく通常の応答）
func renderNotFound(id string) string {
	return fmt.Sprintf("Error: Note %s not found", id)
}

func renderSearch(query string, results []store.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No notes found matching: %s", query)
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		line := fmt.Sprintf("ID: %s - %s", r.Note.ID, r.Note.Title)
		if r.TagMatch {
			line += " [tag match]"
		}
		lines = append(lines, line)
	}

	return fmt.Sprintf("Found %d note(s):\n", len(results)) + strings.Join(lines, "\n")
}
