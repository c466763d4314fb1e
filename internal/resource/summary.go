package resource

import (
	"fmt"
	"strings"

	"github.com/brbranch/notes_mcp/internal/model"
)

const summarySeparator = "----------------------------------------"

func renderSummary(notes []*model.Note) string {
	if len(notes) == 0 {
		return "No notes available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total Notes: %d\n\n", len(notes))
	for _, note := range notes {
		fmt.Fprintf(&b, "ID: %s\n", note.ID)
		fmt.Fprintf(&b, "Title: %s\n", note.Title)
		fmt.Fprintf(&b, "Created: %s\n", model.FormatTime(note.Created))
		fmt.Fprintf(&b, "Tags: %s\n", note.TagList())
		b.WriteString(summarySeparator + "\n")
	}
	return b.String()
}
