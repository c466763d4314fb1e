package tool

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// ツール名
const (
	NameCreateNote  = "create_note"
	NameUpdateNote  = "update_note"
	NameDeleteNote  = "delete_note"
	NameSearchNotes = "search_notes"
)

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func stringArrayProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string"},
		Description: description,
	}
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func createNoteSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"title":   stringProp("Note title"),
		"content": stringProp("Note content"),
		"tags":    stringArrayProp("Optional tags for the note"),
	}, "title", "content")
}

func updateNoteSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"id":      stringProp("Note ID"),
		"title":   stringProp("New title (optional)"),
		"content": stringProp("New content (optional)"),
		"tags":    stringArrayProp("New tags (optional)"),
	}, "id")
}

func deleteNoteSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"id": stringProp("Note ID to delete"),
	}, "id")
}

func searchNotesSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"query": stringProp("Search query"),
		"search_tags": {
			Type:        "boolean",
			Description: "Search in tags as well",
			Default:     json.RawMessage("true"),
		},
	}, "query")
}
