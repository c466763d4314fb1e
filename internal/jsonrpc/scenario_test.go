package jsonrpc

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brbranch/notes_mcp/internal/model"
)

// callTool はtools/callを実行してテキストを返す
func callTool(t *testing.T, h *Handler, name string, args map[string]any) string {
	t.Helper()
	params := map[string]any{"name": name, "arguments": args}
	result := resultMap(t, h.Handle(context.Background(), makeRequest("tools/call", params)))
	content := result["content"].([]any)
	return content[0].(map[string]any)["text"].(string)
}

// readResource はresources/readを実行してテキストを返す
func readResource(t *testing.T, h *Handler, uri string) string {
	t.Helper()
	result := resultMap(t, h.Handle(context.Background(), makeRequest("resources/read", map[string]any{"uri": uri})))
	contents := result["contents"].([]any)
	return contents[0].(map[string]any)["text"].(string)
}

// TestScenario_ShoppingList は作成→検索→更新→参照→削除の一連の流れをテスト
func TestScenario_ShoppingList(t *testing.T) {
	h, s := newTestHandler(t)
	ctx := context.Background()

	// 作成: Welcome(1)の次なのでID 2
	got := callTool(t, h, "create_note", map[string]any{
		"title":   "Shopping List",
		"content": "Buy milk, eggs, bread",
		"tags":    []string{"shopping", "todo"},
	})
	if !strings.HasPrefix(got, "Created note with ID: 2\n") {
		t.Fatalf("unexpected create result: %q", got)
	}

	// 検索: ID 2のみ
	if got := callTool(t, h, "search_notes", map[string]any{"query": "shopping"}); got != "Found 1 note(s):\nID: 2 - Shopping List" {
		t.Errorf("unexpected search result: %q", got)
	}

	// 要約に両方のノートが出る
	summary := readResource(t, h, "notes://summary")
	if !strings.HasPrefix(summary, "Total Notes: 2\n\n") || !strings.Contains(summary, "Title: Shopping List\n") {
		t.Errorf("unexpected summary: %q", summary)
	}

	// 更新: 本文のみ変わり、更新日時が進む
	before, _ := s.Get(ctx, "2")
	got = callTool(t, h, "update_note", map[string]any{"id": "2", "content": "Buy milk, eggs, bread, cheese"})
	if !strings.HasPrefix(got, "Updated note 2\nTitle: Shopping List\nLast updated: ") {
		t.Errorf("unexpected update result: %q", got)
	}

	// 参照: 更新が反映されている
	var note model.Note
	if err := json.Unmarshal([]byte(readResource(t, h, "notes://note/2")), &note); err != nil {
		t.Fatalf("note is not JSON: %v", err)
	}
	if note.Content != "Buy milk, eggs, bread, cheese" {
		t.Errorf("update not visible: %q", note.Content)
	}
	if note.Title != "Shopping List" || len(note.Tags) != 2 {
		t.Errorf("unrelated fields changed: %+v", note)
	}
	if note.Updated.Before(before.Updated) || !note.Created.Equal(before.Created) {
		t.Errorf("unexpected timestamps: created %v updated %v (before %v)", note.Created, note.Updated, before.Updated)
	}

	// テンプレート説明に現在のIDが出る
	result := resultMap(t, h.Handle(ctx, makeRequest("resources/templates/list", nil)))
	tmpl := result["resourceTemplates"].([]any)[0].(map[string]any)
	if tmpl["description"] != "Access a specific note. Available IDs: 1, 2" {
		t.Errorf("unexpected template description: %v", tmpl["description"])
	}

	// 削除
	if got := callTool(t, h, "delete_note", map[string]any{"id": "2"}); got != "Deleted note 2: Shopping List" {
		t.Errorf("unexpected delete result: %q", got)
	}

	// 削除後の参照はリソース未検出エラー
	resp := parseErrorResponse(t, h.Handle(ctx, makeRequest("resources/read", map[string]any{"uri": "notes://note/2"})))
	if resp.Error.Code != model.ErrCodeResourceNotFound {
		t.Errorf("expected code %d, got %d", model.ErrCodeResourceNotFound, resp.Error.Code)
	}

	// 削除後のツール操作は通常の結果
	if got := callTool(t, h, "delete_note", map[string]any{"id": "2"}); got != "Error: Note 2 not found" {
		t.Errorf("unexpected second delete result: %q", got)
	}

	// 新しいノートはIDを再利用しない
	got = callTool(t, h, "create_note", map[string]any{"title": "Next", "content": "c"})
	if !strings.HasPrefix(got, "Created note with ID: 3\n") {
		t.Errorf("id must not be reused: %q", got)
	}
}
