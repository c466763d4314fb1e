// Package catalog はクライアントの検出用にツール・リソース・テンプレートの一覧を提供する
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/resource"
	"github.com/brbranch/notes_mcp/internal/store"
	"github.com/brbranch/notes_mcp/internal/tool"
)

// Catalog は固定の定義とストアの現在のIDから一覧を組み立てる
// テンプレートの説明文は呼び出しごとに再計算する
type Catalog struct {
	tools  *tool.Dispatcher
	router *resource.Router
	store  store.Store
}

// New は新しいCatalogを生成
func New(tools *tool.Dispatcher, router *resource.Router, s store.Store) *Catalog {
	return &Catalog{
		tools:  tools,
		router: router,
		store:  s,
	}
}

// Tools はツール定義を返す
func (c *Catalog) Tools() []model.Tool {
	return c.tools.Definitions()
}

// Resources は静的リソース定義を返す
func (c *Catalog) Resources() []model.Resource {
	return c.router.Resources()
}

// ResourceTemplates はテンプレート定義を返す
func (c *Catalog) ResourceTemplates(ctx context.Context) ([]model.ResourceTemplate, error) {
	notes, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list note ids: %w", err)
	}

	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}

	tmpl := c.router.NoteTemplate()
	tmpl.Description = NoteTemplateDescription(ids)
	return []model.ResourceTemplate{tmpl}, nil
}

// Capabilities はinitializeで返すサーバー機能
func (c *Catalog) Capabilities() model.Capabilities {
	return model.Capabilities{
		Tools:     &model.ToolsCapability{},
		Resources: &model.ResourcesCapability{},
	}
}

// NoteTemplateDescription は現在のIDを含むテンプレート説明文を返す
func NoteTemplateDescription(ids []string) string {
	available := "none"
	if len(ids) > 0 {
		available = strings.Join(ids, ", ")
	}
	return "Access a specific note. Available IDs: " + available
}
