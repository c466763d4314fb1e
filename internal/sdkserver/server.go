// Package sdkserver は公式MCP Go SDKのサーバー上でノート操作を公開する
package sdkserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brbranch/notes_mcp/internal/catalog"
	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/resource"
	"github.com/brbranch/notes_mcp/internal/tool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server はSDKサーバーとノートのコア部品を結びつける
type Server struct {
	server  *mcp.Server
	impl    *mcp.Implementation
	tools   *tool.Dispatcher
	router  *resource.Router
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// New はツール・リソース・テンプレートを登録したServerを生成
func New(
	ctx context.Context,
	name, version string,
	tools *tool.Dispatcher,
	router *resource.Router,
	cat *catalog.Catalog,
	logger *slog.Logger,
) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	impl := &mcp.Implementation{Name: name, Version: version}
	s := &Server{
		server:  mcp.NewServer(impl, nil),
		impl:    impl,
		tools:   tools,
		router:  router,
		catalog: cat,
		logger:  logger,
	}

	for _, def := range cat.Tools() {
		s.server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, s.callTool)
	}

	for _, def := range cat.Resources() {
		s.server.AddResource(&mcp.Resource{
			URI:         def.URI,
			Name:        def.Name,
			MIMEType:    def.MimeType,
			Description: def.Description,
		}, s.readResource)
	}

	if err := s.refreshTemplates(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Run はstdioで接続を待ち受ける（クライアント切断かctxのキャンセルまでブロック）
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("sdk server started", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect は任意のトランスポートでセッションを開始する
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// Implementation はサーバーの名前とバージョンを返す
func (s *Server) Implementation() *mcp.Implementation {
	return s.impl
}

// refreshTemplates はテンプレートの説明文を現在のIDで登録し直す
// 同じURIテンプレートの再登録は既存の定義を置き換える
func (s *Server) refreshTemplates(ctx context.Context) error {
	templates, err := s.catalog.ResourceTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to build resource templates: %w", err)
	}

	for _, t := range templates {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: t.URITemplate,
			Name:        t.Name,
			MIMEType:    t.MimeType,
			Description: t.Description,
		}, s.readResource)
	}
	return nil
}

func (s *Server) callTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name

	args, err := parseArguments(req.Params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", tool.ErrInvalidArguments, name, err)
	}

	content, err := s.tools.Call(ctx, name, args)
	if err != nil {
		return nil, err
	}

	// ノートの追加・削除でIDが変わるため説明文を更新
	if err := s.refreshTemplates(ctx); err != nil {
		s.logger.Warn("failed to refresh resource templates", "error", err)
	}

	return toCallToolResult(content), nil
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI

	contents, err := s.router.Read(ctx, uri)
	if errors.Is(err, resource.ErrNoteNotFound) || errors.Is(err, resource.ErrUnknownResource) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      contents.URI,
			MIMEType: contents.MimeType,
			Text:     contents.Text,
		}},
	}, nil
}

// parseArguments はtools/callの引数をmapに変換する
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return args, nil
}

func toCallToolResult(items []model.ContentItem) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(items))
	for _, item := range items {
		content = append(content, &mcp.TextContent{Text: item.Text})
	}
	return &mcp.CallToolResult{Content: content}
}
