package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/brbranch/notes_mcp/internal/model"
)

// ServerVersion はサーバーのバージョン（ビルド時に設定可能）
var ServerVersion = "0.1.0"

// handleInitialize は initialize メソッドを処理
func (h *Handler) handleInitialize(ctx context.Context, params any) (any, error) {
	// パラメータをパース（検証は最小限）
	var p model.InitializeParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	h.logger.Info("client initialized",
		"client", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"protocolVersion", p.ProtocolVersion)

	return &model.InitializeResult{
		ProtocolVersion: model.ProtocolVersion,
		ServerInfo: model.ServerInfo{
			Name:    h.serverName,
			Version: ServerVersion,
		},
		Capabilities: h.discovery.Capabilities(),
	}, nil
}

// handleToolsList は tools/list メソッドを処理
func (h *Handler) handleToolsList(ctx context.Context) (any, error) {
	return &model.ToolsListResult{
		Tools: h.discovery.Tools(),
	}, nil
}

// handleToolsCall は tools/call メソッドを処理
// 存在しないノートIDは成功レスポンスのテキストで返り、未知のツールと引数不正はエラーになる
func (h *Handler) handleToolsCall(ctx context.Context, params any) (any, error) {
	var p model.ToolsCallParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	content, err := h.tools.Call(ctx, p.Name, p.Arguments)
	if err != nil {
		return nil, err
	}

	return &model.ToolsCallResult{
		Content: content,
	}, nil
}

// handleResourcesList は resources/list メソッドを処理
func (h *Handler) handleResourcesList(ctx context.Context) (any, error) {
	return &model.ResourcesListResult{
		Resources: h.discovery.Resources(),
	}, nil
}

// handleResourceTemplatesList は resources/templates/list メソッドを処理
func (h *Handler) handleResourceTemplatesList(ctx context.Context) (any, error) {
	templates, err := h.discovery.ResourceTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return &model.ResourceTemplatesListResult{
		ResourceTemplates: templates,
	}, nil
}

// handleResourcesRead は resources/read メソッドを処理
func (h *Handler) handleResourcesRead(ctx context.Context, params any) (any, error) {
	var p model.ResourcesReadParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	contents, err := h.resources.Read(ctx, p.URI)
	if err != nil {
		return nil, &resourceReadError{uri: p.URI, err: err}
	}

	return &model.ResourcesReadResult{
		Contents: []model.ResourceContents{*contents},
	}, nil
}

// mapParams はparamsを構造体に変換
func mapParams(params any, target any) error {
	if params == nil {
		return nil
	}

	// anyをJSONに変換してから構造体にアンマーシャル
	b, err := json.Marshal(params)
	if err != nil {
		return &invalidParamsError{msg: err.Error()}
	}
	if err := json.Unmarshal(b, target); err != nil {
		return &invalidParamsError{msg: err.Error()}
	}
	return nil
}
