// Package jsonrpc implements the MCP JSON-RPC 2.0 handler for mcp-notes.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/resource"
	"github.com/brbranch/notes_mcp/internal/tool"
)

// ToolCaller はツールを実行する
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) ([]model.ContentItem, error)
}

// ResourceReader はURIからリソースを読み取る
type ResourceReader interface {
	Read(ctx context.Context, uri string) (*model.ResourceContents, error)
}

// Discovery はツール・リソース・テンプレートの一覧を提供する
type Discovery interface {
	Tools() []model.Tool
	Resources() []model.Resource
	ResourceTemplates(ctx context.Context) ([]model.ResourceTemplate, error)
	Capabilities() model.Capabilities
}

// Handler はJSON-RPCリクエストを処理する
type Handler struct {
	tools      ToolCaller
	resources  ResourceReader
	discovery  Discovery
	serverName string
	logger     *slog.Logger
}

// New は新しいHandlerを生成
func New(
	tools ToolCaller,
	resources ResourceReader,
	discovery Discovery,
	serverName string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tools:      tools,
		resources:  resources,
		discovery:  discovery,
		serverName: serverName,
		logger:     logger,
	}
}

// Handle はJSON-RPCリクエストをパースしてディスパッチ
// 戻り値は *model.Response または *model.ErrorResponse のJSON bytes
// 通知（notifications/*）の場合はnilを返す
func (h *Handler) Handle(ctx context.Context, requestBytes []byte) []byte {
	// 1. パース
	var req model.Request
	if err := json.Unmarshal(requestBytes, &req); err != nil {
		return h.encodeError(model.NewParseError(err.Error()))
	}

	// 2. バージョン確認
	if req.JSONRPC != "2.0" {
		return h.encodeError(model.NewInvalidRequest(req.ID, "jsonrpc must be 2.0"))
	}

	// 3. method確認
	if req.Method == "" {
		return h.encodeError(model.NewInvalidRequest(req.ID, "method is required"))
	}

	// 4. 通知にはレスポンスを返さない
	if req.IsNotification() {
		h.logger.Debug("notification received", "method", req.Method)
		return nil
	}

	// 5. ディスパッチ
	result, err := h.dispatch(ctx, req.Method, req.Params)
	if err != nil {
		resp := h.mapError(req.ID, err)
		h.logger.Warn("request failed",
			"method", req.Method,
			"code", resp.Error.Code,
			"error", err)
		return h.encodeError(resp)
	}

	// 6. 成功レスポンス
	return h.encodeResponse(model.NewResponse(req.ID, result))
}

// dispatch はメソッドに応じて適切なハンドラーを呼び出す
func (h *Handler) dispatch(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "initialize":
		return h.handleInitialize(ctx, params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return h.handleToolsList(ctx)
	case "tools/call":
		return h.handleToolsCall(ctx, params)
	case "resources/list":
		return h.handleResourcesList(ctx)
	case "resources/templates/list":
		return h.handleResourceTemplatesList(ctx)
	case "resources/read":
		return h.handleResourcesRead(ctx, params)
	default:
		return nil, &methodNotFoundError{method: method}
	}
}

// mapError はエラーをJSON-RPCエラーに変換
func (h *Handler) mapError(id any, err error) *model.ErrorResponse {
	// method not found
	var mnfErr *methodNotFoundError
	if errors.As(err, &mnfErr) {
		return model.NewMethodNotFound(id, mnfErr.method)
	}

	// invalid params（呼び出し側の契約違反）
	var ipErr *invalidParamsError
	if errors.As(err, &ipErr) ||
		errors.Is(err, tool.ErrUnknownTool) ||
		errors.Is(err, tool.ErrInvalidArguments) ||
		errors.Is(err, resource.ErrMalformedURI) {
		return model.NewInvalidParams(id, err.Error())
	}

	// resource not found（未知のURI、存在しないノート）
	if errors.Is(err, resource.ErrUnknownResource) || errors.Is(err, resource.ErrNoteNotFound) {
		uri := ""
		var rErr *resourceReadError
		if errors.As(err, &rErr) {
			uri = rErr.uri
		}
		return model.NewResourceNotFound(id, err.Error(), uri)
	}

	// internal error
	return model.NewInternalError(id, err.Error())
}

func (h *Handler) encodeResponse(resp *model.Response) []byte {
	b, _ := json.Marshal(resp)
	return b
}

func (h *Handler) encodeError(resp *model.ErrorResponse) []byte {
	b, _ := json.Marshal(resp)
	return b
}

// methodNotFoundError はメソッド未検出エラー
type methodNotFoundError struct {
	method string
}

func (e *methodNotFoundError) Error() string {
	return "method not found: " + e.method
}

// invalidParamsError はパラメータ形式エラー
type invalidParamsError struct {
	msg string
}

func (e *invalidParamsError) Error() string {
	return "invalid params: " + e.msg
}

// resourceReadError はリソース読み取り失敗にURIを付与する
type resourceReadError struct {
	uri string
	err error
}

func (e *resourceReadError) Error() string {
	return e.err.Error()
}

func (e *resourceReadError) Unwrap() error {
	return e.err
}
