package model

import "strings"

// Request はJSON-RPC 2.0リクエスト
type Request struct {
	JSONRPC string `json:"jsonrpc"`          // 常に "2.0"
	ID      any    `json:"id,omitempty"`     // string | number、通知では省略
	Method  string `json:"method"`           // メソッド名
	Params  any    `json:"params,omitempty"` // 任意のオブジェクト、省略可
}

// IsNotification はレスポンス不要な通知かを返す
func (r *Request) IsNotification() bool {
	return r.ID == nil && strings.HasPrefix(r.Method, "notifications/")
}

// Response はJSON-RPC 2.0レスポンス（成功時）
type Response struct {
	JSONRPC string `json:"jsonrpc"` // 常に "2.0"
	ID      any    `json:"id"`      // リクエストのIDと同一
	Result  any    `json:"result"`  // 結果オブジェクト
}

// ErrorResponse はJSON-RPC 2.0エラーレスポンス
type ErrorResponse struct {
	JSONRPC string   `json:"jsonrpc"` // 常に "2.0"
	ID      any      `json:"id"`      // リクエストのIDと同一（パース失敗時はnull）
	Error   RPCError `json:"error"`   // エラーオブジェクト
}

// RPCError はJSON-RPC 2.0エラーオブジェクト
type RPCError struct {
	Code    int    `json:"code"`           // エラーコード
	Message string `json:"message"`        // エラーメッセージ
	Data    any    `json:"data,omitempty"` // 追加情報、省略可
}

// JSON-RPC 2.0 標準エラーコード
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid Request
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid params（未知のツール、必須引数不足、不正なURIスキームを含む）
	ErrCodeInternalError  = -32603 // Internal error
)

// MCPのサーバー定義エラーコード
const (
	ErrCodeResourceNotFound = -32002 // Resource not found（未知のURI、存在しないノート）
)

// NewResponse は成功レスポンスを生成
func NewResponse(id any, result any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse はエラーレスポンスを生成
func NewErrorResponse(id any, code int, message string, data any) *ErrorResponse {
	return &ErrorResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// NewParseError はパースエラーレスポンスを生成（IDはnull）
func NewParseError(data any) *ErrorResponse {
	return NewErrorResponse(nil, ErrCodeParseError, "Parse error", data)
}

// NewInvalidRequest は無効リクエストエラーレスポンスを生成
func NewInvalidRequest(id any, data any) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeInvalidRequest, "Invalid Request", data)
}

// NewMethodNotFound はメソッド未検出エラーレスポンスを生成
func NewMethodNotFound(id any, method string) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeMethodNotFound, "Method not found", method)
}

// NewInvalidParams は無効パラメータエラーレスポンスを生成
func NewInvalidParams(id any, message string) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeInvalidParams, message, nil)
}

// NewResourceNotFound はリソース未検出エラーレスポンスを生成
func NewResourceNotFound(id any, message, uri string) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeResourceNotFound, message, map[string]any{"uri": uri})
}

// NewInternalError は内部エラーレスポンスを生成
func NewInternalError(id any, message string) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeInternalError, message, nil)
}
