package model

import "github.com/google/jsonschema-go/jsonschema"

// MCPプロトコルバージョン
const ProtocolVersion = "2025-06-18"

// InitializeParams は initialize メソッドのパラメータ
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
	Capabilities    Capabilities `json:"capabilities,omitempty"`
}

// ClientInfo はクライアント情報
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities はクライアント/サーバーの機能
type Capabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
}

// ToolsCapability はツール機能の設定
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability はリソース機能の設定
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeResult は initialize メソッドの結果
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Tool はMCPツールの定義
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// ToolsListResult は tools/list メソッドの結果
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolsCallParams は tools/call メソッドのパラメータ
type ToolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolsCallResult は tools/call メソッドの結果
type ToolsCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem はコンテンツアイテム
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewTextContent はテキストコンテンツを生成
func NewTextContent(text string) ContentItem {
	return ContentItem{
		Type: "text",
		Text: text,
	}
}

// Resource は静的リソースの定義（URI完全一致）
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourceTemplate はURIテンプレートで表されるリソースの定義
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourcesListResult は resources/list メソッドの結果
type ResourcesListResult struct {
	Resources []Resource `json:"resources"`
}

// ResourceTemplatesListResult は resources/templates/list メソッドの結果
type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ResourcesReadParams は resources/read メソッドのパラメータ
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourceContents はリソース読み取り結果の1件
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// ResourcesReadResult は resources/read メソッドの結果
type ResourcesReadResult struct {
	Contents []ResourceContents `json:"contents"`
}

// メディアタイプ
const (
	MimeTypeJSON = "application/json"
	MimeTypeText = "text/plain"
)
