// Package resource はnotes:// URIをストアの読み取りビューに振り分ける
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/store"
	"github.com/yosida95/uritemplate/v3"
)

// Scheme はこのサーバーが扱うURIスキーム
const Scheme = "notes://"

// リソースURI
const (
	URIList         = "notes://list"
	URISummary      = "notes://summary"
	URIInfo         = "notes://info"
	URITemplateNote = "notes://note/{id}"
)

// エラー定義
var (
	ErrMalformedURI    = errors.New("malformed resource uri")
	ErrUnknownResource = errors.New("unknown resource uri")
	ErrNoteNotFound    = errors.New("note not found")
)

// Info はnotes://infoに載せるサーバー情報
type Info struct {
	Name    string
	Version string
}

type staticResource struct {
	def  model.Resource
	read func(ctx context.Context) (string, error)
}

// Router はURIを静的リソースとテンプレートに振り分ける
// 読み取りのたびにストアから再計算し、キャッシュしない
type Router struct {
	store    store.Store
	info     Info
	logger   *slog.Logger
	clock    func() time.Time
	static   map[string]*staticResource
	order    []string
	template *uritemplate.Template
	noteDef  model.ResourceTemplate
}

// New は新しいRouterを生成
func New(s store.Store, info Info, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		store:    s,
		info:     info,
		logger:   logger,
		clock:    time.Now,
		static:   make(map[string]*staticResource),
		template: uritemplate.MustNew(URITemplateNote),
		noteDef: model.ResourceTemplate{
			URITemplate: URITemplateNote,
			Name:        "Note by ID",
			MimeType:    model.MimeTypeJSON,
		},
	}

	r.addStatic(model.Resource{
		URI:         URIList,
		Name:        "All Notes",
		MimeType:    model.MimeTypeJSON,
		Description: "List of all notes with metadata",
	}, r.readList)
	r.addStatic(model.Resource{
		URI:         URISummary,
		Name:        "Notes Summary",
		MimeType:    model.MimeTypeText,
		Description: "Summary of all notes",
	}, r.readSummary)
	r.addStatic(model.Resource{
		URI:         URIInfo,
		Name:        "Server Info",
		MimeType:    model.MimeTypeJSON,
		Description: "Information about this MCP server",
	}, r.readInfo)

	return r
}

func (r *Router) addStatic(def model.Resource, read func(ctx context.Context) (string, error)) {
	r.static[def.URI] = &staticResource{def: def, read: read}
	r.order = append(r.order, def.URI)
}

// Resources は静的リソースの定義を返す
func (r *Router) Resources() []model.Resource {
	resources := make([]model.Resource, 0, len(r.order))
	for _, uri := range r.order {
		resources = append(resources, r.static[uri].def)
	}
	return resources
}

// NoteTemplate はノート個別参照のテンプレート定義を返す（説明文はカタログ側で付与）
func (r *Router) NoteTemplate() model.ResourceTemplate {
	return r.noteDef
}

// Read はURIを解決してリソースの内容を返す
// 優先順: スキーム検証 → 静的URI完全一致 → テンプレート一致 → 不明
func (r *Router) Read(ctx context.Context, uri string) (*model.ResourceContents, error) {
	if !strings.HasPrefix(uri, Scheme) {
		r.logger.Warn("malformed resource uri", "uri", uri)
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrMalformedURI, Scheme, uri)
	}

	if res, ok := r.static[uri]; ok {
		text, err := res.read(ctx)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("resource read", "uri", uri)
		return &model.ResourceContents{URI: uri, MimeType: res.def.MimeType, Text: text}, nil
	}

	if id, ok := r.matchNote(uri); ok {
		text, err := r.readNote(ctx, id)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("resource read", "uri", uri, "id", id)
		return &model.ResourceContents{URI: uri, MimeType: r.noteDef.MimeType, Text: text}, nil
	}

	r.logger.Warn("unknown resource uri", "uri", uri)
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
}

// matchNote はテンプレートに一致すればIDを返す
// {id}は1セグメントのみに一致し、空のIDは不一致とする
func (r *Router) matchNote(uri string) (string, bool) {
	values := r.template.Match(uri)
	if values == nil {
		return "", false
	}
	id := values.Get("id").String()
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (r *Router) readList(ctx context.Context) (string, error) {
	notes, err := r.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list notes: %w", err)
	}
	return encodeJSON(notes)
}

func (r *Router) readSummary(ctx context.Context) (string, error) {
	notes, err := r.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list notes: %w", err)
	}
	return renderSummary(notes), nil
}

func (r *Router) readInfo(ctx context.Context) (string, error) {
	notes, err := r.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list notes: %w", err)
	}

	info := map[string]any{
		"name":         r.info.Name,
		"version":      r.info.Version,
		"capabilities": []string{"tools", "resources", "resource_templates"},
		"noteCount":    len(notes),
		"timestamp":    model.FormatTime(r.clock()),
	}
	return encodeJSON(info)
}

func (r *Router) readNote(ctx context.Context, id string) (string, error) {
	note, err := r.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("note not found", "id", id)
		return "", fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get note: %w", err)
	}
	return encodeJSON(note)
}

func encodeJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode resource: %w", err)
	}
	return string(b), nil
}
