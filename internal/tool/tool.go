// Package tool はノート操作ツールのディスパッチを実装する
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/store"
	"github.com/google/jsonschema-go/jsonschema"
)

// エラー定義
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// entry はディスパッチテーブルの1行
type entry struct {
	def      model.Tool
	resolved *jsonschema.Resolved
	run      func(ctx context.Context, args map[string]any) (string, error)
}

// Dispatcher はツール名と引数をストア操作に振り分ける
// 状態は持たず、全てのデータはStoreに置く
type Dispatcher struct {
	store   store.Store
	logger  *slog.Logger
	entries map[string]*entry
	order   []string
}

// New は新しいDispatcherを生成
func New(s store.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		store:   s,
		logger:  logger,
		entries: make(map[string]*entry),
	}

	d.register(newEntry(model.Tool{
		Name:        NameCreateNote,
		Description: "Create a new note",
		InputSchema: createNoteSchema(),
	}, d.createNote))
	d.register(newEntry(model.Tool{
		Name:        NameUpdateNote,
		Description: "Update an existing note",
		InputSchema: updateNoteSchema(),
	}, d.updateNote))
	d.register(newEntry(model.Tool{
		Name:        NameDeleteNote,
		Description: "Delete a note",
		InputSchema: deleteNoteSchema(),
	}, d.deleteNote))
	d.register(newEntry(model.Tool{
		Name:        NameSearchNotes,
		Description: "Search notes by keyword or tag",
		InputSchema: searchNotesSchema(),
	}, d.searchNotes))

	return d
}

// newEntry は型付き引数のハンドラーからテーブル行を作る
// スキーマは固定なので解決に失敗するのはプログラムの誤り
func newEntry[A any](def model.Tool, handler func(ctx context.Context, args *A) (string, error)) *entry {
	resolved, err := def.InputSchema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("tool %s: invalid input schema: %v", def.Name, err))
	}

	return &entry{
		def:      def,
		resolved: resolved,
		run: func(ctx context.Context, raw map[string]any) (string, error) {
			var args A
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}
			return handler(ctx, &args)
		},
	}
}

func (d *Dispatcher) register(e *entry) {
	d.entries[e.def.Name] = e
	d.order = append(d.order, e.def.Name)
}

// Definitions はツール定義を登録順で返す
func (d *Dispatcher) Definitions() []model.Tool {
	tools := make([]model.Tool, 0, len(d.order))
	for _, name := range d.order {
		tools = append(tools, d.entries[name].def)
	}
	return tools
}

// Call はツールを実行し、テキスト結果を返す
// 未知のツール名と引数不正はエラー、存在しないノートIDは通常の結果として返す
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) ([]model.ContentItem, error) {
	e, ok := d.entries[name]
	if !ok {
		d.logger.Warn("unknown tool", "tool", name)
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	// 呼び出し元のmapは変更しない
	args = maps.Clone(args)
	if args == nil {
		args = map[string]any{}
	}

	// 省略された任意引数にデフォルト値を埋めてから検証
	if err := e.resolved.ApplyDefaults(&args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	if err := e.resolved.Validate(args); err != nil {
		d.logger.Warn("invalid tool arguments", "tool", name, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}

	start := time.Now()
	text, err := e.run(ctx, args)
	if err != nil {
		d.logger.Error("tool failed", "tool", name, "duration", time.Since(start), "error", err)
		return nil, err
	}

	d.logger.Debug("tool called", "tool", name, "duration", time.Since(start))
	return []model.ContentItem{model.NewTextContent(text)}, nil
}

func (d *Dispatcher) createNote(ctx context.Context, args *CreateNoteArgs) (string, error) {
	note, err := d.store.Insert(ctx, args.Fields())
	if err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	return renderCreated(note), nil
}

func (d *Dispatcher) updateNote(ctx context.Context, args *UpdateNoteArgs) (string, error) {
	note, err := d.store.Update(ctx, args.ID, args.Patch())
	if errors.Is(err, store.ErrNotFound) {
		return renderNotFound(args.ID), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to update note: %w", err)
	}
	return renderUpdated(note), nil
}

func (d *Dispatcher) deleteNote(ctx context.Context, args *DeleteNoteArgs) (string, error) {
	note, err := d.store.Delete(ctx, args.ID)
	if errors.Is(err, store.ErrNotFound) {
		return renderNotFound(args.ID), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete note: %w", err)
	}
	return renderDeleted(note), nil
}

func (d *Dispatcher) searchNotes(ctx context.Context, args *SearchNotesArgs) (string, error) {
	results, err := d.store.Search(ctx, args.Query, store.SearchOptions{IncludeTags: args.IncludeTags()})
	if err != nil {
		return "", fmt.Errorf("failed to search notes: %w", err)
	}
	return renderSearch(args.Query, results), nil
}

// decodeArgs は検証済みの引数を型付き構造体に変換する
func decodeArgs(raw map[string]any, target any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
