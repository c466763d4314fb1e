// Package bootstrap provides common initialization logic for mcp-notes.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/brbranch/notes_mcp/internal/catalog"
	"github.com/brbranch/notes_mcp/internal/jsonrpc"
	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/resource"
	"github.com/brbranch/notes_mcp/internal/store"
	"github.com/brbranch/notes_mcp/internal/tool"
)

// Services は初期化されたサービス群を保持
type Services struct {
	Store   store.Store
	Tools   *tool.Dispatcher
	Router  *resource.Router
	Catalog *catalog.Catalog
	Handler *jsonrpc.Handler
	Config  *model.Config
	Logger  *slog.Logger
}

// WelcomeNote は起動時に投入するノート
func WelcomeNote() model.NoteFields {
	return model.NoteFields{
		Title:   "Welcome",
		Content: "Welcome to the notes system!",
		Tags:    []string{"welcome", "info"},
	}
}

// NewLogger は設定に従ってロガーを生成する
// stdoutはstdioプロトコルで使うため、通常はstderrを渡す
func NewLogger(cfg model.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if cfg.Format == model.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Initialize は設定からストアとディスパッチャ群を組み立てる
// 戻り値のcleanupでストアを閉じる
func Initialize(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*Services, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Store初期化
	var st store.Store
	switch cfg.Store.Type {
	case model.StoreTypeSQLite:
		sqlite, err := store.NewSQLiteStore()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
		st = sqlite
	default:
		st = store.NewMemoryStore()
	}

	if err := st.Initialize(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Info("store initialized", "type", cfg.Store.Type)

	// 2. Welcomeノート
	if cfg.Store.ShouldSeedWelcome() {
		note, err := st.Insert(ctx, WelcomeNote())
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("failed to seed welcome note: %w", err)
		}
		logger.Debug("seeded welcome note", "id", note.ID)
	}

	// 3. ディスパッチャ群
	tools := tool.New(st, logger)
	router := resource.New(st, resource.Info{Name: cfg.Server.Name, Version: jsonrpc.ServerVersion}, logger)
	cat := catalog.New(tools, router, st)
	handler := jsonrpc.New(tools, router, cat, cfg.Server.Name, logger)

	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}

	return &Services{
		Store:   st,
		Tools:   tools,
		Router:  router,
		Catalog: cat,
		Handler: handler,
		Config:  cfg,
		Logger:  logger,
	}, cleanup, nil
}
