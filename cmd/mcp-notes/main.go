package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/brbranch/notes_mcp/internal/bootstrap"
	"github.com/brbranch/notes_mcp/internal/config"
	"github.com/brbranch/notes_mcp/internal/jsonrpc"
	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/sdkserver"
	"github.com/brbranch/notes_mcp/internal/transport/http"
	"github.com/brbranch/notes_mcp/internal/transport/stdio"
)

// Options はCLI引数オプション
// 空文字・0は未指定として扱い、設定ファイルの値を使う
type Options struct {
	Transport  string
	Runtime    string
	Host       string
	Port       int
	ConfigPath string
	Store      string
	LogLevel   string
	Write      bool
	NoColor    bool
}

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// execute はサブコマンドを振り分ける（テスト容易性のため分離）
func execute(args []string, stdout, stderr io.Writer) error {
	// 引数なしの場合はserveをデフォルト実行
	if len(args) == 0 {
		return runServeCmd(nil, stderr)
	}

	switch args[0] {
	case "serve":
		return runServeCmd(args[1:], stderr)
	case "demo":
		return runDemoCmd(args[1:], stdout)
	case "config":
		return runConfigCmd(args[1:], stdout)
	case "version", "-v", "--version":
		printVersion(stdout)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// printUsage prints the usage information
func printUsage(w io.Writer) {
	fmt.Fprintln(w, `mcp-notes - In-memory MCP Notes Server

Usage:
  mcp-notes <command> [options]

Commands:
  serve     Start the MCP server (stdio or HTTP)
  demo      Run the scripted client flow against an in-process server
  config    Print the effective configuration (or write it with --write)
  version   Print version information
  help      Print this help message

Options:
  -t, --transport string   Transport type: stdio, http (default: stdio)
  --runtime string         Server runtime: builtin, sdk (default: builtin)
  --host string            HTTP host (default: 127.0.0.1)
  -p, --port int           HTTP port (default: 8765)
  -c, --config string      Config file path (.json, .yaml, .yml, .toml)
  --store string           Store type: memory, sqlite (default: memory)
  --log-level string       Log level: debug, info, warn, error (default: info)

Config Options:
  --write                  Save the effective configuration to the config file

Demo Options:
  --no-color               Disable colored output

Examples:
  mcp-notes serve
  mcp-notes serve -t http -p 8080
  mcp-notes serve --runtime sdk
  mcp-notes demo --store sqlite
  mcp-notes config -c ~/.mcp-notes/config.yaml --write`)
}

// printVersion prints the version information
// バージョンは -ldflags "-X github.com/brbranch/notes_mcp/internal/jsonrpc.ServerVersion=..." で変更可能
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mcp-notes version %s\n", jsonrpc.ServerVersion)
}

// parseFlags は引数をパースしてOptionsを返す
func parseFlags(name string, args []string) (*Options, error) {
	fs := flag.NewFlagSet("mcp-notes "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := &Options{}
	fs.StringVar(&opts.Transport, "transport", "", "Transport type: stdio, http")
	fs.StringVar(&opts.Transport, "t", "", "Transport type (shorthand)")
	fs.StringVar(&opts.Runtime, "runtime", "", "Server runtime: builtin, sdk")
	fs.StringVar(&opts.Host, "host", "", "HTTP host")
	fs.IntVar(&opts.Port, "port", 0, "HTTP port")
	fs.IntVar(&opts.Port, "p", 0, "HTTP port (shorthand)")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&opts.ConfigPath, "c", "", "Config file path (shorthand)")
	fs.StringVar(&opts.Store, "store", "", "Store type: memory, sqlite")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	switch name {
	case "config":
		fs.BoolVar(&opts.Write, "write", false, "Save the effective configuration")
	case "demo":
		fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	// バリデーション
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d (must be 1-65535)", opts.Port)
	}

	return opts, nil
}

// loadConfig は設定ファイルを読み込み、CLIフラグで上書きする
// 優先順位: デフォルト → 設定ファイル → 環境変数 → CLIフラグ
func loadConfig(opts *Options) (*config.Manager, error) {
	mgr, err := config.NewManager(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := mgr.Update(func(cfg *model.Config) {
		applyFlags(cfg, opts)
	}); err != nil {
		return nil, err
	}

	return mgr, nil
}

func applyFlags(cfg *model.Config, opts *Options) {
	if opts.Transport != "" {
		cfg.Server.Transport = opts.Transport
	}
	if opts.Runtime != "" {
		cfg.Server.Runtime = opts.Runtime
	}
	if opts.Store != "" {
		cfg.Store.Type = opts.Store
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Host != "" || opts.Port != 0 {
		cfg.Server.HTTPAddr = mergeAddr(cfg.Server.HTTPAddr, opts.Host, opts.Port)
	}
}

// mergeAddr はlisten addressのhost/portを部分的に置き換える
func mergeAddr(addr, host string, port int) string {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		h, p, _ = net.SplitHostPort(config.DefaultHTTPAddr)
	}
	if host != "" {
		h = host
	}
	if port != 0 {
		p = strconv.Itoa(port)
	}
	return net.JoinHostPort(h, p)
}

// setupSignalHandler はSIGINT/SIGTERMを受けてcontextをキャンセルする
func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// runServeCmd はserveコマンドを実行
func runServeCmd(args []string, stderr io.Writer) error {
	opts, err := parseFlags("serve", args)
	if err != nil {
		return err
	}

	mgr, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	err = runServe(ctx, mgr.GetConfig(), stderr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runServe は設定に従ってランタイムとtransportを起動する
func runServe(ctx context.Context, cfg *model.Config, stderr io.Writer) error {
	// stdoutはstdioプロトコルで使うため、ログは常にstderrへ
	logger := bootstrap.NewLogger(cfg.Logging, stderr)

	services, cleanup, err := bootstrap.Initialize(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Server.Runtime == model.RuntimeSDK {
		server, err := sdkserver.New(ctx, cfg.Server.Name, jsonrpc.ServerVersion,
			services.Tools, services.Router, services.Catalog, logger)
		if err != nil {
			return fmt.Errorf("failed to create sdk server: %w", err)
		}
		logger.Info("serving", "runtime", cfg.Server.Runtime, "transport", model.TransportStdio)
		return server.Run(ctx)
	}

	logger.Info("serving", "runtime", cfg.Server.Runtime, "transport", cfg.Server.Transport)

	switch cfg.Server.Transport {
	case model.TransportStdio:
		server := stdio.New(services.Handler, stdio.WithLogger(logger))
		return server.Run(ctx)
	case model.TransportHTTP:
		server := http.New(services.Handler, http.Config{
			Addr:        cfg.Server.HTTPAddr,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, logger)
		return server.Run(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Server.Transport)
	}
}
