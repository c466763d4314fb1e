// Package http implements the HTTP POST transport for mcp-notes.
package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultAddr はAddr未設定時のlisten address
	DefaultAddr = "127.0.0.1:8765"
	// MaxBodySize はリクエストボディの最大サイズ（1MB）
	MaxBodySize = 1024 * 1024
	// RequestIDHeader はリクエストIDのヘッダー名
	RequestIDHeader = "X-Request-Id"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Handler はJSON-RPCリクエストを処理する
// 通知の場合はnilを返す
type Handler interface {
	Handle(ctx context.Context, requestBytes []byte) []byte
}

// Config はHTTPサーバー設定
type Config struct {
	Addr        string   // listen address (例: "127.0.0.1:8765")
	CORSOrigins []string // 許可するオリジンリスト、空ならCORS無効
}

// Server はHTTP JSON-RPCサーバー
type Server struct {
	handler Handler
	config  Config
	srv     *http.Server
	logger  *slog.Logger
}

// New は新しいServerを生成
func New(handler Handler, config Config, logger *slog.Logger) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		handler: handler,
		config:  config,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)

	s.srv = &http.Server{
		Addr:              config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Run はサーバーを起動し、contextがキャンセルされるまで実行
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve は指定のlistenerで待ち受ける
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server started", "addr", ln.Addr().String())
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			// Graceful shutdownはエラーではない
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return s.srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handleRPC はJSON-RPCリクエストを処理
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = ulid.Make().String()
	}
	w.Header().Set(RequestIDHeader, requestID)
	logger := s.logger.With("requestId", requestID)

	// CORS処理
	s.handleCORS(w, r)

	// Preflightリクエスト
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// POSTのみ許可
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Content-Type確認
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
		return
	}

	// リクエストボディ読み取り（サイズ制限付き）
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warn("failed to read request body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// JSON-RPC処理
	start := time.Now()
	respBytes := s.handler.Handle(r.Context(), body)
	logger.Debug("rpc handled", "duration", time.Since(start))

	// 通知はボディなしで受理
	if respBytes == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// レスポンス送信
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(respBytes)
}
