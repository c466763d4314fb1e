// Package stdio implements the line-delimited stdio transport for mcp-notes.
package stdio

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// MaxBufferSize はScannerの最大バッファサイズ（1MB）
const MaxBufferSize = 1024 * 1024

// Handler はJSON-RPCリクエストを処理するインターフェース
// 通知の場合はnilを返す
type Handler interface {
	Handle(ctx context.Context, requestBytes []byte) []byte
}

// Server はstdio JSON-RPCサーバー
// リクエストは1行ずつ順番に処理し、同時に複数を処理しない
type Server struct {
	handler Handler
	reader  io.Reader
	writer  io.Writer
	logger  *slog.Logger
}

// Option はサーバーオプション
type Option func(*Server)

// WithReader はreaderを設定（テスト用）
func WithReader(r io.Reader) Option {
	return func(s *Server) {
		s.reader = r
	}
}

// WithWriter はwriterを設定（テスト用）
func WithWriter(w io.Writer) Option {
	return func(s *Server) {
		s.writer = w
	}
}

// WithLogger はloggerを設定
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New は新しいServerを生成
func New(handler Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		reader:  os.Stdin,
		writer:  os.Stdout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// line は読み取った1行または読み取りエラー
type line struct {
	text string
	err  error
}

// Run はサーバーを起動し、EOFかcontextのキャンセルまで実行
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan line)
	go s.readLines(ctx, lines)

	s.logger.Info("stdio server started")

	for {
		var l line
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok = <-lines:
		}

		if !ok {
			// EOF: 正常終了
			s.logger.Info("stdio input closed")
			return nil
		}
		if l.err != nil {
			return l.err
		}

		// 空行はスキップ
		if strings.TrimSpace(l.text) == "" {
			continue
		}

		response := s.handler.Handle(ctx, []byte(l.text))

		// 通知にはレスポンスを書かない
		if response == nil {
			continue
		}

		// レスポンスを書き込み（1行 + 改行）
		if _, err := s.writer.Write(append(response, '\n')); err != nil {
			return err
		}
	}
}

// readLines は入力を1行ずつchannelに送り、EOFでchannelを閉じる
func (s *Server) readLines(ctx context.Context, out chan<- line) {
	defer close(out)

	scanner := bufio.NewScanner(s.reader)
	// バッファサイズを1MBに拡張
	buf := make([]byte, MaxBufferSize)
	scanner.Buffer(buf, MaxBufferSize)

	for scanner.Scan() {
		select {
		case out <- line{text: scanner.Text()}:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case out <- line{err: err}:
		case <-ctx.Done():
		}
	}
}
