package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/brbranch/notes_mcp/internal/model"
)

// mockHandler はテスト用のJSON-RPCハンドラー
type mockHandler struct {
	responses map[string]any
	calls     int
}

func newMockHandler() *mockHandler {
	return &mockHandler{
		responses: make(map[string]any),
	}
}

func (h *mockHandler) Handle(ctx context.Context, requestBytes []byte) []byte {
	h.calls++

	var req model.Request
	if err := json.Unmarshal(requestBytes, &req); err != nil {
		b, _ := json.Marshal(model.NewParseError(err.Error()))
		return b
	}

	if req.IsNotification() {
		return nil
	}

	if response, ok := h.responses[req.Method]; ok {
		b, _ := json.Marshal(model.NewResponse(req.ID, response))
		return b
	}

	b, _ := json.Marshal(model.NewMethodNotFound(req.ID, req.Method))
	return b
}

func (h *mockHandler) SetResponse(method string, response any) {
	h.responses[method] = response
}

func outputLines(output *bytes.Buffer) []string {
	trimmed := strings.TrimSpace(output.String())
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// TestServer_Run_SingleRequest は単一リクエスト/レスポンスをテスト
func TestServer_Run_SingleRequest(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("tools/list", map[string]any{"tools": []any{}})

	input := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	lines := outputLines(&output)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var resp model.Response
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Errorf("failed to parse response: %v", err)
	}
	if resp.ID != float64(1) {
		t.Errorf("expected id 1, got %v", resp.ID)
	}
}

// TestServer_Run_MultipleRequests は複数リクエストの順次処理をテスト
func TestServer_Run_MultipleRequests(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("ping", map[string]any{})

	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n"
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	lines := outputLines(&output)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	// 入力と同じ順でレスポンスが並ぶ
	for i, l := range lines {
		var resp model.Response
		json.Unmarshal([]byte(l), &resp)
		if resp.ID != float64(i+1) {
			t.Errorf("line %d: expected id %d, got %v", i, i+1, resp.ID)
		}
	}
}

// TestServer_Run_EmptyLines は空行のスキップ処理をテスト
func TestServer_Run_EmptyLines(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("ping", map[string]any{})

	input := "\n" +
		`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		"   \n" +
		`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n" +
		"\n"
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	if lines := outputLines(&output); len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
	if handler.calls != 2 {
		t.Errorf("empty lines must not reach the handler, got %d calls", handler.calls)
	}
}

// TestServer_Run_Notification は通知にレスポンスを書かないことをテスト
func TestServer_Run_Notification(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("ping", map[string]any{})

	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	lines := outputLines(&output)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), output.String())
	}
	if strings.Contains(lines[0], "notifications") {
		t.Errorf("notification must not be answered: %s", lines[0])
	}
}

// TestServer_Run_MultilineText は改行を含むテキストが1行で出力されることをテスト
func TestServer_Run_MultilineText(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("resources/read", map[string]any{
		"contents": []any{map[string]any{"uri": "notes://summary", "text": "Total Notes: 1\n\nID: 1\n"}},
	})

	input := `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"notes://summary"}}` + "\n"
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	lines := outputLines(&output)
	if len(lines) != 1 {
		t.Errorf("expected 1 line, got %d: %q", len(lines), output.String())
	}
}

// TestServer_Run_InvalidJSON は不正JSONをテスト
func TestServer_Run_InvalidJSON(t *testing.T) {
	handler := newMockHandler()

	input := `{invalid json}` + "\n"
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(output.String())), &resp); err != nil {
		t.Errorf("failed to parse error response: %v", err)
	}
	if resp.Error.Code != model.ErrCodeParseError {
		t.Errorf("expected ParseError code %d, got %d", model.ErrCodeParseError, resp.Error.Code)
	}
}

// TestServer_Run_ContextCancel はコンテキストキャンセルをテスト
func TestServer_Run_ContextCancel(t *testing.T) {
	handler := newMockHandler()

	ctx, cancel := context.WithCancel(context.Background())

	// 入力が来ないままのReader
	pr, pw := io.Pipe()
	defer pw.Close()
	var output bytes.Buffer

	server := New(handler, WithReader(pr), WithWriter(&output))

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("timeout waiting for server to stop")
	}
}

// TestServer_Run_EOF はEOFをテスト
func TestServer_Run_EOF(t *testing.T) {
	server := New(newMockHandler(), WithReader(strings.NewReader("")), WithWriter(&bytes.Buffer{}))

	// EOFはnil返却（正常終了）
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error on EOF, got %v", err)
	}
}

// TestServer_Run_LargeJSON は大きなJSON（1MB未満）をテスト
func TestServer_Run_LargeJSON(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("tools/call", map[string]any{"content": []any{}})

	// 約900KBの本文（1MB境界に近い）
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name": "create_note",
			"arguments": map[string]any{
				"title":   "large",
				"content": strings.Repeat("a", 900*1024),
			},
		},
	}
	reqBytes, _ := json.Marshal(req)
	var output bytes.Buffer

	server := New(handler, WithReader(strings.NewReader(string(reqBytes)+"\n")), WithWriter(&output))
	if err := server.Run(context.Background()); err != nil {
		t.Errorf("expected nil error for large JSON, got %v", err)
	}

	var resp model.Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(output.String())), &resp); err != nil {
		t.Errorf("failed to parse response: %v", err)
	}
}

// TestServer_Run_HugeJSON は巨大なJSON（1MB超過）をテスト
func TestServer_Run_HugeJSON(t *testing.T) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "create_note",
			"arguments": map[string]any{"title": "huge", "content": strings.Repeat("a", 1100*1024)},
		},
	}
	reqBytes, _ := json.Marshal(req)

	server := New(newMockHandler(), WithReader(strings.NewReader(string(reqBytes)+"\n")), WithWriter(&bytes.Buffer{}))
	err := server.Run(context.Background())

	// バッファ制限エラーが発生すること
	if err == nil {
		t.Fatal("expected error for huge JSON, got nil")
	}
	if !strings.Contains(err.Error(), "token too long") {
		t.Errorf("expected bufio.ErrTooLong, got %v", err)
	}
}

// errorWriter は書き込みエラーをシミュレートするWriter
type errorWriter struct {
	err error
}

func (w *errorWriter) Write(p []byte) (n int, err error) {
	return 0, w.err
}

// TestServer_Run_WriteError は書き込みエラーをテスト
func TestServer_Run_WriteError(t *testing.T) {
	handler := newMockHandler()
	handler.SetResponse("ping", map[string]any{})

	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	server := New(handler, WithReader(strings.NewReader(input)), WithWriter(&errorWriter{err: io.ErrClosedPipe}))

	if err := server.Run(context.Background()); err == nil {
		t.Error("expected write error, got nil")
	}
}
