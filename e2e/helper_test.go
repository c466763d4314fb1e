//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/brbranch/notes_mcp/internal/bootstrap"
	"github.com/brbranch/notes_mcp/internal/config"
	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/brbranch/notes_mcp/internal/transport/http"
	"github.com/brbranch/notes_mcp/internal/transport/stdio"
)

// RawResponse はJSON-RPCレスポンスの汎用形
type RawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError はJSON-RPCエラー
type RPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ToolResult はtools/callの結果
type ToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ReadResult はresources/readの結果
type ReadResult struct {
	Contents []struct {
		URI      string `json:"uri"`
		MIMEType string `json:"mimeType"`
		Text     string `json:"text"`
	} `json:"contents"`
}

// rpcClient はtransport越しにリクエストを送る
type rpcClient interface {
	// send はリクエストを送り、レスポンスを返す。通知の場合はnil
	send(t *testing.T, payload []byte) []byte
}

// client はIDの採番と結果のデコードを担う
type client struct {
	rpc    rpcClient
	nextID int
}

func (c *client) call(t *testing.T, method string, params any) *RawResponse {
	t.Helper()
	c.nextID++

	reqBytes, err := json.Marshal(model.Request{
		JSONRPC: "2.0",
		ID:      c.nextID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	respBytes := c.rpc.send(t, reqBytes)
	if respBytes == nil {
		t.Fatalf("%s: expected a response", method)
	}

	var resp RawResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v: %s", err, respBytes)
	}
	return &resp
}

func (c *client) notify(t *testing.T, method string) {
	t.Helper()
	reqBytes, _ := json.Marshal(model.Request{JSONRPC: "2.0", Method: method})
	if resp := c.rpc.send(t, reqBytes); resp != nil {
		t.Fatalf("%s: expected no response, got %s", method, resp)
	}
}

func (c *client) callTool(t *testing.T, name string, args map[string]any) string {
	t.Helper()
	resp := c.call(t, "tools/call", map[string]any{"name": name, "arguments": args})
	if resp.Error != nil {
		t.Fatalf("%s failed: %d %s", name, resp.Error.Code, resp.Error.Message)
	}

	var result ToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to unmarshal tool result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("expected one text content, got %+v", result.Content)
	}
	return result.Content[0].Text
}

func (c *client) readResource(t *testing.T, uri string) string {
	t.Helper()
	resp := c.call(t, "resources/read", map[string]any{"uri": uri})
	if resp.Error != nil {
		t.Fatalf("read %s failed: %d %s", uri, resp.Error.Code, resp.Error.Message)
	}

	var result ReadResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to unmarshal read result: %v", err)
	}
	if len(result.Contents) != 1 || result.Contents[0].URI != uri {
		t.Fatalf("expected one content for %s, got %+v", uri, result.Contents)
	}
	return result.Contents[0].Text
}

// readError はresources/readがエラーになることを確認してエラーを返す
func (c *client) readError(t *testing.T, uri string) *RPCError {
	t.Helper()
	resp := c.call(t, "resources/read", map[string]any{"uri": uri})
	if resp.Error == nil {
		t.Fatalf("read %s: expected error, got %s", uri, resp.Result)
	}
	return resp.Error
}

// setupServices はWelcomeノート入りのサービス群を構築
func setupServices(t *testing.T, storeType string) *bootstrap.Services {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Store.Type = storeType

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	services, cleanup, err := bootstrap.Initialize(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("failed to initialize services: %v", err)
	}
	t.Cleanup(cleanup)
	return services
}

// stdioClient はパイプ越しにstdioサーバーと通信する
type stdioClient struct {
	in  *io.PipeWriter
	out *bufio.Reader
}

func (c *stdioClient) send(t *testing.T, payload []byte) []byte {
	t.Helper()
	if _, err := c.in.Write(append(payload, '\n')); err != nil {
		t.Fatalf("failed to write request: %v", err)
	}

	// 通知にはレスポンスがないため、IDの有無で判定する
	var req model.Request
	_ = json.Unmarshal(payload, &req)
	if req.IsNotification() {
		return nil
	}

	line, err := c.out.ReadBytes('\n')
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return bytes.TrimSpace(line)
}

func newStdioClient(t *testing.T, services *bootstrap.Services) *client {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	server := stdio.New(services.Handler, stdio.WithReader(inR), stdio.WithWriter(outW), stdio.WithLogger(services.Logger))

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Run(ctx)
		outW.Close()
	}()

	t.Cleanup(func() {
		inW.Close()
		cancel()
		<-done
	})

	return &client{rpc: &stdioClient{in: inW, out: bufio.NewReader(outR)}}
}

// httpClient はPOST /rpcでHTTPサーバーと通信する
type httpClient struct {
	url string
}

func (c *httpClient) send(t *testing.T, payload []byte) []byte {
	t.Helper()
	resp, err := nethttp.Post(c.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to post request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusAccepted {
		return nil
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return body
}

func newHTTPClient(t *testing.T, services *bootstrap.Services) *client {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := http.New(services.Handler, http.Config{Addr: ln.Addr().String()}, services.Logger)

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("http server returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("http server did not shut down")
		}
	})

	return &client{rpc: &httpClient{url: fmt.Sprintf("http://%s/rpc", ln.Addr())}}
}

// transports はE2Eテストを実行するtransportとストアの組み合わせ
var transports = []struct {
	name      string
	storeType string
	connect   func(t *testing.T, services *bootstrap.Services) *client
}{
	{name: "stdio/memory", storeType: model.StoreTypeMemory, connect: newStdioClient},
	{name: "stdio/sqlite", storeType: model.StoreTypeSQLite, connect: newStdioClient},
	{name: "http/memory", storeType: model.StoreTypeMemory, connect: newHTTPClient},
	{name: "http/sqlite", storeType: model.StoreTypeSQLite, connect: newHTTPClient},
}

// forEachTransport は全transportでテストを実行する
func forEachTransport(t *testing.T, fn func(t *testing.T, c *client)) {
	for _, tt := range transports {
		t.Run(tt.name, func(t *testing.T) {
			services := setupServices(t, tt.storeType)
			fn(t, tt.connect(t, services))
		})
	}
}
