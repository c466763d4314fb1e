package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/brbranch/notes_mcp/internal/bootstrap"
	"github.com/brbranch/notes_mcp/internal/model"
)

// RPCHandler はdemoが使うJSON-RPCハンドラ
type RPCHandler interface {
	Handle(ctx context.Context, requestBytes []byte) []byte
}

// demoPalette はdemo出力の色
type demoPalette struct {
	step  *color.Color
	ok    *color.Color
	fault *color.Color
	dim   *color.Color
}

func newDemoPalette(noColor bool) *demoPalette {
	p := &demoPalette{
		step:  color.New(color.FgCyan, color.Bold),
		ok:    color.New(color.FgGreen),
		fault: color.New(color.FgRed),
		dim:   color.New(color.Faint),
	}
	if noColor {
		for _, c := range []*color.Color{p.step, p.ok, p.fault, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

// demoResponse はtools/callとresources/readの結果をまとめて受ける
type demoResponse struct {
	Result *struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
		ServerInfo *struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	} `json:"result"`
	Error *model.RPCError `json:"error"`
}

// demoClient はin-processのハンドラに連番IDでリクエストを送る
type demoClient struct {
	handler RPCHandler
	out     io.Writer
	palette *demoPalette
	nextID  int
}

func (c *demoClient) call(ctx context.Context, method string, params any) (*demoResponse, error) {
	c.nextID++
	req, err := json.Marshal(model.Request{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	raw := c.handler.Handle(ctx, req)
	var resp demoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return &resp, nil
}

func (c *demoClient) section(title string) {
	c.palette.step.Fprintf(c.out, "\n== %s ==\n", title)
}

// print は結果テキスト、またはエラーを表示する
func (c *demoClient) print(resp *demoResponse) string {
	if resp.Error != nil {
		c.palette.fault.Fprintf(c.out, "Error %d: %s\n", resp.Error.Code, resp.Error.Message)
		return ""
	}

	var texts []string
	if resp.Result != nil {
		for _, item := range resp.Result.Content {
			texts = append(texts, item.Text)
		}
		for _, item := range resp.Result.Contents {
			c.palette.dim.Fprintf(c.out, "%s\n", item.URI)
			texts = append(texts, item.Text)
		}
	}
	text := strings.Join(texts, "\n")
	c.palette.ok.Fprintln(c.out, text)
	return text
}

func (c *demoClient) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, err := c.call(ctx, "tools/call", map[string]any{"name": name, "arguments": args})
	if err != nil {
		return "", err
	}
	return c.print(resp), nil
}

func (c *demoClient) readResource(ctx context.Context, uri string) error {
	resp, err := c.call(ctx, "resources/read", map[string]any{"uri": uri})
	if err != nil {
		return err
	}
	c.print(resp)
	return nil
}

// runDemo は作成・検索・要約・更新・取得・削除の一連の流れを実行する
func runDemo(ctx context.Context, handler RPCHandler, out io.Writer, noColor bool) error {
	c := &demoClient{handler: handler, out: out, palette: newDemoPalette(noColor)}

	c.section("initialize")
	resp, err := c.call(ctx, "initialize", map[string]any{})
	if err != nil {
		return err
	}
	if resp.Result != nil && resp.Result.ServerInfo != nil {
		c.palette.ok.Fprintf(out, "Connected to %s %s\n", resp.Result.ServerInfo.Name, resp.Result.ServerInfo.Version)
	}

	c.section("create_note")
	text, err := c.callTool(ctx, "create_note", map[string]any{
		"title":   "Shopping List",
		"content": "Buy milk, eggs, bread",
		"tags":    []string{"shopping", "todo"},
	})
	if err != nil {
		return err
	}
	var id string
	if _, err := fmt.Sscanf(text, "Created note with ID: %s", &id); err != nil {
		return fmt.Errorf("unexpected create_note result: %q", text)
	}

	c.section("search_notes")
	if _, err := c.callTool(ctx, "search_notes", map[string]any{"query": "shopping"}); err != nil {
		return err
	}

	c.section("notes://summary")
	if err := c.readResource(ctx, "notes://summary"); err != nil {
		return err
	}

	c.section("update_note")
	if _, err := c.callTool(ctx, "update_note", map[string]any{
		"id":      id,
		"content": "Buy milk, eggs, bread, and coffee",
	}); err != nil {
		return err
	}

	noteURI := "notes://note/" + id
	c.section(noteURI)
	if err := c.readResource(ctx, noteURI); err != nil {
		return err
	}

	c.section("delete_note")
	if _, err := c.callTool(ctx, "delete_note", map[string]any{"id": id}); err != nil {
		return err
	}

	c.section(noteURI + " (after delete)")
	return c.readResource(ctx, noteURI)
}

// runDemoCmd はdemoコマンドを実行
func runDemoCmd(args []string, stdout io.Writer) error {
	opts, err := parseFlags("demo", args)
	if err != nil {
		return err
	}

	mgr, err := loadConfig(opts)
	if err != nil {
		return err
	}
	cfg := mgr.GetConfig()

	ctx, cancel := setupSignalHandler()
	defer cancel()

	services, cleanup, err := bootstrap.Initialize(ctx, cfg, bootstrap.NewLogger(cfg.Logging, io.Discard))
	if err != nil {
		return err
	}
	defer cleanup()

	return runDemo(ctx, services.Handler, stdout, opts.NoColor)
}
