package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/productos/internal/service"
	"github.com/starford/productos/internal/testutil"
)

func testServer(t *testing.T) (*Server, *service.Service, string) {
	t.Helper()
	m, root := testutil.TestWorkspace(t)
	svc := service.NewService(m, nil, testutil.Logger())
	return New(svc), svc, root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "workspace_status":
		result, err = srv.workspaceStatus(ctx, req)
	case "sync_workspace":
		result, err = srv.syncWorkspace(ctx, req)
	case "migrate_workspace":
		result, err = srv.migrateWorkspace(ctx, req)
	case "list_products":
		result, err = srv.listProducts(ctx, req)
	case "list_entities":
		result, err = srv.listEntities(ctx, req)
	case "read_entity_markdown":
		result, err = srv.readEntityMarkdown(ctx, req)
	case "create_capture":
		result, err = srv.createCapture(ctx, req)
	case "get_entity_format":
		result, err = srv.getEntityFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateCaptureAndRead(t *testing.T) {
	srv, svc, _ := testServer(t)
	p, err := svc.CreateProduct(context.Background(), "SidelineHD", nil)
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "create_capture", map[string]interface{}{
		"product_id": p.ID,
		"title":      "Coaches want clips",
		"body":       "Heard twice this week.\n",
	})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "created: cap_") {
		t.Fatalf("create result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "read_entity_markdown", map[string]interface{}{"id": id})
	text = resultText(r)
	if !strings.HasPrefix(text, "---\nid: "+id+"\ntype: capture\ntitle: Coaches want clips\n") {
		t.Errorf("read result = %q", text)
	}
	if !strings.HasSuffix(text, "---\n\nHeard twice this week.\n") {
		t.Errorf("body missing: %q", text)
	}

	r = callTool(t, srv, "list_entities", map[string]interface{}{"product_id": p.ID, "type": "capture"})
	if got := resultText(r); got != id+"\tcapture\tCoaches want clips" {
		t.Errorf("list_entities = %q", got)
	}

	r = callTool(t, srv, "list_products", map[string]interface{}{})
	if got := resultText(r); got != p.ID+"\tSidelineHD" {
		t.Errorf("list_products = %q", got)
	}
}

func TestCreateCaptureUnknownProduct(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "create_capture", map[string]interface{}{
		"product_id": "prod_nope00000000",
		"title":      "x",
	})
	if !r.IsError {
		t.Error("expected error for unknown product")
	}
}

func TestReadEntityMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_entity_markdown", map[string]interface{}{"id": "prob_nope00000000"})
	if !r.IsError {
		t.Error("expected error for missing entity")
	}
}

func TestListEntitiesUnknownType(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "list_entities", map[string]interface{}{"product_id": "prod_x", "type": "story"})
	if !r.IsError {
		t.Error("expected error for unknown type")
	}
}

func TestWorkspaceTools(t *testing.T) {
	srv, _, root := testServer(t)

	r := callTool(t, srv, "workspace_status", map[string]interface{}{})
	var info service.WorkspaceInfo
	if err := json.Unmarshal([]byte(resultText(r)), &info); err != nil {
		t.Fatal(err)
	}
	if info.Path != root || !info.Configured {
		t.Errorf("status = %+v", info)
	}

	r = callTool(t, srv, "sync_workspace", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("sync: %s", resultText(r))
	}

	r = callTool(t, srv, "migrate_workspace", map[string]interface{}{"path": root})
	if !r.IsError {
		t.Error("migrating onto the current workspace should fail")
	}

	target := filepath.Join(filepath.Dir(root), "moved")
	r = callTool(t, srv, "migrate_workspace", map[string]interface{}{"path": target})
	if r.IsError {
		t.Fatalf("migrate: %s", resultText(r))
	}
	r = callTool(t, srv, "workspace_status", map[string]interface{}{})
	if !strings.Contains(resultText(r), filepath.ToSlash(target)) && !strings.Contains(resultText(r), target) {
		t.Errorf("status after migrate = %s", resultText(r))
	}
}

func TestEntityFormatContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_entity_format", map[string]interface{}{})
	if resultText(r) != EntityFormatContract {
		t.Error("contract mismatch")
	}
}
