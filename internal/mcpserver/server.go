// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Product OS workspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/service"
	"github.com/starford/productos/internal/store"
)

const entityFormatURI = "productos://entity-format"

// Server wraps the MCP server with Product OS tools.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates a new MCP server with all Product OS tools registered.
func New(svc *service.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Product OS",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("workspace_status",
		mcp.WithDescription("Report the workspace folder, its database file and whether it is configured."),
	), s.workspaceStatus)

	s.mcp.AddTool(mcp.NewTool("sync_workspace",
		mcp.WithDescription("Recreate missing product folders and entity Markdown files from the database. "+
			"Existing files are never overwritten."),
	), s.syncWorkspace)

	s.mcp.AddTool(mcp.NewTool("migrate_workspace",
		mcp.WithDescription("Move the workspace (database, products, exports, logs) to a new folder. "+
			"The old folder is kept as a backup."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the new workspace folder")),
	), s.migrateWorkspace)

	s.mcp.AddTool(mcp.NewTool("list_products",
		mcp.WithDescription("List all products with their ids, most recently active first."),
	), s.listProducts)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List the entities of a product, optionally filtered by type."),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("Product id (prod_...)")),
		mcp.WithString("type", mcp.Description("Optional entity type: capture, problem, hypothesis, experiment, decision, artifact")),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("read_entity_markdown",
		mcp.WithDescription("Read the Markdown file of an entity. When the file does not exist yet "+
			"it is rendered from the database."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id (e.g. prob_...)")),
	), s.readEntityMarkdown)

	s.mcp.AddTool(mcp.NewTool("create_capture",
		mcp.WithDescription("Record a quick capture for a product and write its Markdown file."),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("Product id (prod_...)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Capture title")),
		mcp.WithString("body", mcp.Description("Optional Markdown body")),
	), s.createCapture)

	s.mcp.AddTool(mcp.NewTool("get_entity_format",
		mcp.WithDescription("Returns the format of entity Markdown files. Files are generated; "+
			"read this to interpret them."),
	), s.getEntityFormat)

	s.mcp.AddResource(
		mcp.NewResource(entityFormatURI, "Entity File Format",
			mcp.WithResourceDescription("Layout and frontmatter of the generated entity Markdown files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntityFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) workspaceStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Info(ctx))
}

func (s *Server) syncWorkspace(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) migrateWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.Migrate(ctx, path)
	if !res.Success {
		return mcp.NewToolResultError("migration failed: " + res.Error), nil
	}
	return jsonResult(res)
}

func (s *Server) listProducts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	products, err := s.svc.ListProducts(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(products) == 0 {
		return mcp.NewToolResultText("no products"), nil
	}
	lines := make([]string, len(products))
	for i, p := range products {
		lines[i] = p.ID + "\t" + p.Name
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID, err := req.RequireString("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var f models.EntityFilters
	if typ, err := req.RequireString("type"); err == nil && typ != "" {
		f.Type = models.EntityType(typ)
		if !f.Type.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown entity type: %s", typ)), nil
		}
	}
	entities, err := s.svc.ListEntities(ctx, productID, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(entities))
	for i, e := range entities {
		lines[i] = e.ID + "\t" + string(e.Type) + "\t" + e.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readEntityMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.EntityMarkdown(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) createCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID, err := req.RequireString("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("title must not be empty"), nil
	}
	body := ""
	if b, err := req.RequireString("body"); err == nil {
		body = b
	}

	e, err := s.svc.CreateEntity(ctx, store.EntityCreate{
		ProductID: productID,
		Type:      models.TypeCapture,
		Title:     title,
		Body:      body,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", e.ID)), nil
}

func (s *Server) getEntityFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntityFormatContract), nil
}

func (s *Server) readEntityFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entityFormatURI,
			MIMEType: "text/markdown",
			Text:     EntityFormatContract,
		},
	}, nil
}
