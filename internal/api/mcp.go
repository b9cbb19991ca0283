package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/orchestrator"
)

const mcpSearchLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Bot     Bot
	Catalog ProductSource
}

// NewMCPServer creates an MCP server exposing the store assistant as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"overbot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("overbot — shopping assistant for the Over electronics store: product search, SKU lookup, and conversational help."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_products",
			mcp.WithDescription("Search the product catalog by free-text query and optional category. Returns in-stock products as JSON."),
			mcp.WithString("query", mcp.Description("Free-text search query"), mcp.Required()),
			mcp.WithString("category", mcp.Description("Optional catalog category, e.g. 'видеокарты'")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchProducts(deps),
	)

	s.AddTool(
		mcp.NewTool("product_by_sku",
			mcp.WithDescription("Fetch a single product by its exact SKU."),
			mcp.WithString("sku", mcp.Description("Product SKU"), mcp.Required()),
		),
		mcpProductBySKU(deps),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Send a customer message through the full assistant pipeline: intent classification, product search or PC build, and a natural-language reply."),
			mcp.WithString("message", mcp.Description("Customer message text"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session identifier; omit to start a new session")),
		),
		mcpChat(deps),
	)

	return s
}

func mcpSearchProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		category := req.GetString("category", "")
		limit := req.GetInt("limit", mcpSearchLimit)
		if limit <= 0 {
			limit = mcpSearchLimit
		}

		products := catalog.FilterInStock(deps.Catalog.SearchWithFallback(ctx, query, category))
		if len(products) > limit {
			products = products[:limit]
		}

		b, err := json.Marshal(products)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal products: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpProductBySKU(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sku, err := req.RequireString("sku")
		if err != nil {
			return mcpError("sku is required"), nil
		}

		product, ok := deps.Catalog.GetBySKU(ctx, sku)
		if !ok {
			return mcpError(fmt.Sprintf("product %s not found", sku)), nil
		}

		b, err := json.Marshal(product)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal product: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		sessionID := req.GetString("session_id", "")

		result, err := deps.Bot.HandleMessage(ctx, orchestrator.Incoming{
			SessionID: sessionID,
			Body:      message,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("chat failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
