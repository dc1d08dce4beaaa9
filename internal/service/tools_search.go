package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/newsdex/internal/domain"
	"github.com/sha1n/newsdex/internal/search"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query  string `json:"query" jsonschema_description:"Search query (supports phrases, +required and -excluded terms)"`
	Domain string `json:"domain,omitempty" jsonschema_description:"Restrict results to a host name (e.g., spring.io)"`
	Days   int    `json:"days,omitempty" jsonschema_description:"Only return documents observed within the last N days"`
	Page   int    `json:"page,omitempty" jsonschema_description:"Zero-based result page"`
	Size   int    `json:"size,omitempty" jsonschema_description:"Results per page"`
}

// SearchHandler handles the search_news MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	resp, err := h.service.Search(ctx, search.Request{
		Query:  args.Query,
		Domain: args.Domain,
		Days:   args.Days,
		Page:   args.Page,
		Size:   args.Size,
	})
	if errors.Is(err, search.ErrInvalidQuery) {
		return errorResult(fmt.Sprintf("Invalid query: %s", args.Query)), nil, nil
	}
	if err != nil {
		return errorResult("Search is temporarily unavailable. Please try again later."), nil, nil
	}

	return formatResults(resp, args.Query), nil, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// formatResults renders a result page as markdown.
func formatResults(resp *domain.SearchResponse, queryStr string) *mcp.CallToolResult {
	if len(resp.Results) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("No results found for query: %s", queryStr)},
			},
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", resp.TotalResults, queryStr))

	for i, r := range resp.Results {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, r.Title))
		sb.WriteString(fmt.Sprintf("%s\n", r.URL))
		sb.WriteString(fmt.Sprintf("**Domain**: %s | **Observed**: %s | **Score**: %.4f\n\n",
			r.Domain, domain.FromMillis(r.ObservedAt).Format(time.RFC3339), r.Score))
		if r.Snippet != "" {
			sb.WriteString("> ")
			sb.WriteString(r.Snippet)
			sb.WriteString("\n\n")
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_news",
		Description: "Search crawled pages and news articles, ranked by relevance with a freshness boost",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
