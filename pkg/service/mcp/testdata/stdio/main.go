package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// lookupParams defines the parameters for the lookup tool
type lookupParams struct {
	Query string `json:"query" jsonschema:"Search query"`
}

// lookup implements a minimal knowledge-base search tool: one text
// summary plus one resource link per call, enough to exercise the
// provider's citation extraction.
func lookup(ctx context.Context, req *mcp.CallToolRequest, params *lookupParams) (*mcp.CallToolResult, any, error) {
	query := params.Query
	if query == "" {
		query = "everything"
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "One document matches " + query + "."},
			&mcp.ResourceLink{
				URI:         "https://kb.example.com/docs/42",
				Name:        "doc-42",
				Title:       "Answer to " + query,
				Description: "The matching document",
			},
		},
	}, nil, nil
}

func main() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-connector",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup",
		Description: "Search the test knowledge base",
	}, lookup)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server failed: %v", err)
		os.Exit(1)
	}
}
