package mcp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/service/mcp"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"
)

func TestStdioTransport(t *testing.T) {
	ctx := context.Background()

	client := mcp.NewClient()
	err := client.Connect(ctx, mcp.ConnectorConfig{
		Name:      "Test KB",
		Transport: "stdio",
		Command:   []string{"go", "run", "./testdata/stdio/main.go"},
	})
	gt.NoError(t, err)
	defer client.Close()

	connectors := client.Connectors()
	gt.A(t, connectors).Length(1)
	gt.Equal(t, connectors[0].Name, "Test KB")

	tools, err := client.Tools("Test KB")
	gt.NoError(t, err)
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].Name, "lookup")

	result, err := client.CallTool(ctx, "Test KB", "lookup", map[string]any{
		"query": "invoices",
	})
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
	gt.A(t, result.Content).Length(2)

	textContent, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent.Text, "One document matches invoices.")

	link, ok := result.Content[1].(*mcpsdk.ResourceLink)
	gt.True(t, ok)
	gt.Equal(t, link.URI, "https://kb.example.com/docs/42")
}

func newHTTPConnector(t *testing.T) *httptest.Server {
	t.Helper()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "test-http-connector",
		Version: "1.0.0",
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "kb_search",
		Description: "Search the knowledge base",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, params *struct {
		Query string `json:"query" jsonschema:"Search query"`
	}) (*mcpsdk.CallToolResult, any, error) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "Found one match for " + params.Query},
			},
			StructuredContent: map[string]any{
				"sources": []map[string]any{
					{
						"title":   "Quarterly report",
						"snippet": "Revenue grew 12% in Q2",
						"file_id": "sp-report-q2",
						"pages":   []int{3},
					},
				},
			},
		}, nil, nil
	})

	handler := mcpsdk.NewStreamableHTTPHandler(func(r *http.Request) *mcpsdk.Server {
		return server
	}, nil)
	return httptest.NewServer(handler)
}

func TestHTTPTransportWithProvider(t *testing.T) {
	ctx := context.Background()

	testServer := newHTTPConnector(t)
	defer testServer.Close()

	client := mcp.NewClient()
	err := client.Connect(ctx, mcp.ConnectorConfig{
		Name:      "SharePoint",
		Transport: "http",
		URL:       testServer.URL,
		Storage:   "sharepoint",
	})
	gt.NoError(t, err)
	defer client.Close()

	provider := mcp.NewProvider(client)
	enabled, err := provider.Init(ctx, &tool.Client{})
	gt.NoError(t, err)
	gt.True(t, enabled)

	spec := provider.Spec()
	gt.V(t, spec).NotNil()
	gt.A(t, spec.FunctionDeclarations).Length(1)
	gt.Equal(t, spec.FunctionDeclarations[0].Name, "kb_search")

	gt.S(t, provider.Prompt(ctx)).Contains("SharePoint")

	result, err := provider.Execute(ctx, genai.FunctionCall{
		Name: "kb_search",
		Args: map[string]any{"query": "revenue"},
	})
	gt.NoError(t, err)
	gt.S(t, result.Text).Contains("Found one match for revenue")

	gt.V(t, result.Citations).NotNil()
	gt.Equal(t, result.Citations.Origin, model.OriginConnector)

	connector := result.Citations.Connector
	gt.V(t, connector).NotNil()
	gt.Equal(t, connector.Name, "SharePoint")
	gt.A(t, connector.Items).Length(1)

	item := connector.Items[0]
	gt.Equal(t, item.Title, "Quarterly report")
	gt.Equal(t, item.FileID, "sp-report-q2")
	gt.Equal(t, item.Pages, []int{3})
	// The connector's storage type is stamped for origin inference
	gt.Equal(t, item.Metadata["storage_type"], "sharepoint")
}

func TestUnsupportedTransport(t *testing.T) {
	ctx := context.Background()
	client := mcp.NewClient()

	err := client.Connect(ctx, mcp.ConnectorConfig{
		Name:      "bad",
		Transport: "carrier-pigeon",
	})
	gt.Error(t, err)
}

func TestLoadAndConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("no config path", func(t *testing.T) {
		provider, err := mcp.LoadAndConnect(ctx, "")
		gt.NoError(t, err)
		gt.Nil(t, provider)
	})

	t.Run("empty config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "connectors.yml")
		gt.NoError(t, os.WriteFile(path, []byte("connectors: []\n"), 0644))

		provider, err := mcp.LoadAndConnect(ctx, path)
		gt.NoError(t, err)
		gt.Nil(t, provider)
	})

	t.Run("http connector", func(t *testing.T) {
		testServer := newHTTPConnector(t)
		defer func() {
			// The provider returned by LoadAndConnect exposes no way to
			// close its sessions, so drop the lingering SSE connection
			// before Close to avoid blocking on it.
			testServer.CloseClientConnections()
			testServer.Close()
		}()

		path := filepath.Join(t.TempDir(), "connectors.yml")
		config := "connectors:\n" +
			"  - name: Test HTTP\n" +
			"    transport: http\n" +
			"    url: " + testServer.URL + "\n"
		gt.NoError(t, os.WriteFile(path, []byte(config), 0644))

		provider, err := mcp.LoadAndConnect(ctx, path)
		gt.NoError(t, err)
		gt.V(t, provider).NotNil()
	})
}
