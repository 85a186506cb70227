package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Provider implements tool.Tool for connector tools
type Provider struct {
	client *Client
	tools  []*connectorTool
}

type connectorTool struct {
	cfg      ConnectorConfig
	mcpTool  *mcp.Tool
	funcDecl *genai.FunctionDeclaration
}

// NewProvider creates a new connector tool provider
func NewProvider(client *Client) *Provider {
	return &Provider{
		client: client,
		tools:  make([]*connectorTool, 0),
	}
}

// Flags returns CLI flags for the provider
func (p *Provider) Flags() []cli.Flag {
	return nil // connector config is loaded separately
}

// Init registers the tools of every connected connector
func (p *Provider) Init(ctx context.Context, client *tool.Client) (bool, error) {
	if p.client == nil {
		return false, nil
	}

	for _, cfg := range p.client.Connectors() {
		tools, err := p.client.Tools(cfg.Name)
		if err != nil {
			return false, goerr.Wrap(err, "failed to get connector tools",
				goerr.V("connector", cfg.Name))
		}

		for _, t := range tools {
			funcDecl, err := convertToFunctionDeclaration(t)
			if err != nil {
				return false, goerr.Wrap(err, "failed to convert connector tool",
					goerr.V("connector", cfg.Name),
					goerr.V("tool", t.Name))
			}

			p.tools = append(p.tools, &connectorTool{
				cfg:      cfg,
				mcpTool:  t,
				funcDecl: funcDecl,
			})
		}
	}

	return len(p.tools) > 0, nil
}

// convertToFunctionDeclaration converts a connector tool into a Gemini
// function declaration
func convertToFunctionDeclaration(t *mcp.Tool) (*genai.FunctionDeclaration, error) {
	funcDecl := &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
	}

	if t.InputSchema != nil {
		// InputSchema is an arbitrary value; bridge it through JSON into
		// a jsonschema.Schema before converting
		schemaJSON, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal input schema")
		}

		var jsSchema jsonschema.Schema
		if err := json.Unmarshal(schemaJSON, &jsSchema); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal input schema")
		}

		schema, err := convertJSONSchemaToGenai(&jsSchema)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert input schema")
		}
		funcDecl.Parameters = schema
	}

	return funcDecl, nil
}

// Spec returns the tool specification for Gemini
func (p *Provider) Spec() *genai.Tool {
	if len(p.tools) == 0 {
		return nil
	}

	funcDecls := make([]*genai.FunctionDeclaration, len(p.tools))
	for i, t := range p.tools {
		funcDecls[i] = t.funcDecl
	}

	return &genai.Tool{
		FunctionDeclarations: funcDecls,
	}
}

// Prompt returns additional prompt information
func (p *Provider) Prompt(ctx context.Context) string {
	if len(p.tools) == 0 {
		return ""
	}

	names := make([]string, 0, len(p.tools))
	seen := make(map[string]bool)
	for _, t := range p.tools {
		if !seen[t.cfg.Name] {
			seen[t.cfg.Name] = true
			names = append(names, t.cfg.Name)
		}
	}

	return "You have access to knowledge-base connectors (" + strings.Join(names, ", ") +
		"). Their results include citation markers; copy each marker exactly as provided, directly after the sentence it supports."
}

// Execute executes a connector tool and extracts its citable sources
func (p *Provider) Execute(ctx context.Context, fc genai.FunctionCall) (*tool.Result, error) {
	var target *connectorTool
	for _, t := range p.tools {
		if t.funcDecl.Name == fc.Name {
			target = t
			break
		}
	}

	if target == nil {
		return nil, goerr.New("connector tool not found", goerr.V("name", fc.Name))
	}

	result, err := p.client.CallTool(ctx, target.cfg.Name, target.mcpTool.Name, fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call connector tool")
	}

	text, items := extractResult(target.cfg, result)

	out := &tool.Result{Text: text}
	if len(items) > 0 {
		out.Citations = &model.RawToolResult{
			Origin:   model.OriginConnector,
			ToolName: fc.Name,
			Connector: &model.ConnectorResult{
				Name:  target.cfg.Name,
				Items: items,
			},
		}
	}

	return out, nil
}

// extractResult splits a connector call result into the text shown to
// the model and the citable items behind it. Structured sources are
// preferred; otherwise resource links and embedded resources become
// items, classified later by the normalizer.
func extractResult(cfg ConnectorConfig, result *mcp.CallToolResult) (string, []model.ConnectorItem) {
	var texts []string
	var items []model.ConnectorItem

	for _, content := range result.Content {
		switch c := content.(type) {
		case *mcp.TextContent:
			texts = append(texts, c.Text)
		case *mcp.ResourceLink:
			title := c.Title
			if title == "" {
				title = c.Name
			}
			items = append(items, model.ConnectorItem{
				Title:   title,
				Snippet: c.Description,
				URL:     c.URI,
			})
		case *mcp.EmbeddedResource:
			if c.Resource == nil {
				continue
			}
			items = append(items, model.ConnectorItem{
				Title:   c.Resource.URI,
				Snippet: c.Resource.Text,
				FileID:  c.Resource.URI,
			})
		}
	}

	if structured := structuredItems(result.StructuredContent); len(structured) > 0 {
		items = structured
	}

	// The connector's storage type flows into origin inference
	if cfg.Storage != "" {
		for i := range items {
			if items[i].Metadata == nil {
				items[i].Metadata = map[string]any{}
			}
			if _, ok := items[i].Metadata["storage_type"]; !ok {
				items[i].Metadata["storage_type"] = cfg.Storage
			}
		}
	}

	return strings.Join(texts, "\n"), items
}

// structuredItems decodes a structured "sources" list when the
// connector returns one
func structuredItems(structured any) []model.ConnectorItem {
	if structured == nil {
		return nil
	}

	obj, ok := structured.(map[string]any)
	if !ok {
		return nil
	}

	raw, ok := obj["sources"]
	if !ok {
		return nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}

	var items []model.ConnectorItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}
