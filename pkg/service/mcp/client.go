// Package mcp connects pluggable knowledge-base connectors (MCP
// servers) and exposes them as citing tools. A connector's display name
// becomes the source key of every citation it produces.
package mcp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// Client manages connections to multiple knowledge-base connectors
type Client struct {
	connectors map[string]*connector
}

type connector struct {
	cfg     ConnectorConfig
	client  *mcp.Client
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// ConnectorConfig represents configuration for a single connector
type ConnectorConfig struct {
	// Name is the connector's display name shown in prompts. It is
	// sanitized into the citation source key.
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   []string          `yaml:"command"`
	URL       string            `yaml:"url"`
	Env       map[string]string `yaml:"env"`

	// Storage classifies the connector's document backing (e.g.
	// "sharepoint"); it flows into citation origin inference.
	Storage string `yaml:"storage"`
}

// NewClient creates a new connector client
func NewClient() *Client {
	return &Client{
		connectors: make(map[string]*connector),
	}
}

// Connect connects to a connector with the given configuration
func (c *Client) Connect(ctx context.Context, cfg ConnectorConfig) error {
	if _, exists := c.connectors[cfg.Name]; exists {
		return goerr.New("connector already connected", goerr.V("name", cfg.Name))
	}

	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "soev",
		Version: "0.1.0",
	}, nil)

	var transport mcp.Transport
	var err error

	switch cfg.Transport {
	case "stdio":
		transport, err = createStdioTransport(cfg)
	case "http":
		transport, err = createHTTPTransport(cfg)
	default:
		return goerr.New("unsupported transport",
			goerr.V("transport", cfg.Transport),
			goerr.V("supported", []string{"stdio", "http"}))
	}

	if err != nil {
		return goerr.Wrap(err, "failed to create transport",
			goerr.V("connector", cfg.Name))
	}

	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to connect to connector",
			goerr.V("connector", cfg.Name))
	}

	toolsResult, err := session.ListTools(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to list connector tools",
			goerr.V("connector", cfg.Name))
	}

	c.connectors[cfg.Name] = &connector{
		cfg:     cfg,
		client:  mcpClient,
		session: session,
		tools:   toolsResult.Tools,
	}

	return nil
}

func createStdioTransport(cfg ConnectorConfig) (mcp.Transport, error) {
	if len(cfg.Command) == 0 {
		return nil, goerr.New("command is required for stdio transport")
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)

	if len(cfg.Env) > 0 {
		env := cmd.Env
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	return &mcp.CommandTransport{Command: cmd}, nil
}

func createHTTPTransport(cfg ConnectorConfig) (mcp.Transport, error) {
	if cfg.URL == "" {
		return nil, goerr.New("url is required for http transport")
	}

	return &mcp.StreamableClientTransport{
		Endpoint: cfg.URL,
	}, nil
}

// Connectors returns all connected connector configurations
func (c *Client) Connectors() []ConnectorConfig {
	cfgs := make([]ConnectorConfig, 0, len(c.connectors))
	for _, conn := range c.connectors {
		cfgs = append(cfgs, conn.cfg)
	}
	return cfgs
}

// Tools returns all tools of a specific connector
func (c *Client) Tools(name string) ([]*mcp.Tool, error) {
	conn, exists := c.connectors[name]
	if !exists {
		return nil, goerr.New("connector not found", goerr.V("name", name))
	}
	return conn.tools, nil
}

// CallTool calls a tool on a specific connector
func (c *Client) CallTool(ctx context.Context, name string, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	conn, exists := c.connectors[name]
	if !exists {
		return nil, goerr.New("connector not found", goerr.V("name", name))
	}

	result, err := conn.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call connector tool",
			goerr.V("connector", name),
			goerr.V("tool", toolName))
	}

	return result, nil
}

// Close closes all connector connections
func (c *Client) Close() error {
	for name, conn := range c.connectors {
		if err := conn.session.Close(); err != nil {
			return goerr.Wrap(err, "failed to close connector session",
				goerr.V("connector", name))
		}
	}
	c.connectors = make(map[string]*connector)
	return nil
}

// Config represents the connector configuration file structure
type Config struct {
	Connectors []ConnectorConfig `yaml:"connectors"`
}

// LoadAndConnect loads connector configuration from a YAML file and
// connects to every configured connector. Returns a tool.Tool provider,
// or nil when no connector is configured or reachable.
func LoadAndConnect(ctx context.Context, configPath string) (tool.Tool, error) {
	if configPath == "" {
		return nil, nil
	}

	logger := logging.From(ctx)

	absConfigPath, err := getAbsPath(configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve config path",
			goerr.V("path", configPath))
	}

	data, err := os.ReadFile(absConfigPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read connector config file",
			goerr.V("path", absConfigPath))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse connector config file",
			goerr.V("path", absConfigPath))
	}

	if len(cfg.Connectors) == 0 {
		logger.Debug("no connectors configured", "path", absConfigPath)
		return nil, nil
	}

	client := NewClient()
	connected := 0

	for _, connectorCfg := range cfg.Connectors {
		if err := client.Connect(ctx, connectorCfg); err != nil {
			logger.Warn("failed to connect to connector",
				"connector", connectorCfg.Name, "error", err)
			continue
		}
		logger.Info("connected to connector", "connector", connectorCfg.Name)
		connected++
	}

	if connected == 0 {
		logger.Warn("no connectors connected", "configured", len(cfg.Connectors))
		return nil, nil
	}

	return NewProvider(client), nil
}

func getAbsPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(path)
}
