package tool

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

var errToolNotFound = goerr.New("tool not found")

// Registry manages available tools for the LLM
type Registry struct {
	allTools []Tool
	tools    map[string]Tool
	specs    []*genai.Tool
	enabled  []Tool
}

// New creates a new tool registry with the given tools. Init must be
// called before the registry is used for dispatch.
func New(tools ...Tool) *Registry {
	return &Registry{
		allTools: tools,
		tools:    make(map[string]Tool),
	}
}

// Init initializes all tools and registers the enabled ones. Tools that
// report themselves disabled (e.g. missing credentials) are skipped
// without error.
func (r *Registry) Init(ctx context.Context, client *Client) error {
	for _, t := range r.allTools {
		ok, err := t.Init(ctx, client)
		if err != nil {
			return goerr.Wrap(err, "failed to initialize tool")
		}
		if !ok {
			continue
		}

		spec := t.Spec()
		if spec == nil || len(spec.FunctionDeclarations) == 0 {
			continue
		}

		r.enabled = append(r.enabled, t)
		r.specs = append(r.specs, spec)
		for _, fd := range spec.FunctionDeclarations {
			r.tools[fd.Name] = t
		}
	}

	return nil
}

// Specs returns all enabled tool specifications for Gemini function calling
func (r *Registry) Specs() []*genai.Tool {
	return r.specs
}

// EnabledTools returns the function names of all enabled tools, sorted
func (r *Registry) EnabledTools() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prompts returns all enabled tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.enabled {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.allTools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Execute runs the tool with the given function call
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*Result, error) {
	tool, ok := r.tools[fc.Name]
	if !ok {
		return nil, goerr.Wrap(errToolNotFound, "tool not found", goerr.V("name", fc.Name))
	}

	return tool.Execute(ctx, fc)
}
