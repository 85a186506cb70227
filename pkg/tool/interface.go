package tool

import (
	"context"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Result is what a tool hands back to the session. Text is the payload
// shown to the model; Citations, when set, is the tagged raw result the
// citation engine normalizes and accumulates before the text (plus its
// citation catalog) is returned to the model.
type Result struct {
	Text      string
	Citations *model.RawToolResult
}

// Tool represents an external tool that can be called by the LLM
type Tool interface {
	// Spec returns the tool specification for Gemini function calling
	Spec() *genai.Tool

	// Execute runs the tool with the given function call
	Execute(ctx context.Context, fc genai.FunctionCall) (*Result, error)

	// Prompt returns additional information to be added to the system prompt
	// Returns empty string if no additional prompt is needed
	Prompt(ctx context.Context) string

	// Flags returns CLI flags for this tool
	// Returns nil if no flags are needed
	Flags() []cli.Flag

	// Init prepares the tool and reports whether it is enabled
	Init(ctx context.Context, client *Client) (bool, error)
}
