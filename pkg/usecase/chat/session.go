package chat

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"
	"time"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/adapter"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/citation"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/repository"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

// Tool call limit per Send
const maxIterations = 8

// Session manages one assistant run: the model/tool loop and the run's
// citation context. The citation.Run created here is the single
// authority for turn ids; it lives and dies with the session.
type Session struct {
	gemini   adapter.Gemini
	registry *tool.Registry
	repo     repository.Repository
	storage  adapter.Storage

	run       *citation.Run
	history   *model.History
	toolCalls []ToolCall
}

// ToolCall records a single tool invocation of this run
type ToolCall struct {
	Turn   int            `json:"turn"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
	Err    string         `json:"error,omitempty"`
}

// NewInput contains parameters for creating a new session
type NewInput struct {
	Gemini   adapter.Gemini
	Registry *tool.Registry
	Repo     repository.Repository // optional
	Storage  adapter.Storage       // optional
}

func New(ctx context.Context, input NewInput) (*Session, error) {
	if input.Gemini == nil {
		return nil, goerr.New("gemini adapter is required")
	}
	if input.Registry == nil {
		return nil, goerr.New("tool registry is required")
	}

	run := citation.NewRun()

	return &Session{
		gemini:   input.Gemini,
		registry: input.Registry,
		repo:     input.Repo,
		storage:  input.Storage,

		run: run,
		history: &model.History{
			RunID:     run.ID(),
			CreatedAt: time.Now(),
		},
	}, nil
}

// RunID returns the id of this session's run
func (s *Session) RunID() model.RunID {
	return s.run.ID()
}

// Citations returns the currently accumulated citation batches
func (s *Session) Citations() []*model.CitationBatch {
	return s.run.GetAll()
}

// ToolCalls returns the tool invocations made so far
func (s *Session) ToolCalls() []ToolCall {
	return append([]ToolCall(nil), s.toolCalls...)
}

// Send sends a user message and runs the tool-call loop until the model
// produces a final answer or the iteration limit is reached. Tool
// results are accumulated into the run's citation store before they
// (with their citation catalog appended) are handed back to the model.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	logger := logging.From(ctx)

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"ToolPrompts": s.registry.Prompts(ctx),
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render system prompt")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buf.String(), ""),
	}
	if specs := s.registry.Specs(); len(specs) > 0 {
		config.Tools = specs
	}

	s.history.Contents = append(s.history.Contents,
		genai.NewContentFromText(message, genai.RoleUser))

	var answer string

	for i := 0; i < maxIterations; i++ {
		resp, err := s.gemini.GenerateContent(ctx, s.history.Contents, config)
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content")
		}

		hasFunctionCall := false
		var functionResponses []*genai.Part
		var texts []string

		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}

			s.history.Contents = append(s.history.Contents, candidate.Content)

			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					texts = append(texts, part.Text)
				}

				if part.FunctionCall != nil {
					hasFunctionCall = true
					funcResp := s.onToolResult(ctx, *part.FunctionCall)
					functionResponses = append(functionResponses, &genai.Part{FunctionResponse: funcResp})
				}
			}
		}

		if len(functionResponses) > 0 {
			s.history.Contents = append(s.history.Contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: functionResponses,
			})
		}

		if !hasFunctionCall {
			answer = joinTexts(texts)
			break
		}

		logger.Debug("tool call iteration", "iteration", i+1, "max", maxIterations)
	}

	return answer, nil
}

// onToolResult executes one tool call and feeds its citations through
// the engine. The turn id is assigned before execution, so a failed or
// cancelled call permanently consumes its id and accumulates nothing.
// Accumulation happens before the catalog is rendered, so the markers
// handed to the model always carry final indices.
func (s *Session) onToolResult(ctx context.Context, fc genai.FunctionCall) *genai.FunctionResponse {
	logger := logging.From(ctx)
	turn := s.run.NextTurn()

	result, err := s.registry.Execute(ctx, fc)
	if err != nil {
		logger.Warn("tool execution failed", "tool", fc.Name, "turn", turn, "error", err)
		s.toolCalls = append(s.toolCalls, ToolCall{
			Turn: turn, Name: fc.Name, Args: fc.Args, Err: err.Error(),
		})
		return &genai.FunctionResponse{
			Name:     fc.Name,
			Response: map[string]any{"error": err.Error()},
		}
	}

	text := result.Text

	if result.Citations != nil {
		batches, err := citation.Normalize(turn, result.Citations)
		if err != nil {
			logger.Warn("failed to normalize tool citations", "tool", fc.Name, "turn", turn, "error", err)
		} else {
			accumulated := make([]*model.CitationBatch, 0, len(batches))
			for _, batch := range batches {
				if err := s.run.AddBatch(batch); err != nil {
					logger.Warn("failed to accumulate citations", "tool", fc.Name, "turn", turn, "error", err)
					continue
				}
				accumulated = append(accumulated, batch)
			}
			if catalog := citation.Catalog(accumulated); catalog != "" {
				text += "\n\n" + catalog
			}
		}
	}

	s.toolCalls = append(s.toolCalls, ToolCall{
		Turn: turn, Name: fc.Name, Args: fc.Args, Result: text,
	})

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": text},
	}
}

// Finalize freezes the run's citation store, attaches the serialized
// buckets to the history and persists everything that has a place to
// go. The returned snapshot is what the resolver side operates on.
func (s *Session) Finalize(ctx context.Context) (*model.RunSnapshot, error) {
	snapshot := s.run.Snapshot()

	s.history.Attachments = snapshot.Attachments
	s.history.UpdatedAt = time.Now()

	if s.repo != nil {
		if err := s.repo.PutSnapshot(ctx, snapshot); err != nil {
			return nil, goerr.Wrap(err, "failed to persist snapshot")
		}
		if err := s.repo.PutHistory(ctx, s.history); err != nil {
			return nil, goerr.Wrap(err, "failed to persist history")
		}
	}

	if s.storage != nil {
		if err := s.saveSnapshot(ctx, snapshot); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

func (s *Session) saveSnapshot(ctx context.Context, snapshot *model.RunSnapshot) error {
	w, err := s.storage.Put(ctx, "runs/"+string(snapshot.RunID)+".json")
	if err != nil {
		return goerr.Wrap(err, "failed to open snapshot writer")
	}

	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to encode snapshot")
	}

	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close snapshot writer")
	}
	return nil
}

func joinTexts(texts []string) string {
	switch len(texts) {
	case 0:
		return ""
	case 1:
		return texts[0]
	}

	joined := texts[0]
	for _, t := range texts[1:] {
		joined += "\n" + t
	}
	return joined
}
