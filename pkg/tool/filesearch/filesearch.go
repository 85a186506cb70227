package filesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const defaultTopK = 10

type searchInput struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type fileSearch struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// ragResponse mirrors the semantic search service's JSON payload
type ragResponse struct {
	Hits []struct {
		FileID        string             `json:"file_id"`
		Filename      string             `json:"filename"`
		Content       string             `json:"content"`
		Pages         []int              `json:"pages"`
		PageRelevance map[string]float64 `json:"page_relevance"`
		Relevance     float64            `json:"relevance"`
	} `json:"hits"`
}

// New creates a new semantic file search tool
func New() *fileSearch {
	return &fileSearch{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Flags returns CLI flags for this tool
func (x *fileSearch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rag-endpoint",
			Sources:     cli.EnvVars("SOEV_RAG_ENDPOINT"),
			Usage:       "Semantic file search endpoint URL",
			Destination: &x.endpoint,
		},
		&cli.StringFlag{
			Name:        "rag-api-key",
			Sources:     cli.EnvVars("SOEV_RAG_API_KEY"),
			Usage:       "Semantic file search API key",
			Destination: &x.apiKey,
		},
	}
}

// Init initializes the tool
func (x *fileSearch) Init(ctx context.Context, client *tool.Client) (bool, error) {
	// Only enable if an endpoint is configured
	return x.endpoint != "", nil
}

// Prompt returns additional information to be added to the system prompt
func (x *fileSearch) Prompt(ctx context.Context) string {
	return `You can use the file_search tool to find passages in the attached documents. Cite passages with the markers provided in the results, placed directly after the sentence derived from that source.`
}

// Spec returns the tool specification for Gemini function calling
func (x *fileSearch) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "file_search",
				Description: "Semantic search over the attached documents. Returns the most relevant passages with file names and page numbers.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": {
							Type:        genai.TypeString,
							Description: "The search query or question",
						},
						"top_k": {
							Type:        genai.TypeNumber,
							Description: "Number of passages to return (1-20, default 10)",
						},
					},
					Required: []string{"question"},
				},
			},
		},
	}
}

// Execute runs the tool with the given function call
func (x *fileSearch) Execute(ctx context.Context, fc genai.FunctionCall) (*tool.Result, error) {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal function arguments")
	}

	var input searchInput
	if err := json.Unmarshal(paramsJSON, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input parameters")
	}
	if input.Question == "" {
		return nil, goerr.New("question is required")
	}
	if input.TopK <= 0 || input.TopK > 20 {
		input.TopK = defaultTopK
	}

	raw, err := x.queryAPI(ctx, input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query file search API")
	}

	result := convertResponse(raw)

	return &tool.Result{
		Text: formatForModel(result),
		Citations: &model.RawToolResult{
			Origin:   model.OriginFile,
			ToolName: fc.Name,
			File:     result,
		},
	}, nil
}

// queryAPI sends one semantic search request
func (x *fileSearch) queryAPI(ctx context.Context, input searchInput) (*ragResponse, error) {
	body, err := json.Marshal(map[string]any{
		"query": input.Question,
		"top_k": input.TopK,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", x.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+x.apiKey)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, goerr.New("file search API returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(respBody)))
	}

	var result ragResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response")
	}

	return &result, nil
}

func convertResponse(raw *ragResponse) *model.FileSearchResult {
	result := &model.FileSearchResult{}

	for _, hit := range raw.Hits {
		match := model.FileMatch{
			FileID:    hit.FileID,
			Filename:  hit.Filename,
			Content:   hit.Content,
			Pages:     hit.Pages,
			Relevance: hit.Relevance,
		}
		if len(hit.PageRelevance) > 0 {
			match.PageRelevance = make(map[int]float64, len(hit.PageRelevance))
			for pageStr, score := range hit.PageRelevance {
				page, err := strconv.Atoi(pageStr)
				if err != nil {
					continue
				}
				match.PageRelevance[page] = score
			}
		}
		result.Matches = append(result.Matches, match)
	}

	return result
}

func formatForModel(result *model.FileSearchResult) string {
	if len(result.Matches) == 0 {
		return "No relevant passages found in the attached files."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant passages:\n\n", len(result.Matches))

	for i, match := range result.Matches {
		location := ""
		if len(match.Pages) > 0 {
			pages := make([]string, len(match.Pages))
			for j, p := range match.Pages {
				pages[j] = strconv.Itoa(p)
			}
			location = fmt.Sprintf(" (page %s)", strings.Join(pages, ", "))
		}
		fmt.Fprintf(&b, "[%d] From: %s%s\n", i+1, match.Filename, location)
		fmt.Fprintf(&b, "Relevance: %.2f\n", match.Relevance)
		fmt.Fprintf(&b, "%q\n\n", match.Content)
	}

	return strings.TrimSpace(b.String())
}
