package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const defaultBaseURL = "https://google.serper.dev"

type searchInput struct {
	Query string `json:"query"`
}

type webSearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// serperResponse mirrors the aggregator's JSON payload
type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
		Source  string `json:"source"`
	} `json:"organic"`
	TopStories []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Date     string `json:"date"`
		Source   string `json:"source"`
		ImageURL string `json:"imageUrl"`
	} `json:"topStories"`
	Images []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		ImageURL string `json:"imageUrl"`
	} `json:"images"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"relatedSearches"`
}

// New creates a new web search tool
func New() *webSearch {
	return &webSearch{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Flags returns CLI flags for this tool
func (x *webSearch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "serper-api-key",
			Sources:     cli.EnvVars("SOEV_SERPER_API_KEY"),
			Usage:       "Serper API key for web search",
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "serper-base-url",
			Sources:     cli.EnvVars("SOEV_SERPER_BASE_URL"),
			Usage:       "Serper API base URL",
			Value:       defaultBaseURL,
			Destination: &x.baseURL,
		},
	}
}

// Init initializes the tool
func (x *webSearch) Init(ctx context.Context, client *tool.Client) (bool, error) {
	// Only enable if API key is provided
	return x.apiKey != "", nil
}

// Prompt returns additional information to be added to the system prompt
func (x *webSearch) Prompt(ctx context.Context) string {
	return `You can use the web_search tool to look up current information on the web. Search results come with citation markers; copy each marker exactly as provided, directly after the sentence it supports. Do not invent URLs or markers.`
}

// Spec returns the tool specification for Gemini function calling
func (x *webSearch) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "web_search",
				Description: "Search the web for current information. Returns relevant web pages and news with snippets.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The search query (3-6 keywords recommended)",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

// Execute runs the tool with the given function call
func (x *webSearch) Execute(ctx context.Context, fc genai.FunctionCall) (*tool.Result, error) {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal function arguments")
	}

	var input searchInput
	if err := json.Unmarshal(paramsJSON, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input parameters")
	}
	if input.Query == "" {
		return nil, goerr.New("query is required")
	}

	raw, err := x.queryAPI(ctx, input.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query search API")
	}

	result := convertResponse(raw)

	return &tool.Result{
		Text: formatForModel(input.Query, result),
		Citations: &model.RawToolResult{
			Origin:   model.OriginWeb,
			ToolName: fc.Name,
			Web:      result,
		},
	}, nil
}

// queryAPI sends one search request to the aggregator
func (x *webSearch) queryAPI(ctx context.Context, query string) (*serperResponse, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", x.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	req.Header.Set("X-API-KEY", x.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, goerr.New("search API returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(respBody)))
	}

	var result serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response")
	}

	return &result, nil
}

func convertResponse(raw *serperResponse) *model.WebSearchResult {
	result := &model.WebSearchResult{}

	for _, src := range raw.Organic {
		result.Organic = append(result.Organic, model.WebSource{
			Title:       src.Title,
			Link:        src.Link,
			Snippet:     src.Snippet,
			Date:        src.Date,
			Attribution: src.Source,
		})
	}
	for _, src := range raw.TopStories {
		result.TopStories = append(result.TopStories, model.WebSource{
			Title:       src.Title,
			Link:        src.Link,
			Snippet:     src.Snippet,
			Date:        src.Date,
			Attribution: src.Source,
			ImageURL:    src.ImageURL,
		})
	}
	for _, src := range raw.Images {
		result.Images = append(result.Images, model.WebSource{
			Title:    src.Title,
			Link:     src.Link,
			ImageURL: src.ImageURL,
		})
	}
	for _, rs := range raw.RelatedSearches {
		result.RelatedSearches = append(result.RelatedSearches, rs.Query)
	}

	return result
}

// formatForModel renders the sections the model reads. Citation markers
// are not rendered here; the session appends the catalog after the
// results are accumulated, so markers always reflect final indices.
func formatForModel(query string, result *model.WebSearchResult) string {
	var b strings.Builder

	section := func(title string) {
		fmt.Fprintf(&b, "\n=== %s ===\n\n", title)
	}

	if len(result.Organic) > 0 {
		section("Web Results")
		for i, src := range result.Organic {
			fmt.Fprintf(&b, "# Search %d: %q\nURL: %s\n", i, src.Title, src.Link)
			if src.Snippet != "" {
				fmt.Fprintf(&b, "Summary: %s\n", src.Snippet)
			}
			if src.Date != "" {
				fmt.Fprintf(&b, "Date: %s\n", src.Date)
			}
			if src.Attribution != "" {
				fmt.Fprintf(&b, "Source: %s\n", src.Attribution)
			}
			b.WriteString("\n")
		}
	}

	if len(result.TopStories) > 0 {
		section("News Results")
		for i, src := range result.TopStories {
			fmt.Fprintf(&b, "# News %d: %q\nURL: %s\n", i, src.Title, src.Link)
			if src.Snippet != "" {
				fmt.Fprintf(&b, "Summary: %s\n", src.Snippet)
			}
			if src.Date != "" {
				fmt.Fprintf(&b, "Date: %s\n", src.Date)
			}
			b.WriteString("\n")
		}
	}

	if len(result.RelatedSearches) > 0 {
		section("Related Searches")
		for _, rs := range result.RelatedSearches {
			fmt.Fprintf(&b, "- %s\n", rs)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return fmt.Sprintf("No results found for %q.", query)
	}
	return text
}
