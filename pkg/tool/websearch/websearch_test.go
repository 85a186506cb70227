package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool/websearch"
	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

func setFlags(t *testing.T, x tool.Tool, values map[string]string) {
	t.Helper()
	for _, flag := range x.Flags() {
		f, ok := flag.(*cli.StringFlag)
		if !ok || f.Destination == nil {
			continue
		}
		if v, found := values[flag.Names()[0]]; found {
			*f.Destination = v
		}
	}
}

func TestInitRequiresAPIKey(t *testing.T) {
	ctx := context.Background()

	disabled := websearch.New()
	enabled, err := disabled.Init(ctx, &tool.Client{})
	gt.NoError(t, err)
	gt.False(t, enabled)

	configured := websearch.New()
	setFlags(t, configured, map[string]string{"serper-api-key": "test-key"})
	enabled, err = configured.Init(ctx, &tool.Client{})
	gt.NoError(t, err)
	gt.True(t, enabled)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	var gotAPIKey string
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("X-API-KEY")
		var body map[string]string
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotQuery = body["q"]

		gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]string{
				{"title": "First", "link": "https://example.com/1", "snippet": "one", "source": "Example"},
				{"title": "Second", "link": "https://example.com/2"},
			},
			"topStories": []map[string]string{
				{"title": "Hot news", "link": "https://news.example.com", "date": "Aug 28, 2026"},
			},
			"relatedSearches": []map[string]string{
				{"query": "follow up"},
			},
		}))
	}))
	defer server.Close()

	x := websearch.New()
	setFlags(t, x, map[string]string{
		"serper-api-key":  "test-key",
		"serper-base-url": server.URL,
	})

	enabled, err := x.Init(ctx, &tool.Client{})
	gt.NoError(t, err)
	gt.True(t, enabled)

	result, err := x.Execute(ctx, genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "merger news"},
	})
	gt.NoError(t, err)
	gt.Equal(t, gotAPIKey, "test-key")
	gt.Equal(t, gotQuery, "merger news")

	gt.S(t, result.Text).Contains("First")
	gt.S(t, result.Text).Contains("Hot news")
	gt.S(t, result.Text).Contains("follow up")

	gt.V(t, result.Citations).NotNil()
	gt.Equal(t, result.Citations.Origin, model.OriginWeb)
	gt.Equal(t, result.Citations.ToolName, "web_search")

	web := result.Citations.Web
	gt.V(t, web).NotNil()
	gt.A(t, web.Organic).Length(2)
	gt.Equal(t, web.Organic[0].Title, "First")
	gt.Equal(t, web.Organic[0].Attribution, "Example")
	gt.A(t, web.TopStories).Length(1)
	gt.Equal(t, web.TopStories[0].Date, "Aug 28, 2026")
	gt.A(t, web.RelatedSearches).Length(1)
}

func TestExecuteMissingQuery(t *testing.T) {
	ctx := context.Background()
	x := websearch.New()
	setFlags(t, x, map[string]string{"serper-api-key": "test-key"})

	_, err := x.Execute(ctx, genai.FunctionCall{Name: "web_search", Args: map[string]any{}})
	gt.Error(t, err)
}

func TestExecuteAPIError(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	x := websearch.New()
	setFlags(t, x, map[string]string{
		"serper-api-key":  "test-key",
		"serper-base-url": server.URL,
	})

	_, err := x.Execute(ctx, genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "anything"},
	})
	gt.Error(t, err)
}
