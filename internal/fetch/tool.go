package fetch

import (
	"context"

	"github.com/contactlearncert-blip/prospection/internal/llm"
	"github.com/contactlearncert-blip/prospection/internal/prompt"
)

// ToolName is the name under which the model sees the fetcher.
const ToolName = "fetchUrlContent"

// Tool exposes FetchURLContent to flows. It always succeeds; fetch failures
// are returned as "Error: ..." content for the model to read.
func (f *Fetcher) Tool() llm.Tool {
	return llm.Tool{
		ToolSpec: llm.ToolSpec{
			Name:        ToolName,
			Description: "Fetches the content of a given URL. Use this to get information from a website.",
			Parameters: &prompt.Schema{
				Type:     prompt.TypeObject,
				Required: []string{"url"},
				Properties: map[string]*prompt.Schema{
					"url": {Type: prompt.TypeString, Description: "The URL to fetch content from."},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			url, _ := args["url"].(string)
			return map[string]any{"content": f.FetchURLContent(ctx, url)}, nil
		},
	}
}
