package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactlearncert-blip/prospection/internal/prompt"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when the provider answers without any candidate,
// typically because the prompt was blocked.
var ErrNoCandidates = errors.New("model returned no candidates")

// GeminiModel implements Model over the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

var _ Model = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini client for the given API key.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Generate sends req to Gemini.
func (m *GeminiModel) Generate(ctx context.Context, req *Request) (*Response, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		contents = append(contents, toGenaiContent(msg))
	}

	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(req.ResponseSchema)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoCandidates
	}
	return &Response{Message: fromGenaiContent(resp.Candidates[0].Content)}, nil
}

func toGenaiContent(msg Message) *genai.Content {
	role := string(genai.RoleUser)
	if msg.Role == RoleModel {
		role = string(genai.RoleModel)
	}

	c := &genai.Content{Role: role}
	for _, p := range msg.Parts {
		gp := &genai.Part{ThoughtSignature: p.Signature}
		switch {
		case p.ToolCall != nil:
			gp.FunctionCall = &genai.FunctionCall{ID: p.ToolCall.ID, Name: p.ToolCall.Name, Args: p.ToolCall.Args}
		case p.ToolResult != nil:
			gp.FunctionResponse = &genai.FunctionResponse{ID: p.ToolResult.ID, Name: p.ToolResult.Name, Response: p.ToolResult.Output}
		default:
			gp.Text = p.Text
		}
		c.Parts = append(c.Parts, gp)
	}
	return c
}

func fromGenaiContent(c *genai.Content) Message {
	msg := Message{Role: RoleModel}
	for _, gp := range c.Parts {
		if gp == nil || gp.Thought {
			continue
		}
		p := Part{Signature: gp.ThoughtSignature}
		switch {
		case gp.FunctionCall != nil:
			p.ToolCall = &ToolCall{ID: gp.FunctionCall.ID, Name: gp.FunctionCall.Name, Args: gp.FunctionCall.Args}
		case gp.Text != "":
			p.Text = gp.Text
		default:
			continue
		}
		msg.Parts = append(msg.Parts, p)
	}
	return msg
}

var genaiTypes = map[string]genai.Type{
	prompt.TypeObject:  genai.TypeObject,
	prompt.TypeString:  genai.TypeString,
	prompt.TypeBoolean: genai.TypeBoolean,
	prompt.TypeNumber:  genai.TypeNumber,
	prompt.TypeInteger: genai.TypeInteger,
	prompt.TypeArray:   genai.TypeArray,
}

func toGenaiSchema(s *prompt.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{
		Type:        genaiTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, name := range s.PropertyNames() {
			gs.Properties[name] = toGenaiSchema(s.Properties[name])
		}
	}
	return gs
}
