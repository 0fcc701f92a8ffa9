package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/metrics"
	"github.com/contactlearncert-blip/prospection/internal/prompt"
)

// MaxToolRounds bounds how many times a flow feeds tool results back to the
// model before giving up.
const MaxToolRounds = 5

var (
	// ErrInvalidInput is returned when the flow input does not match the
	// template's input schema.
	ErrInvalidInput = errors.New("invalid flow input")
	// ErrInvalidOutput is returned when the model reply cannot be decoded into
	// the template's output schema.
	ErrInvalidOutput = errors.New("invalid model output")
	// ErrTooManyToolRounds is returned when the model keeps calling tools.
	ErrTooManyToolRounds = errors.New("too many tool rounds")
)

// Flow is a typed binding of a prompt template to a model.
type Flow[In, Out any] struct {
	tmpl  *prompt.Template
	model Model
	tools map[string]Tool
	specs []ToolSpec
}

// NewFlow binds tmpl to model. Every tool the template declares must be among
// tools; tools the template does not declare are ignored.
func NewFlow[In, Out any](tmpl *prompt.Template, model Model, tools ...Tool) (*Flow[In, Out], error) {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}

	f := &Flow[In, Out]{tmpl: tmpl, model: model, tools: make(map[string]Tool)}
	for _, name := range tmpl.Tools {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("flow %s: tool %q not provided", tmpl.Name, name)
		}
		f.tools[name] = t
		f.specs = append(f.specs, t.ToolSpec)
	}
	return f, nil
}

// Name returns the template name.
func (f *Flow[In, Out]) Name() string { return f.tmpl.Name }

// Run renders the template with in, calls the model (executing any requested
// tools) and decodes the validated reply.
func (f *Flow[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	start := time.Now()
	out, err := f.run(ctx, in)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrInvalidInput):
		outcome = "invalid_input"
	case errors.Is(err, ErrInvalidOutput):
		outcome = "invalid_output"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordFlow(f.tmpl.Name, outcome, time.Since(start))

	if err != nil {
		slog.Error("flow failed", "flow", f.tmpl.Name, "outcome", outcome, "error", err)
	} else {
		slog.Info("flow completed", "flow", f.tmpl.Name, "duration_ms", time.Since(start).Milliseconds())
	}
	return out, err
}

func (f *Flow[In, Out]) run(ctx context.Context, in In) (Out, error) {
	var zero Out

	if f.tmpl.Input != nil {
		if err := validateAgainst(f.tmpl.Input, in); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	text, err := f.tmpl.Render(in)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	req := &Request{System: f.tmpl.System, Tools: f.specs, Temperature: f.tmpl.Temperature}
	if len(f.specs) == 0 {
		req.ResponseSchema = f.tmpl.Output
	} else {
		// JSON mode and function calling cannot be combined; describe the
		// expected shape in the prompt instead.
		text += schemaInstructions(f.tmpl.Output)
	}
	req.Messages = []Message{UserText(text)}

	for round := 0; ; round++ {
		resp, err := f.model.Generate(ctx, req)
		if err != nil {
			return zero, fmt.Errorf("generate: %w", err)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			return decodeOutput[Out](f.tmpl.Output, resp.Text())
		}
		if round >= MaxToolRounds {
			return zero, ErrTooManyToolRounds
		}

		results := make([]Part, 0, len(calls))
		for _, call := range calls {
			results = append(results, Part{ToolResult: f.invoke(ctx, call)})
		}
		req.Messages = append(req.Messages,
			Message{Role: RoleModel, Parts: resp.Message.Parts},
			Message{Role: RoleUser, Parts: results},
		)
	}
}

func (f *Flow[In, Out]) invoke(ctx context.Context, call *ToolCall) *ToolResult {
	result := &ToolResult{ID: call.ID, Name: call.Name}

	tool, ok := f.tools[call.Name]
	if !ok {
		metrics.RecordToolCall(call.Name, "unknown")
		slog.Warn("model called unknown tool", "flow", f.tmpl.Name, "tool", call.Name)
		result.Output = map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
		return result
	}

	out, err := tool.Call(ctx, call.Args)
	if err != nil {
		metrics.RecordToolCall(call.Name, "error")
		slog.Warn("tool call failed", "flow", f.tmpl.Name, "tool", call.Name, "error", err)
		result.Output = map[string]any{"error": err.Error()}
		return result
	}
	metrics.RecordToolCall(call.Name, "ok")
	result.Output = out
	return result
}

func validateAgainst(schema *prompt.Schema, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	return schema.Validate(generic)
}

func schemaInstructions(schema *prompt.Schema) string {
	raw, _ := json.MarshalIndent(schema, "", "  ")
	return "\n\nWhen you have finished, reply with a single JSON object and nothing else. " +
		"It must match this JSON schema:\n" + string(raw) + "\n"
}

func decodeOutput[Out any](schema *prompt.Schema, text string) (Out, error) {
	var out Out

	raw := ExtractJSON(text)
	if raw == "" {
		return out, fmt.Errorf("%w: no JSON object in reply", ErrInvalidOutput)
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := schema.Validate(generic); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return out, nil
}

// ExtractJSON returns the first complete JSON object in text, tolerating
// Markdown code fences and surrounding prose. It returns "" when none is found.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	// Braces in prose before or after the object are skipped: decode one
	// value from each '{' until one parses.
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			return string(raw)
		}
	}

	// Nothing parsed; hand back the widest candidate so the decode error
	// names the actual problem.
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
