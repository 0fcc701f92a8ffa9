// Package llm runs prompt templates against a hosted language model.
//
// Model abstracts the provider; Flow binds a template, a model and tools into
// a typed call that returns validated structured output.
package llm

import (
	"context"
	"strings"

	"github.com/contactlearncert-blip/prospection/internal/prompt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ToolCall is a model request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult answers a ToolCall.
type ToolResult struct {
	ID     string
	Name   string
	Output map[string]any
}

// Part is one piece of a message. Exactly one of Text, ToolCall or ToolResult
// is set. Signature is an opaque provider token that must be echoed back
// unchanged with the part it came with.
type Part struct {
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
	Signature  []byte
}

// Message is an ordered list of parts from one role.
type Message struct {
	Role  Role
	Parts []Part
}

// UserText builds a single-part user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ToolSpec declares a tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  *prompt.Schema
}

// Request is one generation call.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
	// ResponseSchema, when set, asks the provider for JSON matching it.
	ResponseSchema *prompt.Schema
	Temperature    *float32
}

// Response is the model's reply.
type Response struct {
	Message Message
}

// Text concatenates the text parts of the reply.
func (r *Response) Text() string {
	var b strings.Builder
	for _, p := range r.Message.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ToolCalls lists the tool calls in the reply, in order.
func (r *Response) ToolCalls() []*ToolCall {
	var calls []*ToolCall
	for _, p := range r.Message.Parts {
		if p.ToolCall != nil {
			calls = append(calls, p.ToolCall)
		}
	}
	return calls
}

// Model generates a reply for a request.
type Model interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Tool is a callable the model may invoke during a flow.
type Tool struct {
	ToolSpec
	Call func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Runner is satisfied by *Flow; services depend on it so that tests can
// substitute canned results.
type Runner[In, Out any] interface {
	Run(ctx context.Context, in In) (Out, error)
}
