package prompt

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/contactlearncert-blip/prospection/internal/model"
)

func TestNew_LoadsEmbeddedTemplates(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	names := s.Names()
	if len(names) != 2 || names[0] != EvaluateProspect || names[1] != GeneratePersonalizedMessage {
		t.Fatalf("unexpected templates %v", names)
	}

	eval, _ := s.Get(EvaluateProspect)
	if len(eval.Tools) != 1 || eval.Tools[0] != "fetchUrlContent" {
		t.Errorf("evaluateProspect tools: got %v", eval.Tools)
	}
	if got := eval.Output.Properties["isGoodFit"].Type; got != TypeBoolean {
		t.Errorf("isGoodFit type: got %q", got)
	}

	msg, _ := s.Get(GeneratePersonalizedMessage)
	if len(msg.Tools) != 0 {
		t.Errorf("generatePersonalizedMessage should not declare tools, got %v", msg.Tools)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s := MustNew()
	_, err := s.Get("nope")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestTemplate_Render(t *testing.T) {
	s := MustNew()

	eval, _ := s.Get(EvaluateProspect)
	out, err := eval.Render(model.EvaluateProspectInput{Industry: "Tech", OnlinePresence: "https://example.com"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Industry: Tech\n") || !strings.Contains(out, "Online Presence: https://example.com\n") {
		t.Errorf("rendered prompt missing fields:\n%s", out)
	}

	msg, _ := s.Get(GeneratePersonalizedMessage)
	out, err = msg.Render(model.GenerateMessageInput{
		ProspectName:           "Jane <Doe>",
		ProspectOnlinePresence: "Blog",
		ServiceOffering:        "SEO",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// text/template does not HTML-escape.
	if !strings.Contains(out, "Prospect Name: Jane <Doe>") {
		t.Errorf("expected raw substitution, got:\n%s", out)
	}
}

func TestTemplate_RenderMissingKey(t *testing.T) {
	s := MustNew()
	eval, _ := s.Get(EvaluateProspect)
	if _, err := eval.Render(map[string]string{"Industry": "Tech"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "prompt: hi\noutput: {type: string}\n"},
		{"no prompt", "name: a\noutput: {type: string}\n"},
		{"no output", "name: a\nprompt: hi\n"},
		{"bad type", "name: a\nprompt: hi\noutput: {type: date}\n"},
		{"undeclared required", "name: a\nprompt: hi\noutput: {type: object, required: [x]}\n"},
		{"bad template", "name: a\nprompt: '{{.X'\noutput: {type: string}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"t/a.yaml": {Data: []byte(tt.yaml)}}
			if _, err := Load(fsys, "t"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_DuplicateName(t *testing.T) {
	doc := []byte("name: a\nprompt: hi\noutput: {type: string}\n")
	fsys := fstest.MapFS{
		"t/a.yaml": {Data: doc},
		"t/b.yml":  {Data: doc},
		"t/c.txt":  {Data: []byte("ignored")},
	}
	if _, err := Load(fsys, "t"); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}
