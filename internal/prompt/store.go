// Package prompt holds the named prompt templates sent to the language model.
// Templates are YAML documents embedded in the binary; each declares its input
// and output schemas, the tools it may call, and a text/template prompt body.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template names.
const (
	EvaluateProspect            = "evaluateProspect"
	GeneratePersonalizedMessage = "generatePersonalizedMessage"
)

// ErrTemplateNotFound is returned by Store.Get for unknown names.
var ErrTemplateNotFound = errors.New("prompt template not found")

//go:embed templates/*.yaml
var embedded embed.FS

// Template is one parsed prompt definition. System becomes the model's system
// instruction; a nil Temperature leaves the provider default.
type Template struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools"`
	Input       *Schema  `yaml:"input"`
	Output      *Schema  `yaml:"output"`
	System      string   `yaml:"system"`
	Temperature *float32 `yaml:"temperature"`
	Prompt      string   `yaml:"prompt"`

	body *template.Template
}

// Render substitutes data into the prompt body. Referencing a missing map key
// is an error.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name, err)
	}
	return buf.String(), nil
}

// Store is a read-only registry of templates keyed by name.
type Store struct {
	templates map[string]*Template
}

// New loads the templates built into the binary.
func New() (*Store, error) {
	return Load(embedded, "templates")
}

// MustNew is New for package initialization; it panics on a broken template.
func MustNew() *Store {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

// Load parses every *.yaml file in dir of fsys.
func Load(fsys fs.FS, dir string) (*Store, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	s := &Store{templates: make(map[string]*Template)}
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		t, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := s.templates[t.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate template name %q", e.Name(), t.Name)
		}
		s.templates[t.Name] = t
	}
	return s, nil
}

func parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.Name == "" {
		return nil, errors.New("missing name")
	}
	if t.Prompt == "" {
		return nil, errors.New("missing prompt")
	}
	if t.Output == nil {
		return nil, errors.New("missing output schema")
	}
	if err := t.Output.check(); err != nil {
		return nil, fmt.Errorf("output schema: %w", err)
	}
	if t.Input != nil {
		if err := t.Input.check(); err != nil {
			return nil, fmt.Errorf("input schema: %w", err)
		}
	}

	body, err := template.New(t.Name).Option("missingkey=error").Parse(t.Prompt)
	if err != nil {
		return nil, fmt.Errorf("parse prompt: %w", err)
	}
	t.body = body
	return &t, nil
}

// Get returns the template registered under name.
func (s *Store) Get(name string) (*Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return t, nil
}

// Names lists the registered template names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
