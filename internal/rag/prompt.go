package rag

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptSet holds the templates used to compose LLM prompts
type PromptSet struct {
	Persona    string            `yaml:"persona"`
	Formatting string            `yaml:"formatting"`
	Simple     string            `yaml:"simple"`
	Complex    string            `yaml:"complex"`
	Languages  map[string]string `yaml:"languages"`

	simple  *template.Template
	complex *template.Template
}

// PromptInput is the data a template is rendered with
type PromptInput struct {
	Query    string
	Context  string
	Language string
	Simple   bool
}

type promptData struct {
	Persona      string
	Formatting   string
	Context      string
	Query        string
	LanguageRule string
}

// DefaultPrompts parses the embedded prompt file
func DefaultPrompts() (*PromptSet, error) {
	return ParsePrompts(defaultPrompts)
}

// LoadPrompts reads prompts from path, or the embedded defaults when path is empty
func LoadPrompts(path string) (*PromptSet, error) {
	if path == "" {
		return DefaultPrompts()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return ParsePrompts(data)
}

// ParsePrompts decodes and compiles a YAML prompt set
func ParsePrompts(data []byte) (*PromptSet, error) {
	var ps PromptSet
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(ps.Simple) == "" || strings.TrimSpace(ps.Complex) == "" {
		return nil, fmt.Errorf("parse prompts: simple and complex templates are required")
	}
	var err error
	if ps.simple, err = template.New("simple").Parse(ps.Simple); err != nil {
		return nil, fmt.Errorf("parse simple template: %w", err)
	}
	if ps.complex, err = template.New("complex").Parse(ps.Complex); err != nil {
		return nil, fmt.Errorf("parse complex template: %w", err)
	}
	return &ps, nil
}

// Compose renders the prompt for one query
func (ps *PromptSet) Compose(in PromptInput) (string, error) {
	tmpl := ps.complex
	if in.Simple {
		tmpl = ps.simple
	}
	data := promptData{
		Persona:      strings.TrimSpace(ps.Persona),
		Formatting:   strings.TrimSpace(ps.Formatting),
		Context:      in.Context,
		Query:        in.Query,
		LanguageRule: ps.languageRule(in.Language),
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

func (ps *PromptSet) languageRule(lang string) string {
	if lang == "" || lang == "en" {
		return ""
	}
	if rule, ok := ps.Languages[lang]; ok {
		return rule
	}
	return ps.Languages["other"]
}
