// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Prompt is a parsed summarization prompt template. Templates may reference
// {{.Title}}, {{.Abstract}} and {{.URL}}; any other field is rejected when
// the template is parsed.
type Prompt struct {
	name string
	tmpl *template.Template
}

// LoadPrompt reads and parses the template file at path.
func LoadPrompt(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}
	return ParsePrompt(path, string(data))
}

// ParsePrompt parses text and renders it once against probe values, so a
// template naming an unknown field fails here instead of on the first paper.
func ParsePrompt(name, text string) (*Prompt, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template %s: %w", name, err)
	}
	p := &Prompt{name: name, tmpl: tmpl}
	if _, err := p.Render(types.Paper{Title: "title", Abstract: "abstract", URL: "https://example.org"}); err != nil {
		return nil, fmt.Errorf("prompt template %s: %w", name, err)
	}
	return p, nil
}

// Name returns the template file path or name.
func (p *Prompt) Name() string { return p.name }

// Render fills the template with the paper's title, abstract and URL.
func (p *Prompt) Render(paper types.Paper) (string, error) {
	var buf bytes.Buffer
	data := map[string]string{
		"Title":    paper.Title,
		"Abstract": paper.Abstract,
		"URL":      paper.URL,
	}
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
