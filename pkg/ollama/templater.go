package ollama

import (
	"bytes"
	"fmt"
	"text/template"
)

// Prompt is a parsed prompt template. Parse once at package init and render
// per request.
type Prompt struct {
	tpl *template.Template
}

// MustPrompt parses src and panics on a malformed template.
func MustPrompt(name, src string) *Prompt {
	return &Prompt{tpl: template.Must(template.New(name).Option("missingkey=error").Parse(src))}
}

func (p *Prompt) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := p.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.tpl.Name(), err)
	}
	return buf.String(), nil
}
