package ollama

import (
	"context"
	"strings"
	"unicode/utf8"
)

var shortDescriptionPrompt = MustPrompt("short_description", `Você escreve perfis de terapeutas para uma plataforma de agendamento.
Resuma o texto abaixo em uma única frase de no máximo {{.Max}} caracteres, em português,
sem aspas e sem prefixos.

Texto:
{{.Long}}`)

// MaxShortDescription bounds drafted summaries.
const MaxShortDescription = 160

// Drafter writes short profile summaries from a longer description.
type Drafter struct {
	client *Client
	model  string
}

func NewDrafter(client *Client, model string) *Drafter {
	if model == "" {
		model = DefaultConfig().Model
	}
	return &Drafter{client: client, model: model}
}

func (d *Drafter) DraftShortDescription(ctx context.Context, long string) (string, error) {
	prompt, err := shortDescriptionPrompt.Render(map[string]any{"Max": MaxShortDescription, "Long": long})
	if err != nil {
		return "", err
	}

	res, err := d.client.Generate(ctx, d.model, prompt)
	if err != nil {
		return "", err
	}
	return clip(strings.Trim(strings.TrimSpace(res.Text), `"`), MaxShortDescription), nil
}

// clip cuts s to at most max runes.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
