package engine

import (
	"strings"

	"github.com/unclebandit/outreach-backend/internal/model"
)

// RenderTemplate substitutes {placeholder} tokens with contact fields.
// Empty fields render as <unknown> rather than vanishing silently.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "<unknown>"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// Personalizer renders a step's template for one contact. The default
// does plain placeholder substitution; the AI personalization service is
// an external collaborator behind the same interface.
type Personalizer interface {
	Personalize(subject, body string, contact *model.Contact) (model.RenderedContent, error)
}

// TemplatePersonalizer is the non-AI default.
type TemplatePersonalizer struct{}

func (TemplatePersonalizer) Personalize(subject, body string, contact *model.Contact) (model.RenderedContent, error) {
	data := contact.Placeholders()
	return model.RenderedContent{
		Subject: RenderTemplate(subject, data),
		Body:    RenderTemplate(body, data),
	}, nil
}
