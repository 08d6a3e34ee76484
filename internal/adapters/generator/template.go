package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/entalk/internal/domain/model"
)

type label int

const (
	byCategory label = iota
	byPhase
)

var templates = []struct {
	format string
	label  label
}{
	{"What's your favorite aspect of %s experiences?", byCategory},
	{"How do you approach %s conversations with new people?", byPhase},
	{"What's the most interesting %s question you've been asked?", byCategory},
	{"If you could change one thing about how people discuss %s topics, what would it be?", byCategory},
	{"What makes a %s question particularly engaging for you?", byPhase},
	{"How has your perspective on %s topics changed over time?", byCategory},
	{"What's a %s conversation starter that always works for you?", byPhase},
	{"How do cultural differences affect %s discussions?", byCategory},
	{"What's the most thought-provoking %s question you know?", byPhase},
	{"How do you handle difficult %s conversations?", byCategory},
}

// Template renders placeholder questions from the requested labels. It never
// fails and always returns exactly req.Count drafts, all marked as novelty.
type Template struct{}

// NewTemplate creates the template backend.
func NewTemplate() *Template { return &Template{} }

// Name implements Generator.
func (*Template) Name() string { return BackendTemplate }

// Generate implements Generator.
func (t *Template) Generate(_ context.Context, req Request) ([]model.Draft, error) {
	return t.Render(req), nil
}

// Render cycles categories, phases and texts round-robin. A topic, when
// given, fills every template instead of the labels.
func (*Template) Render(req Request) []model.Draft {
	if req.Count <= 0 {
		return nil
	}
	req = normalize(req)

	drafts := make([]model.Draft, req.Count)
	for i := range drafts {
		category := req.Categories[i%len(req.Categories)]
		phase := req.Phases[i%len(req.Phases)]
		tpl := templates[i%len(templates)]
		slot := string(category)
		switch {
		case req.Topic != "":
			slot = strings.TrimSpace(req.Topic)
		case tpl.label == byPhase:
			slot = string(phase)
		}
		text := fmt.Sprintf(tpl.format, strings.ToLower(slot))
		drafts[i] = model.Draft{
			Text:      text,
			Category:  category,
			Phase:     phase,
			IsNovelty: true,
		}
	}
	return drafts
}
