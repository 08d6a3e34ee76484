package generator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/okian/entalk/internal/domain/model"
)

var (
	numbering = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)
	fence     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

type generatedItem struct {
	Text      string `json:"text"`
	Category  string `json:"category"`
	Phase     string `json:"phase"`
	DeckPhase string `json:"deck_phase"`
}

// parseDrafts accepts a {"questions":[...]} object, a bare array of items or
// strings, or a numbered plain-text list. Labels outside the requested sets
// are reassigned round-robin from them.
func parseDrafts(content string, req Request) []model.Draft {
	items := decodeItems(content)

	drafts := make([]model.Draft, 0, min(len(items), req.Count))
	for _, it := range items {
		if len(drafts) == req.Count {
			break
		}
		text := strings.TrimSpace(it.Text)
		if text == "" {
			continue
		}
		i := len(drafts)
		phase := it.Phase
		if phase == "" {
			phase = it.DeckPhase
		}
		drafts = append(drafts, model.Draft{
			Text:      text,
			Category:  pickCategory(model.Category(it.Category), req.Categories, i),
			Phase:     pickPhase(model.Phase(phase), req.Phases, i),
			IsNovelty: req.Novelty,
		})
	}
	return drafts
}

func decodeItems(content string) []generatedItem {
	content = strings.TrimSpace(content)
	if m := fence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var wrapped struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && len(wrapped.Questions) > 0 {
		if items := decodeArray(wrapped.Questions); len(items) > 0 {
			return items
		}
	}
	if items := decodeArray([]byte(content)); len(items) > 0 {
		return items
	}
	return decodeLines(content)
}

func decodeArray(raw []byte) []generatedItem {
	var items []generatedItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}
	var texts []string
	if err := json.Unmarshal(raw, &texts); err == nil {
		items = make([]generatedItem, len(texts))
		for i, t := range texts {
			items[i] = generatedItem{Text: t}
		}
		return items
	}
	return nil
}

func decodeLines(content string) []generatedItem {
	var items []generatedItem
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") {
			continue
		}
		line = numbering.ReplaceAllString(line, "")
		line = strings.Trim(line, `"'`)
		items = append(items, generatedItem{Text: strings.TrimSpace(line)})
	}
	return items
}

// pickCategory matches labels case-insensitively and returns the canonical one.
func pickCategory(c model.Category, allowed []model.Category, i int) model.Category {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(string(c)), string(a)) {
			return a
		}
	}
	return allowed[i%len(allowed)]
}

func pickPhase(p model.Phase, allowed []model.Phase, i int) model.Phase {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(string(p)), string(a)) {
			return a
		}
	}
	return allowed[i%len(allowed)]
}
