package selection

import "github.com/okian/entalk/internal/domain/model"

// MissingCategories lists enumeration categories absent from selected, in enumeration order.
func MissingCategories(selected []model.Question) []model.Category {
	seen := make(map[model.Category]bool, len(selected))
	for i := range selected {
		seen[selected[i].Category] = true
	}
	var out []model.Category
	for _, c := range model.Categories() {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// MissingPhases lists enumeration phases absent from selected, in enumeration order.
func MissingPhases(selected []model.Question) []model.Phase {
	seen := make(map[model.Phase]bool, len(selected))
	for i := range selected {
		seen[selected[i].Phase] = true
	}
	var out []model.Phase
	for _, p := range model.Phases() {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}
