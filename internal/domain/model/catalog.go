package model

// Category classifies what a question asks about.
type Category string

// Category values in enumeration order. Selection passes iterate in this order.
const (
	CategoryIcebreaker   Category = "Icebreaker"
	CategoryPersonal     Category = "Personal"
	CategoryOpinion      Category = "Opinion"
	CategoryHypothetical Category = "Hypothetical"
	CategoryReflective   Category = "Reflective"
	CategoryCultural     Category = "Cultural"
)

// Phase places a question within the arc of a session.
type Phase string

// Phase values in enumeration order.
const (
	PhaseWarmUp     Phase = "Warm-Up"
	PhasePersonal   Phase = "Personal"
	PhaseReflective Phase = "Reflective"
	PhaseChallenge  Phase = "Challenge"
)

var categories = []Category{
	CategoryIcebreaker,
	CategoryPersonal,
	CategoryOpinion,
	CategoryHypothetical,
	CategoryReflective,
	CategoryCultural,
}

var phases = []Phase{
	PhaseWarmUp,
	PhasePersonal,
	PhaseReflective,
	PhaseChallenge,
}

var categoryDescriptions = map[Category]string{
	CategoryIcebreaker:   "Simple questions to start conversations and make people comfortable",
	CategoryPersonal:     "Questions about personal experiences, preferences, and life",
	CategoryOpinion:      "Questions asking for thoughts on various topics or issues",
	CategoryHypothetical: "What-if scenarios that encourage creative thinking",
	CategoryReflective:   "Questions that encourage deeper thinking about oneself",
	CategoryCultural:     "Questions about traditions, customs, and cultural experiences",
}

var phaseDescriptions = map[Phase]string{
	PhaseWarmUp:     "Easy questions to start the conversation",
	PhasePersonal:   "Questions about personal experiences and preferences",
	PhaseReflective: "Questions that encourage deeper thinking",
	PhaseChallenge:  "More complex or thought-provoking questions",
}

// Categories returns a fresh copy of the category enumeration.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Phases returns a fresh copy of the phase enumeration.
func Phases() []Phase {
	out := make([]Phase, len(phases))
	copy(out, phases)
	return out
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	_, ok := categoryDescriptions[c]
	return ok
}

// Description returns the human description, or "" for unknown values.
func (c Category) Description() string { return categoryDescriptions[c] }

// Valid reports whether p is a member of the enumeration.
func (p Phase) Valid() bool {
	_, ok := phaseDescriptions[p]
	return ok
}

// Description returns the human description, or "" for unknown values.
func (p Phase) Description() string { return phaseDescriptions[p] }
