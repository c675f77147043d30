package extractor

import (
	"strings"

	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/pkg/models"
)

// ScoreFragment exports fragmentHeuristic for the metacognition
// fragment audit, which recomputes the same rubric over already
// stored facts rather than freshly extracted sentences.
func ScoreFragment(s nlp.Sentence) (state models.FragmentState, score float64, reason string) {
	return fragmentHeuristic(s)
}

// fragmentHeuristic scores sentence s against the deterministic
// fragment rubric.
func fragmentHeuristic(s nlp.Sentence) (state models.FragmentState, score float64, reason string) {
	var reasons []string
	words := s.Words()

	if len(words) <= 8 {
		score += 0.6
		reasons = append(reasons, "<=8 words")
	}
	if len(words) <= 12 {
		score += 0.3
		reasons = append(reasons, "<=12 words")
	}
	if len(s.NamedEntities()) == 0 {
		score += 0.25
		reasons = append(reasons, "no named entities")
	}
	if len(words) > 0 && isUnboundPronoun(words[0]) {
		score += 0.25
		reasons = append(reasons, "starts with unbound pronoun")
	}
	if !endsWithTerminalPunctuation(s.Text) {
		score += 0.15
		reasons = append(reasons, "non-terminal punctuation")
	}
	if startsLowercase(s.Text) {
		score += 0.1
		reasons = append(reasons, "lowercase start")
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	state = models.FragmentUnknown
	if score >= 0.5 {
		state = models.FragmentSuspected
	}
	return state, score, strings.Join(reasons, "; ")
}

func isUnboundPronoun(word string) bool {
	lower := strings.ToLower(word)
	for _, p := range unboundPronouns {
		if lower == p {
			return true
		}
	}
	return false
}

func endsWithTerminalPunctuation(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return last == '.' || last == '!' || last == '?'
}

func startsLowercase(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	r := rune(trimmed[0])
	return r >= 'a' && r <= 'z'
}
