package extractor

import (
	"sort"
	"strings"

	"github.com/rawblock/axiom-node/internal/nlp"
)

// adlSummary computes a sentence's compact structural fingerprint:
// `subject_lemma|root_verb_lemma|ENTITY_LABELS_SORTED`.
func adlSummary(s nlp.Sentence) (subjectLemma, rootVerbLemma, summary string) {
	subjectLemma = strings.ToLower(s.Subject().Lemma)
	rootVerbLemma = strings.ToLower(s.RootVerb().Lemma)

	labelSet := map[string]bool{}
	for _, ent := range s.NamedEntities() {
		labelSet[ent.Label] = true
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	summary = subjectLemma + "|" + rootVerbLemma + "|" + strings.Join(labels, ",")
	return subjectLemma, rootVerbLemma, summary
}
