// Package extractor turns raw article text into persisted candidate
// Facts. It is the only component that writes new facts:
// everything downstream (Synthesizer, Reflection, Chain) operates on
// facts the Extractor has already committed.
package extractor

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/domain"
	"github.com/rawblock/axiom-node/internal/hasher"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

const (
	minWords          = 8
	maxWords          = 100
	minChars          = 25
	maxChars          = 400
	requiredEntities  = 2
	corroborationSpan = 60
)

// Extractor runs the sanitize -> split -> filter -> probe pipeline.
type Extractor struct {
	store        *storage.Store
	engine       nlp.Engine
	tCorroborate int
	log          *logrus.Entry
}

func New(store *storage.Store, engine nlp.Engine, tCorroborate int, log *logrus.Logger) *Extractor {
	return &Extractor{
		store:        store,
		engine:       engine,
		tCorroborate: tCorroborate,
		log:          log.WithField("component", "extractor"),
	}
}

// Extract runs the full pipeline over rawText from sourceURL and
// returns every newly created Fact. Sentences that are
// rejected, that corroborate an existing fact, or that resolve a
// contradiction never appear in the return value.
func (e *Extractor) Extract(sourceURL, rawText string) ([]models.Fact, error) {
	clean := sanitize(rawText)
	sentences := e.engine.Sentences(clean)

	analysisRows, err := e.store.GetFactsForAnalysis()
	if err != nil {
		return nil, err
	}

	var created []models.Fact
	for _, s := range sentences {
		if !e.passesFilters(s) {
			continue
		}

		subjectLemma, rootVerbLemma, summary := adlSummary(s)
		content := strings.TrimSpace(s.Text)
		negation := s.HasNegation()

		if existingID, ok := findContradiction(analysisRows, subjectLemma, rootVerbLemma, negation); ok {
			newID := hasher.FactID(content)
			if err := e.store.MarkDisputed(existingID, newID, content, sourceURL); err != nil {
				e.log.WithError(err).Warn("mark_disputed failed")
				continue
			}
			continue
		}

		if existingID, ok := findCorroboration(analysisRows, content, sourceURL); ok {
			if err := e.store.Corroborate(existingID, sourceURL, e.tCorroborate); err != nil {
				e.log.WithError(err).Warn("corroborate failed")
			}
			continue
		}

		factID := hasher.FactID(content)
		state, score, reason := fragmentHeuristic(s)

		result, err := e.store.InsertCandidateFact(
			factID, content, sourceURL, summary, subjectLemma, rootVerbLemma, negation,
			state, score, reason,
		)
		if err != nil {
			e.log.WithError(err).Warn("insert_candidate_fact failed")
			continue
		}
		if result == storage.Created {
			f, found, err := e.store.GetFactByID(factID)
			if err == nil && found {
				created = append(created, f)
				analysisRows = append(analysisRows, storage.FactAnalysisRow{
					FactID:        factID,
					Content:       content,
					SourceDomain:  sourceDomainOf(sourceURL),
					SubjectLemma:  subjectLemma,
					RootVerbLemma: rootVerbLemma,
					HasNegation:   negation,
					Status:        f.Status,
				})
			}
		}
	}
	return created, nil
}

// passesFilters applies every per-sentence rejection rule. Any single
// failing rule short-circuits the sentence.
func (e *Extractor) passesFilters(s nlp.Sentence) bool {
	words := s.Words()
	text := strings.TrimSpace(s.Text)

	if len(words) < minWords || len(words) > maxWords {
		return false
	}
	if len(text) < minChars || len(text) > maxChars {
		return false
	}

	lower := strings.ToLower(text)
	for _, prefix := range firstPersonPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	for _, marker := range subjectivityMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	entityCount := 0
	for _, ent := range s.NamedEntities() {
		if entityLabels[ent.Label] {
			entityCount++
		}
	}
	if entityCount < requiredEntities {
		return false
	}

	subj := s.Subject()
	if subj.Text == "" && subj.Lemma == "" {
		return false
	}
	if !s.HasVerb() {
		return false
	}

	return true
}

// findContradiction reports an existing fact whose subject and root
// verb match but whose negation parity differs.
func findContradiction(rows []storage.FactAnalysisRow, subjectLemma, rootVerbLemma string, negation bool) (factID string, found bool) {
	if subjectLemma == "" || rootVerbLemma == "" {
		return "", false
	}
	for _, r := range rows {
		if r.SubjectLemma == subjectLemma && r.RootVerbLemma == rootVerbLemma && r.HasNegation != negation {
			return r.FactID, true
		}
	}
	return "", false
}

// findCorroboration reports an existing fact sharing the same
// 60-character prefix (case-insensitive) from a distinct source domain.
func findCorroboration(rows []storage.FactAnalysisRow, content, sourceURL string) (factID string, found bool) {
	prefix := lowerPrefix(content, corroborationSpan)
	domain := sourceDomainOf(sourceURL)
	for _, r := range rows {
		if lowerPrefix(r.Content, corroborationSpan) == prefix && r.SourceDomain != domain {
			return r.FactID, true
		}
	}
	return "", false
}

func lowerPrefix(s string, n int) string {
	lower := strings.ToLower(s)
	if len(lower) <= n {
		return lower
	}
	return lower[:n]
}

func sourceDomainOf(rawURL string) string {
	return domain.Of(rawURL)
}
