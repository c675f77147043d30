// Package synthesizer links newly-committed facts to the existing
// ledger by shared weighted entities.
package synthesizer

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

// ignoreSet is the fixed IGNORE set for synthesis: calendar and
// relative-time words, generic state nouns and news-agency names are
// never treated as linking entities even when the NLP engine tags them.
var ignoreSet = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"today": true, "yesterday": true, "tomorrow": true, "week": true, "month": true, "year": true,
	"government": true, "state": true, "officials": true, "reuters": true, "ap": true,
}

// weightOf returns the linking weight of an entity label: persons,
// organizations, events and works of art carry 3; geopolitical
// entities, locations, products and law carry 1; everything else is 0.
func weightOf(label string) int {
	switch label {
	case "PERSON", "ORG", "EVENT", "WORK_OF_ART":
		return 3
	case "GPE", "PRODUCT", "LAW", "LOC":
		return 1
	default:
		return 0
	}
}

// Synthesizer computes FactRelationship edges and reinforces
// conceptual_bridge synapses for a batch of newly-committed facts.
type Synthesizer struct {
	store  *storage.Store
	engine nlp.Engine
	log    *logrus.Entry
}

func New(store *storage.Store, engine nlp.Engine, log *logrus.Logger) *Synthesizer {
	return &Synthesizer{store: store, engine: engine, log: log.WithField("component", "synthesizer")}
}

// weightedEntities extracts this fact's (entity_text -> weight) map,
// skipping anything in ignoreSet.
func (s *Synthesizer) weightedEntities(content string) map[string]int {
	weights := map[string]int{}
	for _, sentence := range s.engine.Sentences(content) {
		for _, ent := range sentence.NamedEntities() {
			key := strings.ToLower(ent.Text)
			if ignoreSet[key] {
				continue
			}
			w := weightOf(ent.Label)
			if w == 0 {
				continue
			}
			if existing, ok := weights[key]; !ok || w > existing {
				weights[key] = w
			}
		}
	}
	return weights
}

// Run processes a batch of newly-committed facts against every
// existing non-disputed fact, inserting relationship edges and
// reinforcing conceptual_bridge synapses.
func (s *Synthesizer) Run(newFacts []models.Fact) error {
	if len(newFacts) == 0 {
		return nil
	}

	existing, err := s.store.GetFactsForAnalysis()
	if err != nil {
		return err
	}

	existingEntities := make(map[string]map[string]int, len(existing))
	for _, row := range existing {
		existingEntities[row.FactID] = s.weightedEntities(row.Content)
	}

	for _, nf := range newFacts {
		nfEntities := s.weightedEntities(nf.Content)
		existingEntities[nf.FactID] = nfEntities

		for _, row := range existing {
			if row.FactID == nf.FactID {
				continue
			}
			shared := sharedEntities(nfEntities, existingEntities[row.FactID])
			if len(shared) == 0 {
				continue
			}

			total := 0
			for _, avg := range shared {
				total += avg
			}
			if total < 2 {
				continue
			}

			a, b := orderPair(nf.FactID, row.FactID)
			if err := s.store.InsertRelationship(a, b, total); err != nil {
				s.log.WithError(err).Warn("insert_relationship failed")
			}

			if len(shared) >= 2 {
				keys := make([]string, 0, len(shared))
				for k := range shared {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for i := 0; i < len(keys); i++ {
					for j := i + 1; j < len(keys); j++ {
						wa, wb := orderPair(keys[i], keys[j])
						if err := s.store.UpdateSynapse(wa, wb, "conceptual_bridge"); err != nil {
							s.log.WithError(err).Warn("update_synapse failed")
						}
					}
				}
			}
		}
	}
	return nil
}

// sharedEntities returns the averaged weight for every entity text
// present in both maps.
func sharedEntities(a, b map[string]int) map[string]int {
	shared := map[string]int{}
	for k, wa := range a {
		if wb, ok := b[k]; ok {
			shared[k] = (wa + wb) / 2
		}
	}
	return shared
}

func orderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
