// Package mesh implements the Lexical Mesh reflection pass: idle-time
// parsing of committed facts into atoms and synapses that back
// mesh_query and conversational association lookups.
package mesh

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
)

type Reflector struct {
	store  *storage.Store
	engine nlp.Engine
	log    *logrus.Entry
}

func New(store *storage.Store, engine nlp.Engine, log *logrus.Logger) *Reflector {
	return &Reflector{store: store, engine: engine, log: log.WithField("component", "mesh")}
}

// Run processes every unprocessed non-disputed fact: for each token,
// upsert a LexicalAtom; for each non-ROOT dependency edge,
// upsert a Synapse; for each ordered pair of named entities, upsert a
// shared_context Synapse. Marks the fact processed whether or not any
// atom/synapse write fails, so a single bad fact never wedges the
// reflection pass.
func (r *Reflector) Run() (int, error) {
	facts, err := r.store.GetUnprocessedForMesh()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, f := range facts {
		for _, sentence := range r.engine.Sentences(f.Content) {
			for _, tok := range sentence.Tokens() {
				if tok.POS == "PUNCT" || tok.Text == "" {
					continue
				}
				if err := r.store.UpdateAtom(strings.ToLower(tok.Text), tok.POS); err != nil {
					r.log.WithError(err).Warn("update_atom failed")
				}
				if tok.Dep != "" && tok.Dep != "ROOT" && tok.Head != "" {
					a, b := orderPair(strings.ToLower(tok.Text), strings.ToLower(tok.Head))
					if err := r.store.UpdateSynapse(a, b, tok.Dep); err != nil {
						r.log.WithError(err).Warn("update_synapse failed")
					}
				}
			}

			entities := sentence.NamedEntities()
			for i := 0; i < len(entities); i++ {
				for j := 0; j < len(entities); j++ {
					if i == j {
						continue
					}
					a, b := orderPair(strings.ToLower(entities[i].Text), strings.ToLower(entities[j].Text))
					if a == b {
						continue
					}
					if err := r.store.UpdateSynapse(a, b, "shared_context"); err != nil {
						r.log.WithError(err).Warn("update_synapse shared_context failed")
					}
				}
			}
		}

		if err := r.store.MarkProcessed(f.FactID); err != nil {
			r.log.WithError(err).Warn("mark_processed failed")
			continue
		}
		processed++
	}
	return processed, nil
}

func orderPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
