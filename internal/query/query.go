// Package query implements the `/think` free-text lookup: parse the
// query into grounding atoms, scan all non-disputed facts for a
// substring hit, rank by trust_score, and support "show more"
// pagination over the remaining hits.
package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
)

// cursorTTL bounds how long a "show more" pagination cursor survives
// between requests. The original single-operator CLI tool kept one
// global last_results list; Axiom serves many HTTP clients
// concurrently, so the cursor is keyed per client and short-lived
// rather than global (a necessary generalization, not a feature
// addition).
const cursorTTL = 5 * time.Minute

// Result is one ranked hit against a /think query.
type Result struct {
	FactID     string
	Content    string
	TrustScore int
}

// Answer is the full response to a /think query: the rendered
// template plus the ranked hit list a "show more" follow-up paginates
// through.
type Answer struct {
	Text  string
	Hits  []Result
	Atoms []string
}

// Engine answers /think queries against a Store, using an nlp.Engine
// to extract grounding atoms from the free-text query itself.
type Engine struct {
	store *storage.Store
	nlp   nlp.Engine

	mu      sync.Mutex
	cursors map[string]cursorEntry
}

type cursorEntry struct {
	hits    []Result
	shown   int
	expires time.Time
}

func New(store *storage.Store, engine nlp.Engine) *Engine {
	return &Engine{
		store:   store,
		nlp:     engine,
		cursors: make(map[string]cursorEntry),
	}
}

// groundingPOS is the set of POS tags whose lemmas count as grounding
// atoms: nouns and proper nouns.
var groundingPOS = map[string]bool{"NOUN": true, "PROPN": true}

// Ask parses queryText into grounding atoms and scans all non-disputed
// facts for a hit, returning the rendered response template and the
// ranked hit list. clientKey scopes the pagination cursor a later
// "show more" call resumes from.
func (e *Engine) Ask(clientKey, queryText string) (Answer, error) {
	atoms := e.groundingAtoms(queryText)
	if len(atoms) == 0 {
		return Answer{Text: "no grounding atoms", Atoms: atoms}, nil
	}

	facts, err := e.store.AllNonDisputedFacts()
	if err != nil {
		return Answer{}, err
	}

	var hits []Result
	for _, f := range facts {
		lower := strings.ToLower(f.Content)
		for _, atom := range atoms {
			if strings.Contains(lower, atom) {
				hits = append(hits, Result{FactID: f.FactID, Content: f.Content, TrustScore: f.TrustScore})
				break
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].TrustScore > hits[j].TrustScore
	})

	answer := Answer{Atoms: atoms, Hits: hits}
	if len(hits) == 0 {
		answer.Text = "no verified record found"
		return answer, nil
	}

	best := hits[0]
	answer.Text = fmt.Sprintf("Verified Record Found: %q", best.Content)
	if len(hits) > 1 {
		answer.Text += fmt.Sprintf(" %d additional corroborated stream(s) found.", len(hits)-1)
	}

	e.storeCursor(clientKey, hits, 1)
	return answer, nil
}

// ShowMore paginates through the remaining hits from clientKey's last
// Ask call, starting past whatever has already been shown.
func (e *Engine) ShowMore(clientKey string, pageSize int) ([]Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.cursors[clientKey]
	if !ok || time.Now().After(entry.expires) {
		delete(e.cursors, clientKey)
		return nil, false
	}

	start := entry.shown
	end := start + pageSize
	if end > len(entry.hits) {
		end = len(entry.hits)
	}
	if start >= end {
		return nil, true
	}

	page := entry.hits[start:end]
	entry.shown = end
	entry.expires = time.Now().Add(cursorTTL)
	e.cursors[clientKey] = entry
	return page, true
}

func (e *Engine) storeCursor(clientKey string, hits []Result, shown int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors[clientKey] = cursorEntry{hits: hits, shown: shown, expires: time.Now().Add(cursorTTL)}
}

func (e *Engine) groundingAtoms(text string) []string {
	var atoms []string
	seen := make(map[string]bool)
	for _, sentence := range e.nlp.Sentences(text) {
		for _, tok := range sentence.Tokens() {
			if !groundingPOS[tok.POS] {
				continue
			}
			lemma := strings.ToLower(tok.Lemma)
			if lemma == "" || seen[lemma] {
				continue
			}
			seen[lemma] = true
			atoms = append(atoms, lemma)
		}
	}
	if len(atoms) == 0 {
		// Fallback: re-parse the query with a terminal period appended
		// and collect noun and proper-noun lemmas from that parse. The
		// reference engine already parses unpunctuated text as one
		// sentence, so a one-word query like "Germany" grounds on the
		// first pass.
		for _, s := range e.nlp.Sentences(text + ".") {
			for _, tok := range s.Tokens() {
				if !groundingPOS[tok.POS] {
					continue
				}
				lemma := strings.ToLower(tok.Lemma)
				if lemma == "" || seen[lemma] {
					continue
				}
				seen[lemma] = true
				atoms = append(atoms, lemma)
			}
		}
	}
	return atoms
}
