// Package nlp defines the external NLP collaborator contract the
// Extractor depends on and a dependency-free reference
// implementation good enough to drive the extraction pipeline without
// a real model.
//
// The engine is a capability handle owned by the node and injected at
// construction, never a process-wide singleton, so tests can swap in
// scripted parses.
package nlp

// Entity is one named-entity span recognized in a sentence. Label is
// one of the fixed set the extractor filters on: PERSON, ORG, GPE,
// EVENT, LAW, LOC, WORK_OF_ART, PRODUCT.
type Entity struct {
	Label string
	Text  string
}

// Token is one word of a parsed sentence with its lemma, coarse POS
// tag, dependency label, and head token text.
type Token struct {
	Text  string
	Lemma string
	POS   string // NOUN, VERB, PROPN, PRON, ADJ, ADV, PUNCT, ...
	Dep   string // nsubj, nsubjpass, dobj, ROOT, dep, punct, ...
	Head  string
}

// Sentence is one parsed sentence: words, named entities, dependency
// tokens, and negation.
type Sentence struct {
	Text       string
	WordList   []string
	EntityList []Entity
	TokenList  []Token
	Negation   bool
}

func (s Sentence) Words() []string         { return s.WordList }
func (s Sentence) NamedEntities() []Entity { return s.EntityList }
func (s Sentence) Tokens() []Token         { return s.TokenList }
func (s Sentence) HasNegation() bool       { return s.Negation }

// Subject returns the first nsubj/nsubjpass token, or a zero Token if
// the sentence has no nominal subject.
func (s Sentence) Subject() Token {
	for _, tok := range s.TokenList {
		if tok.Dep == "nsubj" || tok.Dep == "nsubjpass" {
			return tok
		}
	}
	return Token{}
}

// RootVerb returns the ROOT-dependency token, or a zero Token if none
// was identified.
func (s Sentence) RootVerb() Token {
	for _, tok := range s.TokenList {
		if tok.Dep == "ROOT" {
			return tok
		}
	}
	return Token{}
}

// HasVerb reports whether any token was tagged VERB.
func (s Sentence) HasVerb() bool {
	for _, tok := range s.TokenList {
		if tok.POS == "VERB" {
			return true
		}
	}
	return false
}

// Engine is the capability handle the Extractor is built with. It is
// deliberately the entire external NLP surface: sentence segmentation,
// POS tagging, dependency parsing, and NER all live behind this
// interface rather than in the node itself.
type Engine interface {
	Sentences(text string) []Sentence
}
