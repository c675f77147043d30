package nlp

import (
	"regexp"
	"strings"
)

// RuleEngine is a dependency-free stand-in for the real NLP model Axiom
// treats as an external collaborator. It is deliberately
// shallow: gazetteer lookups and suffix rules instead of a trained
// parser. It exists so the extraction pipeline can be
// exercised end-to-end; in production a node is expected to inject a
// real parser behind the same Engine interface.
type RuleEngine struct{}

// NewRuleEngine constructs the reference Engine implementation.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

var sentenceSplitter = regexp.MustCompile(`(?:[.!?]+)(?:\s+|$)`)

var tokenSplitter = regexp.MustCompile(`[A-Za-z0-9]+(?:'[A-Za-z]+)?|[.,!?;:()"]`)

// organizationSuffixes marks a capitalized phrase as an ORG.
var organizationSuffixes = map[string]bool{
	"inc": true, "inc.": true, "corp": true, "corp.": true,
	"company": true, "corporation": true, "ltd": true, "ltd.": true,
	"llc": true, "group": true, "holdings": true, "co": true, "co.": true,
	"union": true, "organization": true, "bank": true, "authority": true,
	"agency": true, "administration": true, "commission": true,
	"nations": true, "council": true, "party": true, "foundation": true,
}

// geopoliticalGazetteer is a small fixed list of common GPE/LOC names.
var geopoliticalGazetteer = map[string]string{
	"united states": "GPE", "china": "GPE", "russia": "GPE", "france": "GPE",
	"germany": "GPE", "japan": "GPE", "india": "GPE", "brazil": "GPE",
	"canada": "GPE", "mexico": "GPE", "ukraine": "GPE", "israel": "GPE",
	"iran": "GPE", "egypt": "GPE", "italy": "GPE", "spain": "GPE",
	"europe": "LOC", "asia": "LOC", "africa": "LOC", "middle east": "LOC",
	"washington": "GPE", "beijing": "GPE", "moscow": "GPE", "london": "GPE",
	"paris": "GPE", "tokyo": "GPE", "berlin": "GPE", "brussels": "GPE",
}

// lawKeywords marks a capitalized phrase as LAW.
var lawKeywords = map[string]bool{
	"treaty": true, "act": true, "accord": true, "law": true,
	"constitution": true, "amendment": true, "resolution": true,
	"agreement": true, "pact": true, "convention": true,
}

// eventKeywords marks a capitalized phrase as EVENT.
var eventKeywords = map[string]bool{
	"war": true, "games": true, "olympics": true, "summit": true,
	"conference": true, "election": true, "crisis": true, "revolution": true,
	"championship": true, "world cup": true,
}

// commonVerbs is a curated list sufficient to identify the root verb
// of typical news-style declarative sentences. Keyed by surface form
// (base and conjugated forms alike), each mapping to its lemma.
var commonVerbs = map[string]string{
	"acquired": "acquire", "acquires": "acquire", "acquire": "acquire",
	"announced": "announce", "announces": "announce", "announce": "announce",
	"signed": "sign", "signs": "sign", "sign": "sign",
	"launched": "launch", "launches": "launch", "launch": "launch",
	"said": "say", "says": "say", "say": "say",
	"reported": "report", "reports": "report", "report": "report",
	"confirmed": "confirm", "confirms": "confirm", "confirm": "confirm",
	"denied": "deny", "denies": "deny", "deny": "deny",
	"won": "win", "wins": "win", "win": "win",
	"lost": "lose", "loses": "lose", "lose": "lose",
	"died": "die", "dies": "die", "die": "die",
	"passed": "pass", "passes": "pass", "pass": "pass",
	"approved": "approve", "approves": "approve", "approve": "approve",
	"rejected": "reject", "rejects": "reject", "reject": "reject",
	"joined": "join", "joins": "join", "join": "join",
	"left": "leave", "leaves": "leave", "leave": "leave",
	"founded": "found", "founds": "found", "found": "found",
	"merged": "merge", "merges": "merge", "merge": "merge",
	"elected": "elect", "elects": "elect", "elect": "elect",
	"appointed": "appoint", "appoints": "appoint", "appoint": "appoint",
	"resigned": "resign", "resigns": "resign", "resign": "resign",
	"banned": "ban", "bans": "ban", "ban": "ban",
	"imposed": "impose", "imposes": "impose", "impose": "impose",
	"lifted": "lift", "lifts": "lift", "lift": "lift",
	"raised": "raise", "raises": "raise", "raise": "raise",
	"cut": "cut", "cuts": "cut",
	"invaded": "invade", "invades": "invade", "invade": "invade",
	"attacked": "attack", "attacks": "attack", "attack": "attack",
	"visited": "visit", "visits": "visit", "visit": "visit",
	"met": "meet", "meets": "meet", "meet": "meet",
	"agreed": "agree", "agrees": "agree", "agree": "agree",
	"opposed": "oppose", "opposes": "oppose", "oppose": "oppose",
	"supported": "support", "supports": "support", "support": "support",
	"criticized": "criticize", "criticizes": "criticize", "criticize": "criticize",
	"published": "publish", "publishes": "publish", "publish": "publish",
	"released": "release", "releases": "release", "release": "release",
	"unveiled": "unveil", "unveils": "unveil", "unveil": "unveil",
	"ordered": "order", "orders": "order", "order": "order",
	"declared": "declare", "declares": "declare", "declare": "declare",
	"entered": "enter", "enters": "enter", "enter": "enter",
	"began": "begin", "begins": "begin", "begin": "begin",
	"started": "start", "starts": "start", "start": "start",
	"ended": "end", "ends": "end", "end": "end",
	"killed": "kill", "kills": "kill", "kill": "kill",
	"is": "be", "was": "be", "were": "be", "are": "be", "be": "be",
	"has": "have", "had": "have", "have": "have",
}

var negationMarkers = map[string]bool{
	"not": true, "never": true, "no": true, "n't": true,
	"didn't": true, "isn't": true, "wasn't": true, "weren't": true,
	"won't": true, "wouldn't": true, "doesn't": true, "don't": true,
	"hasn't": true, "haven't": true, "cannot": true, "can't": true,
}

var pronouns = map[string]bool{
	"he": true, "she": true, "they": true, "it": true, "we": true,
	"i": true, "you": true, "this": true, "that": true, "these": true,
	"those": true,
}

var sentenceCaseStarters = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true, "at": true,
	"but": true, "and": true, "or": true, "however": true,
}

// Sentences splits text into sentences and parses each with the rule
// set above. It never returns an error: unparseable fragments simply
// yield an empty token/entity set, which the extractor's filters
// reject downstream.
func (e *RuleEngine) Sentences(text string) []Sentence {
	var out []Sentence
	for _, raw := range splitSentences(text) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		out = append(out, parseSentence(raw))
	}
	return out
}

func splitSentences(text string) []string {
	locs := sentenceSplitter.FindAllStringIndex(text, -1)
	if locs == nil {
		return []string{text}
	}
	var parts []string
	start := 0
	for _, loc := range locs {
		parts = append(parts, text[start:loc[0]])
		start = loc[1]
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

func parseSentence(text string) Sentence {
	rawWords := tokenSplitter.FindAllString(text, -1)

	words := make([]string, 0, len(rawWords))
	for _, w := range rawWords {
		if !isPunct(w) {
			words = append(words, w)
		}
	}

	entities := extractEntities(rawWords)
	tokens := buildTokens(rawWords)
	negation := hasNegation(rawWords)

	return Sentence{
		Text:       text,
		WordList:   words,
		EntityList: entities,
		TokenList:  tokens,
		Negation:   negation,
	}
}

func isPunct(tok string) bool {
	return len(tok) == 1 && strings.ContainsAny(tok, ".,!?;:()\"")
}

func isCapitalized(tok string) bool {
	if tok == "" {
		return false
	}
	r := rune(tok[0])
	return r >= 'A' && r <= 'Z'
}

// extractEntities groups consecutive capitalized, non-punctuation
// tokens (skipping a sentence-initial common function word such as
// "The", which is capitalized only by orthographic convention) into
// entity spans and labels each span via gazetteer/suffix heuristics.
func extractEntities(rawWords []string) []Entity {
	var entities []Entity
	var span []string

	flush := func() {
		if len(span) == 0 {
			return
		}
		text := strings.Join(span, " ")
		entities = append(entities, Entity{
			Label: classifyEntity(span, text),
			Text:  text,
		})
		span = nil
	}

	for i, w := range rawWords {
		if isPunct(w) {
			flush()
			continue
		}
		cap := isCapitalized(w)
		// A capitalized word is eligible unless it is the sentence-initial
		// token and a common sentence-starter function word.
		eligible := cap && !(i == 0 && sentenceCaseStarters[strings.ToLower(w)])
		if eligible {
			span = append(span, w)
		} else {
			flush()
		}
	}
	flush()
	return entities
}

func classifyEntity(span []string, text string) string {
	lower := strings.ToLower(text)
	if label, ok := geopoliticalGazetteer[lower]; ok {
		return label
	}
	last := strings.ToLower(span[len(span)-1])
	if organizationSuffixes[last] {
		return "ORG"
	}
	for _, w := range span {
		lw := strings.ToLower(w)
		if lawKeywords[lw] {
			return "LAW"
		}
		if eventKeywords[lw] {
			return "EVENT"
		}
	}
	if len(span) > 1 {
		// Multi-word capitalized phrase without a recognized suffix:
		// treat as an organization/work title by default.
		return "ORG"
	}
	return "PERSON"
}

// buildTokens assigns a flat dependency structure: the first verb
// found becomes ROOT, the last non-punctuation token before it
// becomes nsubj (nsubjpass if a passive auxiliary precedes the verb),
// the first non-punctuation token after the verb becomes dobj, and
// everything else attaches to the root.
func buildTokens(rawWords []string) []Token {
	tokens := make([]Token, 0, len(rawWords))
	rootIdx := -1
	for i, w := range rawWords {
		pos, lemma := classifyWord(w)
		tokens = append(tokens, Token{Text: w, Lemma: lemma, POS: pos})
		if pos == "VERB" && rootIdx == -1 {
			rootIdx = i
		}
	}
	if rootIdx == -1 {
		return tokens
	}

	tokens[rootIdx].Dep = "ROOT"
	rootText := tokens[rootIdx].Text

	subjIdx := -1
	for i := 0; i < rootIdx; i++ {
		if tokens[i].POS == "PUNCT" {
			continue
		}
		subjIdx = i
	}
	if subjIdx != -1 {
		dep := "nsubj"
		if isPassive(rawWords, rootIdx) {
			dep = "nsubjpass"
		}
		tokens[subjIdx].Dep = dep
		tokens[subjIdx].Head = rootText
	}

	objAssigned := false
	for i := rootIdx + 1; i < len(tokens); i++ {
		if tokens[i].Dep != "" {
			continue
		}
		if tokens[i].POS == "PUNCT" {
			tokens[i].Dep = "punct"
			tokens[i].Head = rootText
			continue
		}
		if !objAssigned {
			tokens[i].Dep = "dobj"
			objAssigned = true
		} else {
			tokens[i].Dep = "dep"
		}
		tokens[i].Head = rootText
	}
	for i := 0; i < subjIdx; i++ {
		if tokens[i].Dep == "" {
			tokens[i].Dep = "dep"
			tokens[i].Head = rootText
		}
	}
	return tokens
}

func isPassive(rawWords []string, rootIdx int) bool {
	if rootIdx == 0 {
		return false
	}
	prev := strings.ToLower(rawWords[rootIdx-1])
	return prev == "was" || prev == "were" || prev == "been" || prev == "being"
}

func classifyWord(w string) (pos, lemma string) {
	if isPunct(w) {
		return "PUNCT", w
	}
	lower := strings.ToLower(w)
	if lemma, ok := commonVerbs[lower]; ok {
		return "VERB", lemma
	}
	if pronouns[lower] {
		return "PRON", lower
	}
	if isCapitalized(w) {
		return "PROPN", lower
	}
	return "NOUN", lemmatizeNoun(lower)
}

func lemmatizeNoun(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "es") && len(w) > 3:
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "s") && len(w) > 2:
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func hasNegation(rawWords []string) bool {
	for _, w := range rawWords {
		if negationMarkers[strings.ToLower(w)] {
			return true
		}
		if strings.Contains(strings.ToLower(w), "n't") {
			return true
		}
	}
	return false
}
