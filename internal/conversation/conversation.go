// Package conversation implements a small, rule-based pattern matcher
// for fast, ledger-independent replies to common /think queries:
// greetings, meta commands, and definition-style templates are
// answered without ever scanning the fact ledger.
package conversation

import (
	"regexp"
	"strings"
	"sync"
)

// Pattern is one canned template/response pair. regex is compiled
// lazily, in bounded batches, by Compiler.AdvanceCompilation rather
// than all at once at startup.
type Pattern struct {
	Template string
	Response string
	Weight   float64

	regex *regexp.Regexp
}

// compile turns Template into a case-insensitive full-match regex.
// `<slot>` becomes a non-greedy wildcard; everything else is matched
// literally, with any literal space treated as one-or-more whitespace.
func (p *Pattern) compile() {
	var sb strings.Builder
	raw := p.Template
	for i := 0; i < len(raw); {
		if raw[i] == '<' {
			j := strings.IndexByte(raw[i+1:], '>')
			if j == -1 {
				sb.WriteString(regexp.QuoteMeta(raw[i:]))
				break
			}
			sb.WriteString(`(.+?)`)
			i += j + 2
			continue
		}
		if raw[i] == ' ' {
			sb.WriteString(`\s+`)
		} else {
			sb.WriteString(regexp.QuoteMeta(string(raw[i])))
		}
		i++
	}
	p.regex = regexp.MustCompile(`(?i)^` + sb.String() + `$`)
}

// seedPatterns returns the fixed set of ledger-independent templates
// every node starts with.
func seedPatterns() []*Pattern {
	return []*Pattern{
		{Template: "help", Weight: 1.5,
			Response: "I am Axiom. Ask me to explain internal engines, fetch knowledge, or reason about topics. Try: 'explain the crucible' or 'what is the lexical mesh'."},
		{Template: "what can you do", Weight: 1.5,
			Response: "I continuously ingest news, extract facts, link them into a knowledge graph, and reason about them. You can ask about current events or my internal systems."},
		{Template: "how do I use axiom", Weight: 1.5,
			Response: "Use /think to ask questions in plain language. You can query topics, compare entities, or ask how my subsystems like the extractor or lexical mesh work."},
		{Template: "explain the crucible", Weight: 2.0,
			Response: "The extractor ingests raw text, extracts structured atomic facts, and feeds them into the ledger and mesh for reasoning."},
		{Template: "what is the lexical mesh", Weight: 2.0,
			Response: "The Lexical Mesh is a semantic layer built from facts, turning text into synapses that allow fast similarity and association queries."},
		{Template: "what is axiom", Weight: 2.0,
			Response: "Axiom is an always-on knowledge engine that continuously ingests, structures, and reasons about information instead of passively waiting for prompts."},
		{Template: "who are you", Weight: 1.2,
			Response: "I am the Axiom node you are connected to. I build and maintain a knowledge ledger and respond based on that evolving state."},
		{Template: "what is <topic>", Weight: 1.0,
			Response: "You asked for a definition of '<topic>'. I may use my internal knowledge ledger for details, but I can already recognize this as a definition-style request."},
		{Template: "tell me about <topic>", Weight: 1.0,
			Response: "You want a high-level overview of '<topic>'. I can respond using my current knowledge and ongoing ingestion cycles."},
		{Template: "how does <system> work", Weight: 1.0,
			Response: "You are asking how '<system>' operates. I can describe its components and how they interact based on what I know."},
		{Template: "axiom: status", Weight: 2.0,
			Response: "Reporting my current internal health and ledger status."},
		{Template: "show health", Weight: 1.5,
			Response: "Summarizing my current system and ledger health."},
		{Template: "show endpoints", Weight: 1.5,
			Response: "Listing HTTP endpoints I currently expose."},
	}
}

// Compiler owns the pattern set and its incremental compilation state.
// AdvanceCompilation is driven by the scheduler's idle suite; Match is
// called from the /think handler.
type Compiler struct {
	mu            sync.Mutex
	patterns      []*Pattern
	compiledIndex int
}

func NewCompiler() *Compiler {
	return &Compiler{patterns: seedPatterns()}
}

// AdvanceCompilation compiles up to batchSize more patterns and
// reports whether the full set is now compiled. Deliberately
// unthrottled by time, unlike the rest of idle_suite's tasks: each
// idle_suite tick nudges the batch forward until done, then becomes a
// no-op.
func (c *Compiler) AdvanceCompilation(batchSize int) (compiled int, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compiledIndex >= len(c.patterns) {
		return 0, true
	}
	upper := c.compiledIndex + batchSize
	if upper > len(c.patterns) {
		upper = len(c.patterns)
	}
	for _, p := range c.patterns[c.compiledIndex:upper] {
		p.compile()
	}
	compiled = upper - c.compiledIndex
	c.compiledIndex = upper
	return compiled, c.compiledIndex >= len(c.patterns)
}

// Total reports how many patterns this compiler seeds, for logging.
func (c *Compiler) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.patterns)
}

// Match tries query against every compiled pattern, returning the
// highest-weighted canned response if any pattern clears minScore.
// Patterns not yet compiled (regex == nil) are skipped, so a /think
// call during startup simply falls through to the ledger scan.
func (c *Compiler) Match(query string) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	qNorm := normalize(query)
	if qNorm == "" {
		return false, ""
	}

	bestScore := 0.0
	bestResponse := ""
	for _, p := range c.patterns {
		if p.regex == nil {
			// Not yet compiled; the query falls through to the ledger
			// scan rather than racing the idle compiler.
			continue
		}
		base := p.Weight
		if base == 0 {
			base = 1.0
		}
		templateNorm := normalize(p.Template)

		if qNorm == templateNorm {
			if score := 1.0 * base; score > bestScore {
				bestScore, bestResponse = score, p.Response
			}
			continue
		}
		if p.regex.MatchString(query) {
			if score := 0.8 * base; score > bestScore {
				bestScore, bestResponse = score, p.Response
			}
			continue
		}
		if !strings.Contains(p.Template, "<") && templateNorm != "" && strings.Contains(qNorm, templateNorm) {
			if score := 0.7 * base; score > bestScore {
				bestScore, bestResponse = score, p.Response
			}
		}
	}

	const minScore = 0.6
	if bestScore >= minScore {
		return true, bestResponse
	}
	return false, ""
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
