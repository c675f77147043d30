package extractor

// firstPersonPrefixes reject any sentence opening in first person.
var firstPersonPrefixes = []string{"i ", "we ", "my ", "our "}

// subjectivityMarkers rejects any sentence carrying opinion, hedging,
// allegation, meta-commentary, promotional, or inferential language.
// Matched as a case-insensitive substring against the sentence text.
var subjectivityMarkers = []string{
	// direct-opinion verbs and frames
	"believe", "think", "feel", "feels", "felt", "thought", "in my opinion",
	"argues", "suggests", "contends", "opines", "speculates", "reckons",
	"estimates", "imagines",
	// hedges
	"seems", "appears", "likely", "probably", "possibly", "perhaps", "arguably",
	// judgment adverbs
	"hopefully", "unfortunately", "clearly", "obviously",
	// allegation markers
	"allegedly", "reportedly", "supposedly", "rumored",
	// opinion nouns
	"opinion", "view", "perspective", "stance", "take",
	// meta-commentary
	"this article", "we examine",
	// promotional superlatives
	"revolutionary", "game-changer",
	// inferential connectives
	"therefore", "consequently", "in conclusion",
}

// unboundPronouns open a sentence without a resolvable referent,
// contributing to the fragment heuristic.
var unboundPronouns = []string{"he", "she", "they", "it", "this", "that", "these", "those"}

// entityLabels is the fixed set of named-entity labels the extractor
// accepts.
var entityLabels = map[string]bool{
	"PERSON": true, "ORG": true, "GPE": true, "EVENT": true,
	"LAW": true, "LOC": true, "WORK_OF_ART": true, "PRODUCT": true,
}
