package filter

// stopwords is the English function-word list removed before lexical comparison.
// Entries are lowercase and include the contracted forms produced by tokenization.
var stopwords = map[string]struct{}{
	// --- Pronouns ---
	"i": {}, "me": {}, "my": {}, "myself": {}, "we": {}, "our": {}, "ours": {}, "ourselves": {},
	"you": {}, "you're": {}, "you've": {}, "you'll": {}, "you'd": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {}, "he": {}, "him": {}, "his": {}, "himself": {}, "she": {},
	"she's": {}, "her": {}, "hers": {}, "herself": {}, "it": {}, "it's": {}, "its": {}, "itself": {},
	"they": {}, "them": {}, "their": {}, "theirs": {}, "themselves": {},

	// --- Determiners & Interrogatives ---
	"what": {}, "which": {}, "who": {}, "whom": {}, "this": {}, "that": {}, "that'll": {},
	"these": {}, "those": {}, "a": {}, "an": {}, "the": {},

	// --- Auxiliaries ---
	"am": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "having": {}, "do": {}, "does": {}, "did": {}, "doing": {},
	"can": {}, "will": {}, "should": {}, "should've": {},

	// --- Conjunctions & Prepositions ---
	"and": {}, "but": {}, "if": {}, "or": {}, "because": {}, "as": {}, "until": {}, "while": {},
	"of": {}, "at": {}, "by": {}, "for": {}, "with": {}, "about": {}, "against": {}, "between": {},
	"into": {}, "through": {}, "during": {}, "before": {}, "after": {}, "above": {}, "below": {},
	"to": {}, "from": {}, "up": {}, "down": {}, "in": {}, "out": {}, "on": {}, "off": {},
	"over": {}, "under": {},

	// --- Adverbs & Quantifiers ---
	"again": {}, "further": {}, "then": {}, "once": {}, "here": {}, "there": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "all": {}, "any": {}, "both": {}, "each": {}, "few": {},
	"more": {}, "most": {}, "other": {}, "some": {}, "such": {}, "no": {}, "nor": {}, "not": {},
	"only": {}, "own": {}, "same": {}, "so": {}, "than": {}, "too": {}, "very": {}, "just": {},
	"now": {},

	// --- Contraction fragments ---
	"s": {}, "t": {}, "d": {}, "ll": {}, "m": {}, "o": {}, "re": {}, "ve": {}, "y": {},
	"ain": {}, "aren": {}, "aren't": {}, "couldn": {}, "couldn't": {}, "didn": {}, "didn't": {},
	"doesn": {}, "doesn't": {}, "don": {}, "don't": {}, "hadn": {}, "hadn't": {}, "hasn": {},
	"hasn't": {}, "haven": {}, "haven't": {}, "isn": {}, "isn't": {}, "ma": {}, "mightn": {},
	"mightn't": {}, "mustn": {}, "mustn't": {}, "needn": {}, "needn't": {}, "shan": {},
	"shan't": {}, "shouldn": {}, "shouldn't": {}, "wasn": {}, "wasn't": {}, "weren": {},
	"weren't": {}, "won": {}, "won't": {}, "wouldn": {}, "wouldn't": {},
}

// IsStopword reports whether the lowercase word is a stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
