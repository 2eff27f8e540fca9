package services

// Financial sentiment word lists in the Loughran-McDonald style, trimmed to
// the vocabulary that actually shows up in PSX business coverage. Stemming is
// deliberately absent; the lists carry the common inflections instead.

var positiveWords = wordSet(
	"achieve", "achieved", "advance", "advanced", "advantage", "beat",
	"benefit", "benefits", "boost", "boosted", "bullish", "climb", "climbed",
	"confident", "deliver", "delivered", "dividend", "earn", "earned",
	"efficient", "exceed", "exceeded", "expand", "expanded", "expansion",
	"favorable", "favourable", "gain", "gained", "gains", "good", "grow",
	"growing", "grows", "growth", "high", "higher", "improve", "improved",
	"improvement", "increase", "increased", "increases", "jump", "jumped",
	"lead", "leading", "opportunity", "outperform", "positive", "profit",
	"profitable", "profits", "rally", "rallied", "rebound", "record",
	"recover", "recovered", "recovery", "rise", "risen", "rises", "rose",
	"strong", "stronger", "success", "successful", "surge", "surged", "up",
	"upgrade", "upgraded", "upside", "win", "winning",
)

var negativeWords = wordSet(
	"accident", "against", "alarm", "bankrupt", "bankruptcy", "bearish",
	"burden", "collapse", "collapsed", "concern", "concerns", "crash",
	"crashed", "crisis", "cut", "cuts", "damage", "damaged", "decline",
	"declined", "declines", "decrease", "decreased", "default", "deficit",
	"delay", "delayed", "devaluation", "difficult", "down", "downgrade",
	"downgraded", "downturn", "drop", "dropped", "drops", "fail", "failed",
	"failure", "fall", "fallen", "falling", "falls", "fell", "fine", "fined",
	"fraud", "halt", "halted", "inflation", "investigation", "lawsuit",
	"layoff", "layoffs", "liability", "litigation", "loss", "losses", "lost",
	"low", "lower", "miss", "missed", "negative", "penalty", "plunge",
	"plunged", "poor", "pressure", "probe", "recession", "risk", "risks",
	"sanction", "sanctions", "scandal", "shortage", "shortfall", "shrink",
	"slump", "slumped", "strike", "suspend", "suspended", "tumble",
	"tumbled", "turmoil", "unfavorable", "unfavourable", "warn", "warned",
	"warning", "weak", "weaker", "weakness", "worse", "worsen", "worst",
	"writedown", "writeoff",
)

var stopWords = wordSet(
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as",
	"at", "be", "been", "but", "by", "can", "could", "did", "do", "does",
	"for", "from", "had", "has", "have", "he", "her", "his", "i", "if", "in",
	"into", "is", "it", "its", "may", "more", "most", "not", "of", "on",
	"or", "our", "out", "over", "said", "she", "should", "so", "some",
	"such", "than", "that", "the", "their", "them", "then", "there", "these",
	"they", "this", "to", "under", "was", "we", "were", "what", "when",
	"which", "while", "who", "will", "with", "would",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
