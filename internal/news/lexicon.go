package news

import (
	"strings"
	"unicode"
)

// Lexicon scores short financial text by counting words from the
// Loughran-McDonald style lists plus common headline verbs.
type Lexicon struct {
	positive   map[string]bool
	negative   map[string]bool
	litigation map[string]bool
}

// NewLexicon builds the default word lists.
func NewLexicon() *Lexicon {
	return &Lexicon{
		positive:   wordSet(positiveWords),
		negative:   wordSet(negativeWords),
		litigation: wordSet(litigationWords),
	}
}

// Score returns a polarity in [-1, 1] and the number of scored words.
// Litigation vocabulary counts against the text.
func (l *Lexicon) Score(text string) (float64, int) {
	pos, neg := 0, 0
	for _, w := range tokenize(strings.ToLower(text)) {
		switch {
		case l.positive[w]:
			pos++
		case l.negative[w], l.litigation[w]:
			neg++
		}
	}
	hits := pos + neg
	if hits == 0 {
		return 0, 0
	}
	return float64(pos-neg) / float64(hits), hits
}

// ScoreAll averages Score over texts that contain at least one scored word.
// ok is false when none did.
func (l *Lexicon) ScoreAll(texts []string) (score float64, ok bool) {
	sum, n := 0.0, 0
	for _, t := range texts {
		s, hits := l.Score(t)
		if hits == 0 {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func tokenize(text string) []string {
	var words []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			cur.WriteRune(r)
		} else if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func wordSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var positiveWords = []string{
	"achieve", "attain", "beat", "beats", "benefit", "better", "bullish",
	"buy", "competitive", "enhance", "excellent", "exceptional", "favorable",
	"gain", "gains", "good", "great", "grew", "growth", "high", "higher",
	"improve", "improved", "improvement", "innovation", "innovative", "jump",
	"jumps", "leader", "leading", "opportunity", "optimistic", "outperform",
	"positive", "profit", "profitable", "progress", "rally", "rallies",
	"record", "remarkable", "rise", "rises", "robust", "solid", "soar",
	"soars", "strength", "strong", "succeed", "success", "successful",
	"superior", "surge", "surges", "surpass", "upbeat", "upgrade",
	"upgraded", "well-positioned", "winning",
}

var negativeWords = []string{
	"abandon", "adverse", "bearish", "challenge", "challenging", "concern",
	"concerns", "crash", "crisis", "cut", "cuts", "damage", "debt",
	"decline", "declines", "decrease", "default", "deficit", "deteriorate",
	"difficult", "disappoint", "disappointing", "downgrade", "downgraded",
	"downturn", "drop", "drops", "erode", "fail", "failure", "fall", "falls",
	"falling", "fear", "headwind", "impairment", "loss", "losses", "low",
	"lower", "miss", "misses", "negative", "plunge", "plunges", "poor",
	"recession", "risk", "risks", "sell", "selloff", "slowdown", "slump",
	"slumps", "tumble", "tumbles", "underperform", "unfavorable",
	"unprofitable", "volatile", "weak", "weakness", "worse", "worst",
}

var litigationWords = []string{
	"allegation", "alleged", "fraud", "investigation", "lawsuit", "penalty",
	"probe", "raid", "sued", "violation",
}
