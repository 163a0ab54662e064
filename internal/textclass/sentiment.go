package textclass

import (
	"regexp"
	"strings"
)

const (
	SentimentVeryNegative = "very negative"
	SentimentNegative     = "negative"
	SentimentNeutral      = "neutral"
	SentimentPositive     = "positive"
	SentimentVeryPositive = "very positive"
)

// afinn is a subset of the AFINN-165 word list, weighted toward the vocabulary of wellness conversations
var afinn = map[string]int{
	"abandoned": -2, "abuse": -3, "afraid": -2, "agony": -3, "alone": -2, "angry": -3,
	"anguish": -3, "annoyed": -2, "anxiety": -2, "anxious": -2, "ashamed": -2, "awful": -3,
	"bad": -3, "broken": -1, "burden": -2, "crap": -3, "crisis": -3, "cry": -1,
	"crying": -2, "dead": -3, "depressed": -2, "depressing": -2, "depression": -2, "desperate": -3,
	"despair": -3, "die": -3, "disappointed": -2, "disgusted": -3, "distress": -2, "exhausted": -2,
	"fail": -2, "failed": -2, "failure": -2, "fear": -2, "frustrated": -2, "grief": -2,
	"guilty": -3, "hate": -3, "hopeless": -2, "horrible": -3, "hurt": -2, "hurts": -2,
	"insomnia": -2, "kill": -3, "lonely": -2, "lost": -3, "miserable": -3, "nervous": -2,
	"overwhelmed": -2, "pain": -2, "panic": -3, "sad": -2, "scared": -2, "sick": -2,
	"stress": -1, "stressed": -2, "struggle": -2, "struggling": -2, "suffer": -2, "suicide": -2,
	"terrible": -3, "tired": -2, "trouble": -2, "ugly": -3, "unhappy": -2, "upset": -2,
	"useless": -2, "worried": -3, "worry": -3, "worse": -3, "worst": -3, "worthless": -2,

	"amazing": 4, "awesome": 4, "better": 2, "blessed": 3, "brilliant": 4, "calm": 2,
	"cheerful": 2, "comfort": 2, "confident": 2, "content": 1, "cool": 1, "excellent": 3,
	"excited": 3, "fantastic": 4, "fine": 2, "glad": 3, "good": 3, "grateful": 3,
	"great": 3, "happy": 3, "healthy": 2, "helpful": 2, "hope": 2, "hopeful": 2,
	"joy": 3, "kind": 2, "love": 3, "loved": 3, "lovely": 3, "nice": 3,
	"peace": 2, "peaceful": 2, "positive": 2, "proud": 2, "relaxed": 2, "relief": 1,
	"relieved": 2, "safe": 1, "strong": 2, "success": 2, "support": 2, "thank": 2,
	"thanks": 2, "wonderful": 4, "yes": 1,
}

var (
	negators = map[string]bool{
		"not": true, "no": true, "never": true, "dont": true, "don't": true, "cant": true,
		"can't": true, "cannot": true, "isnt": true, "isn't": true, "wont": true, "won't": true,
		"didnt": true, "didn't": true, "doesnt": true, "doesn't": true,
	}
	tokenPattern = regexp.MustCompile(`[a-z']+`)
)

// SentimentScore sums lexicon weights over the words of text. A negator
// immediately before a scored word flips its sign.
func SentimentScore(text string) int {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	score := 0
	for i, tok := range tokens {
		w, ok := afinn[tok]
		if !ok {
			continue
		}
		if i > 0 && negators[tokens[i-1]] {
			w = -w
		}
		score += w
	}
	return score
}

// BucketSentiment maps a lexicon score onto the five labels
func BucketSentiment(score int) string {
	switch {
	case score < -2:
		return SentimentVeryNegative
	case score < 0:
		return SentimentNegative
	case score == 0:
		return SentimentNeutral
	case score <= 2:
		return SentimentPositive
	default:
		return SentimentVeryPositive
	}
}

// AnalyzeSentiment scores and buckets text
func AnalyzeSentiment(text string) string {
	return BucketSentiment(SentimentScore(text))
}
