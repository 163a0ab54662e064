package textclass

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

const (
	LangEnglish  = "en"
	LangTamil    = "ta"
	LangHindi    = "hi"
	LangTanglish = "ta-en"
	LangHinglish = "hi-en"
)

// minMarkers is how many distinct marker patterns must match before a romanized language is assumed
const minMarkers = 2

var (
	tamilScript      = regexp.MustCompile(`[\x{0B80}-\x{0BFF}]`)
	devanagariScript = regexp.MustCompile(`[\x{0900}-\x{097F}]`)

	tanglishMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(irukk|irukka|iruken|iruku|irukku|irukanga|irukeenga)\b`),
		regexp.MustCompile(`(?i)\b(pann|pannu|pannunga|pannalaam|panren)\b`),
		regexp.MustCompile(`(?i)\b(seri|enna|epdi|nalla|romba|konjam|kavalai|kashtam|puriyala|vendam)\b`),
		regexp.MustCompile(`(?i)\b(inga|unga|enga|anga)\b`),
		regexp.MustCompile(`(?i)\b(la|le|ku|kku|oda|ala|illa)\b`),
		regexp.MustCompile(`(?i)\b(kanna|di|da|mama|amma|appa|machi|machan|thambi|anna|akka)\b`),
		regexp.MustCompile(`(?i)\b(thaan|dhaan|aa|ah)\b`),
		regexp.MustCompile(`(?i)nga\b`),
		regexp.MustCompile(`(?i)\b(enaku|enakku|unaku|avanga|ivanga|neenga|naan)\b`),
	}
	tanglishSentenceEnd = regexp.MustCompile(`(?i)[.!?]\s*\b(irukku|iruken|irukanga|panren|pannunga|sollunga|vaanga|ponga)\b\s*[.!?]`)
	tanglishMixed       = regexp.MustCompile(`(?i)\b(english|health|food|exercise|sleep|water|yoga|stress)\s+(pathi|kurichu|panna|solla)\b`)

	hinglishMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(hai|hain|tha|thi|hoga|ho|kar|karo|kiya)\b`),
		regexp.MustCompile(`(?i)\b(mujhe|tum|aap|mera|meri|tera|teri|hamara|uska|unka)\b`),
		regexp.MustCompile(`(?i)\b(ka|ke|ki|ko|se|mein|tak|wala|wali)\b`),
		regexp.MustCompile(`(?i)\b(acha|accha|theek|thik|bahut|bohot|jyada|zyada|kam|ekdum|bilkul|sahi)\b`),
		regexp.MustCompile(`(?i)\b(bhai|yaar|dost|ji|beta|beti|aunty|uncle)\b`),
		regexp.MustCompile(`(?i)\b(kya|kaise|kahan|kab|kaun|kyun|kyunki)\b`),
		regexp.MustCompile(`(?i)\bho (raha|rahe|rahi|gaya|gaye|gayi) (hai|hain)\b`),
	}
	hinglishSentenceEnd = regexp.MustCompile(`(?i)[.!?]\s*\b(hai|hain|tha|hoga|karo|karenge|jaenge)\b\s*[.!?]`)
	hinglishMixed       = regexp.MustCompile(`(?i)\b(health|food|exercise|sleep|water|yoga|stress)\s+(ke|ka|ki|karo|kare|hai)\b`)
)

// IsTanglish reports whether text reads as Tamil written in Latin letters
func IsTanglish(text string) bool {
	return romanized(text, tanglishMarkers, tanglishSentenceEnd, tanglishMixed)
}

// IsHinglish reports whether text reads as Hindi written in Latin letters
func IsHinglish(text string) bool {
	return romanized(text, hinglishMarkers, hinglishSentenceEnd, hinglishMixed)
}

func romanized(text string, markers []*regexp.Regexp, sentenceEnd, mixed *regexp.Regexp) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	matched := 0
	for _, m := range markers {
		if m.MatchString(text) {
			matched++
			if matched >= minMarkers {
				return true
			}
		}
	}
	return sentenceEnd.MatchString(text) || mixed.MatchString(text)
}

// DetectLanguage returns ta or hi for native scripts, ta-en or hi-en for romanized
// Tamil and Hindi, an ISO 639-1 code when whatlanggo is confident about another
// language, and en otherwise.
func DetectLanguage(text string) string {
	switch {
	case tamilScript.MatchString(text):
		return LangTamil
	case devanagariScript.MatchString(text):
		return LangHindi
	case IsTanglish(text):
		return LangTanglish
	case IsHinglish(text):
		return LangHinglish
	}

	// short inputs give whatlanggo too little signal
	if len(strings.Fields(text)) < 4 {
		return LangEnglish
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() || info.Script == nil || info.Script == unicode.Latin {
		return LangEnglish
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return LangEnglish
}
