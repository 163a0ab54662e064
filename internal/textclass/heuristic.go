// Package textclass tags user queries with a language code and a sentiment label.
package textclass

// Heuristic is the default classifier used by the chat responder
type Heuristic struct{}

func (Heuristic) ClassifyLanguage(text string) string { return DetectLanguage(text) }

func (Heuristic) ClassifySentiment(text string) string { return AnalyzeSentiment(text) }
