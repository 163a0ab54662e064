package models

import (
	"strings"
	"time"
)

// Message is one completed chat turn
type Message struct {
	Query            string    `bson:"query" json:"query"`
	Answer           string    `bson:"answer" json:"answer"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`
	Sentiment        string    `bson:"sentiment,omitempty" json:"sentiment,omitempty"`
	DetectedLanguage string    `bson:"detectedLanguage,omitempty" json:"detectedLanguage,omitempty"`
}

// Session is a bounded conversation owned by one user context
type Session struct {
	ID          string     `bson:"_id" json:"id"`
	UserContext string     `bson:"userContext" json:"-"`
	Messages    []Message  `bson:"messages" json:"messages"`
	IsActive    bool       `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	Timestamp   time.Time  `bson:"timestamp" json:"timestamp"` // last activity
	ArchivedAt  *time.Time `bson:"archivedAt,omitempty" json:"archivedAt,omitempty"`
	Duration    float64    `bson:"duration" json:"duration"` // minutes between first and last message
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	if s.ArchivedAt != nil {
		archivedAt := *s.ArchivedAt
		out.ArchivedAt = &archivedAt
	}
	return &out
}

// RecomputeDuration refreshes Duration from the first and last message timestamps
func (s *Session) RecomputeDuration() {
	if len(s.Messages) < 2 {
		s.Duration = 0
		return
	}
	first := s.Messages[0].Timestamp
	last := s.Messages[len(s.Messages)-1].Timestamp
	s.Duration = last.Sub(first).Minutes()
}

// HistoryItem is what the history endpoint returns: the full session plus its summary fields
type HistoryItem struct {
	*Session
	MessageCount int    `json:"messageCount"`
	Preview      string `json:"preview"`
}

const previewLength = 80

// ToHistoryItem wraps the session for the history listing
func (s *Session) ToHistoryItem() HistoryItem {
	return HistoryItem{
		Session:      s,
		MessageCount: len(s.Messages),
		Preview:      s.preview(),
	}
}

func (s *Session) preview() string {
	if len(s.Messages) == 0 {
		return ""
	}
	q := strings.TrimSpace(s.Messages[0].Query)
	runes := []rune(q)
	if len(runes) <= previewLength {
		return q
	}
	return string(runes[:previewLength]) + "..."
}

// ActiveSessionResponse is returned by the active-session endpoint.
// An empty Messages slice (and no ID) means there is no active session.
type ActiveSessionResponse struct {
	ID        string    `json:"id,omitempty"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	Reply            string `json:"reply"`
	SessionID        string `json:"sessionId,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Sentiment        string `json:"sentiment,omitempty"`
	ReplyHTML        string `json:"replyHtml,omitempty"`
}
