package services

import (
	"context"
	"log"
	"strings"
	"time"

	"healthify/internal/logging"
	"healthify/internal/models"
	"healthify/internal/rag"
	"healthify/internal/session"
)

// EmptyQueryReply is returned for a blank query without touching the session
const EmptyQueryReply = "I didn't understand that."

// Answerer produces a reply for one query
type Answerer interface {
	Answer(ctx context.Context, query string) rag.Result
}

// ChatService ties the responder to the session lifecycle for one chat turn
type ChatService struct {
	answerer   Answerer
	sessions   *session.Manager
	metrics    *Metrics
	renderHTML bool
	now        func() time.Time
}

// NewChatService creates a chat service
func NewChatService(answerer Answerer, sessions *session.Manager, metrics *Metrics) *ChatService {
	return &ChatService{
		answerer: answerer,
		sessions: sessions,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetRenderHTML enables the replyHtml field in chat responses
func (s *ChatService) SetRenderHTML(enabled bool) {
	s.renderHTML = enabled
}

// Chat answers query for userCtx and records the turn in the active session.
// Provider failures never surface as errors: the reply is the safety fallback.
// A failure to persist the turn is logged and the reply is still returned.
func (s *ChatService) Chat(ctx context.Context, userCtx, query string) *models.ChatResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.ChatResponse{Reply: EmptyQueryReply}
	}

	start := s.now()
	s.metrics.RecordChatRequest()
	defer func() {
		s.metrics.RecordChatLatency(time.Since(start).Seconds())
	}()

	log.Printf("👤 [CHAT] Query from %s (%d chars)", userCtx, len(query))

	result := s.answerer.Answer(ctx, query)
	if !result.OK() {
		s.metrics.RecordFallback(string(result.FaultKind))
	}

	resp := &models.ChatResponse{
		Reply:            result.Text,
		DetectedLanguage: result.Language,
		Sentiment:        result.Sentiment,
	}

	if s.renderHTML {
		if html, err := rag.RenderHTML(result.Text); err == nil {
			resp.ReplyHTML = html
		}
	}

	sess, err := s.sessions.AppendTurn(ctx, userCtx, models.Message{
		Query:            query,
		Answer:           result.Text,
		Sentiment:        result.Sentiment,
		DetectedLanguage: result.Language,
	})
	if err != nil {
		logging.WithRequest(userCtx, "").Error("failed to record chat turn", "error", err)
		return resp
	}
	resp.SessionID = sess.ID

	logger := logging.WithRequest(userCtx, sess.ID)
	if result.OK() {
		logger.Info("chat turn recorded",
			"simple", result.Simple,
			"language", result.Language,
			"sentiment", result.Sentiment,
			"sources", len(result.Sources),
			"messages", len(sess.Messages),
		)
	} else {
		logger.Warn("chat turn answered with fallback",
			"fault_kind", string(result.FaultKind),
			"error", result.Fault,
		)
	}
	return resp
}
