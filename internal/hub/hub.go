// Package hub coordinates live speaking-practice sessions: it owns the
// per-connection protocol (start, chunk, end, phonetic feedback), calls out
// to the transcription engine, scores the final attempt and fans results out
// to the connections subscribed to each session.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/siuteam/speaklab/internal/broadcast"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/registry"
	"github.com/siuteam/speaklab/internal/scoring"
	"github.com/siuteam/speaklab/internal/speech"
	"github.com/siuteam/speaklab/internal/webhook"
)

const (
	msgSessionStarted = "Speaking session started. You can now start speaking."

	webhookTimeout = 15 * time.Second
)

// Client is one connected learner: an opaque caller identity plus a way to
// deliver events back over whatever transport the connection layer uses.
type Client interface {
	CallerID() string
	Deliver(event Event)
}

type Hub struct {
	cfg      *config.Config
	engine   speech.Engine
	sessions *registry.Registry
	groups   *broadcast.Groups[Event]
	webhook  webhook.Sender

	// Chunk transcription failures are swallowed on the wire (interim
	// feedback is best effort) but counted here for observability.
	chunkFailures atomic.Int64
}

func New(cfg *config.Config, engine speech.Engine, sessions *registry.Registry, wh webhook.Sender) *Hub {
	return &Hub{
		cfg:      cfg,
		engine:   engine,
		sessions: sessions,
		groups:   broadcast.NewGroups[Event](),
		webhook:  wh,
	}
}

// StartSession creates a new active session owned by the caller, subscribes
// the caller to its event group and confirms to the caller only.
func (h *Hub) StartSession(ctx context.Context, c Client, lessonID, expectedText string) {
	s, err := h.sessions.Create(c.CallerID(), lessonID, expectedText)
	if err != nil {
		if errors.Is(err, registry.ErrSessionLimitReached) {
			slog.Warn("session limit reached", "caller_id", c.CallerID(), "limit", h.cfg.MaxActiveSessions)
			c.Deliver(ErrorEvent{Code: CodeSessionLimit, Detail: "too many active sessions, try again later"})
			return
		}
		c.Deliver(ErrorEvent{Code: CodeEngineError, Detail: "failed to start speaking session"})
		return
	}

	h.groups.Subscribe(s.ID, c)
	slog.Info("speaking session started", "session_id", s.ID, "caller_id", c.CallerID(), "lesson_id", lessonID)

	c.Deliver(SessionStarted{
		SessionID:    s.ID,
		LessonID:     lessonID,
		ExpectedText: expectedText,
		Message:      msgSessionStarted,
	})
}

// SubmitChunk transcribes one interim audio chunk and publishes the text to
// the session's group. Transcription failures are deliberately not surfaced
// to the caller; interim feedback is best effort.
func (h *Hub) SubmitChunk(ctx context.Context, c Client, sessionID string, audio []byte, contentType string) {
	if len(audio) == 0 {
		c.Deliver(ErrorEvent{Code: CodeBadInput, Detail: "empty audio chunk"})
		return
	}
	if len(audio) > h.cfg.MaxChunkBytes {
		c.Deliver(ErrorEvent{Code: CodeBadInput, Detail: fmt.Sprintf("audio chunk exceeds %d bytes", h.cfg.MaxChunkBytes)})
		return
	}
	if !h.authorize(c, sessionID) {
		return
	}

	result, err := h.engine.TranscribeChunk(ctx, audio, contentType)
	if err != nil || !result.Success {
		h.chunkFailures.Add(1)
		slog.Warn("chunk transcription failed", "session_id", sessionID, "error", err, "detail", result.ErrorDetail)
		return
	}
	if result.Text == "" {
		return
	}

	slog.Debug("chunk transcribed", "session_id", sessionID, "text", result.Text)
	h.groups.Publish(sessionID, ChunkTranscribed{
		SessionID:      sessionID,
		Text:           result.Text,
		ProcessingTime: result.ProcessingTime,
		Language:       result.Language,
		Notation:       notationFrom(result.Notation),
	})
}

// EndSession transcribes the final audio, scores it against the expected
// text and publishes the feedback to the session's group. The deactivation
// compare-and-set guarantees the final result is published at most once; a
// racing duplicate call observes an inactive session and gets an error
// event instead.
func (h *Hub) EndSession(ctx context.Context, c Client, sessionID string, finalAudio []byte, contentType, expectedText string) {
	if len(finalAudio) == 0 {
		c.Deliver(ErrorEvent{Code: CodeBadInput, Detail: "empty final audio"})
		return
	}
	s, ok := h.sessions.Get(sessionID)
	if !ok {
		c.Deliver(ErrorEvent{Code: CodeSessionNotFound, Detail: "unknown session id"})
		return
	}
	if s.OwnerID != c.CallerID() {
		c.Deliver(ErrorEvent{Code: CodeUnauthorized, Detail: "session belongs to another caller"})
		return
	}

	switch h.sessions.TryDeactivate(sessionID) {
	case registry.NotFound:
		c.Deliver(ErrorEvent{Code: CodeSessionNotFound, Detail: "unknown session id"})
		return
	case registry.AlreadyInactive:
		c.Deliver(ErrorEvent{Code: CodeSessionNotActive, Detail: "session already ended"})
		return
	case registry.Deactivated:
	}

	if expectedText == "" {
		expectedText = s.ExpectedText
	}

	result, err := h.engine.TranscribeFile(ctx, finalAudio, contentType)
	if err != nil || !result.Success {
		detail := result.ErrorDetail
		if detail == "" {
			detail = "failed to process final audio"
		}
		slog.Error("final transcription failed", "session_id", sessionID, "error", err, "detail", detail)
		h.groups.Publish(sessionID, ErrorEvent{Code: errorCodeFor(err), Detail: detail})
		h.cleanupSession(sessionID)
		return
	}

	score := scoring.Similarity(result.Text, expectedText)
	suggestions := scoring.Suggestions(score, result.Text == "")

	ended := SessionEnded{
		SessionID:       sessionID,
		TranscribedText: result.Text,
		ExpectedText:    expectedText,
		ConfidenceScore: score,
		ProcessingTime:  result.ProcessingTime,
		Notation:        notationFrom(result.Notation),
		Suggestions:     suggestions,
	}
	slog.Info("speaking session ended", "session_id", sessionID, "confidence_score", score)
	h.groups.Publish(sessionID, ended)

	go h.pushFeedbackWebhook(s, ended)

	h.cleanupSession(sessionID)
}

// PhoneticFeedback converts text to phonetic notation and replies to the
// caller only. Stateless; not tied to any session.
func (h *Hub) PhoneticFeedback(ctx context.Context, c Client, text string) {
	if strings.TrimSpace(text) == "" {
		c.Deliver(ErrorEvent{Code: CodeBadInput, Detail: "empty text"})
		return
	}

	result, err := h.engine.TextToPhonetic(ctx, text)
	if err != nil {
		slog.Warn("phonetic conversion failed", "error", err)
		c.Deliver(ErrorEvent{Code: errorCodeFor(err), Detail: "failed to generate pronunciation feedback"})
		return
	}
	if !result.Success {
		c.Deliver(ErrorEvent{Code: CodeEngineError, Detail: result.ErrorDetail})
		return
	}

	c.Deliver(PhoneticFeedback{
		OriginalText: text,
		Notation:     notationFrom(result.Notation),
	})
}

// HandleDisconnect discards every session the departing caller owned and
// removes the connection from all groups. Cleanup only; no events are
// published since sessions are single-owner.
func (h *Hub) HandleDisconnect(c Client) {
	removed := h.sessions.RemoveAllOwnedBy(c.CallerID())
	h.groups.DropListener(c)
	for _, id := range removed {
		h.groups.DropGroup(id)
	}
	if len(removed) > 0 {
		slog.Info("cleaned up sessions on disconnect", "caller_id", c.CallerID(), "removed", len(removed))
	}
}

// ChunkFailureCount reports how many interim chunk transcriptions have
// failed since startup.
func (h *Hub) ChunkFailureCount() int64 {
	return h.chunkFailures.Load()
}

func (h *Hub) authorize(c Client, sessionID string) bool {
	s, ok := h.sessions.Get(sessionID)
	if !ok {
		c.Deliver(ErrorEvent{Code: CodeSessionNotFound, Detail: "unknown session id"})
		return false
	}
	if !s.Active {
		c.Deliver(ErrorEvent{Code: CodeSessionNotActive, Detail: "session already ended"})
		return false
	}
	if s.OwnerID != c.CallerID() {
		c.Deliver(ErrorEvent{Code: CodeUnauthorized, Detail: "session belongs to another caller"})
		return false
	}
	return true
}

func (h *Hub) cleanupSession(sessionID string) {
	h.groups.DropGroup(sessionID)
	h.sessions.Remove(sessionID)
}

func (h *Hub) pushFeedbackWebhook(s registry.Session, ended SessionEnded) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	err := h.webhook.SendFeedback(ctx, webhook.FeedbackPayload{
		SessionID:       ended.SessionID,
		OwnerID:         s.OwnerID,
		LessonID:        s.LessonID,
		TranscribedText: ended.TranscribedText,
		ExpectedText:    ended.ExpectedText,
		ConfidenceScore: ended.ConfidenceScore,
		ProcessingTime:  ended.ProcessingTime,
		Suggestions:     ended.Suggestions,
	})
	if err != nil {
		slog.Error("failed to push feedback webhook", "error", err, "session_id", ended.SessionID)
	}
}

func errorCodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeEngineError
	case errors.Is(err, speech.ErrTimeout):
		return CodeEngineTimeout
	case errors.Is(err, speech.ErrMalformedResponse):
		return CodeEngineMalformed
	case errors.Is(err, speech.ErrUnreachable):
		return CodeEngineUnreachable
	}
	var remoteErr *speech.RemoteError
	if errors.As(err, &remoteErr) {
		return CodeEngineError
	}
	return CodeEngineError
}
