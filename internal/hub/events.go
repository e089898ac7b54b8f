package hub

import "github.com/siuteam/speaklab/internal/speech"

// Event is anything the hub publishes back to connections. EventName is the
// wire-level event kind the gateway puts in its outbound envelope.
type Event interface {
	EventName() string
}

// ErrorCode identifies why a request was rejected or failed.
type ErrorCode string

const (
	CodeSessionNotFound   ErrorCode = "session_not_found"
	CodeSessionNotActive  ErrorCode = "session_not_active"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeBadInput          ErrorCode = "bad_input"
	CodeSessionLimit      ErrorCode = "session_limit_reached"
	CodeEngineUnreachable ErrorCode = "engine_unreachable"
	CodeEngineError       ErrorCode = "engine_error"
	CodeEngineTimeout     ErrorCode = "engine_timeout"
	CodeEngineMalformed   ErrorCode = "engine_malformed_response"
)

// Notation mirrors speech.Notation with the wire field names clients expect.
type Notation struct {
	G2pIPA     string `json:"g2p_ipa"`
	EpitranIPA string `json:"epitran_ipa"`
	Arpabet    string `json:"arpabet"`
}

func notationFrom(n speech.Notation) Notation {
	return Notation{
		G2pIPA:     n.G2pIPA,
		EpitranIPA: n.EpitranIPA,
		Arpabet:    n.Arpabet,
	}
}

type SessionStarted struct {
	SessionID    string `json:"session_id"`
	LessonID     string `json:"lesson_id"`
	ExpectedText string `json:"expected_text"`
	Message      string `json:"message"`
}

func (SessionStarted) EventName() string { return "session_started" }

type ChunkTranscribed struct {
	SessionID      string   `json:"session_id"`
	Text           string   `json:"text"`
	ProcessingTime float64  `json:"processing_time"`
	Language       string   `json:"language"`
	Notation       Notation `json:"notation"`
}

func (ChunkTranscribed) EventName() string { return "chunk_transcribed" }

// SessionEnded carries the final feedback for a session. Published exactly
// once per session.
type SessionEnded struct {
	SessionID       string   `json:"session_id"`
	TranscribedText string   `json:"transcribed_text"`
	ExpectedText    string   `json:"expected_text"`
	ConfidenceScore float64  `json:"confidence_score"`
	ProcessingTime  float64  `json:"processing_time"`
	Notation        Notation `json:"notation"`
	Suggestions     []string `json:"suggestions"`
}

func (SessionEnded) EventName() string { return "session_ended" }

type PhoneticFeedback struct {
	OriginalText string   `json:"original_text"`
	Notation     Notation `json:"notation"`
}

func (PhoneticFeedback) EventName() string { return "phonetic_feedback" }

type ErrorEvent struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail"`
}

func (ErrorEvent) EventName() string { return "error" }
