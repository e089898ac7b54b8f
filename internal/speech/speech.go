// Package speech defines the contract with the external transcription and
// phonetic-analysis engine. Implementations live under external/speech.
package speech

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds every engine call can report. The coordinator maps these to
// scoped error events; they must never escape as panics.
var (
	ErrUnreachable       = errors.New("speech engine unreachable")
	ErrTimeout           = errors.New("speech engine request timed out")
	ErrMalformedResponse = errors.New("speech engine returned a malformed response")
)

// RemoteError reports a non-2xx status from the engine.
type RemoteError struct {
	Status int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("speech engine returned status %d", e.Status)
}

// Notation carries the phonetic representations of an utterance. The engine
// produces IPA via two backends plus the ARPAbet symbols it derived them
// from; all three are passed through to the learner.
type Notation struct {
	G2pIPA     string
	EpitranIPA string
	Arpabet    string
}

// Segment is one timed span of a full-file transcription.
type Segment struct {
	ID    int
	Start float64
	End   float64
	Text  string
}

// Result is the outcome of a file or chunk transcription.
type Result struct {
	Success             bool
	Text                string
	Language            string
	LanguageProbability float64
	Duration            float64
	ProcessingTime      float64
	Segments            []Segment
	Notation            Notation
	ErrorDetail         string
}

// PhoneticResult is the outcome of a text-to-phonetic conversion.
type PhoneticResult struct {
	Success      bool
	OriginalText string
	Notation     Notation
	ErrorDetail  string
}

// Engine is the transcription/phonetic engine boundary. Calls block for at
// most the configured per-operation timeout; failures come back as one of
// the typed errors above (possibly wrapped).
type Engine interface {
	TranscribeFile(ctx context.Context, audio []byte, contentType string) (Result, error)
	TranscribeChunk(ctx context.Context, audio []byte, contentType string) (Result, error)
	TextToPhonetic(ctx context.Context, text string) (PhoneticResult, error)
	CheckHealth(ctx context.Context) bool
}
