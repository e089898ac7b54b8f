package webhook

import "context"

// FeedbackPayload is the JSON document pushed to the configured webhook when
// a speaking session produces its final feedback. Delivery-only; nothing is
// stored on this side.
type FeedbackPayload struct {
	SessionID       string   `json:"session_id"`
	OwnerID         string   `json:"owner_id"`
	LessonID        string   `json:"lesson_id"`
	TranscribedText string   `json:"transcribed_text"`
	ExpectedText    string   `json:"expected_text"`
	ConfidenceScore float64  `json:"confidence_score"`
	ProcessingTime  float64  `json:"processing_time"`
	Suggestions     []string `json:"suggestions"`
}

type Sender interface {
	SendFeedback(ctx context.Context, payload FeedbackPayload) error
}
