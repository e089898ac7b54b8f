package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/hub"
	"github.com/siuteam/speaklab/internal/registry"
	"github.com/siuteam/speaklab/internal/speech"
	"github.com/siuteam/speaklab/internal/webhook"
)

type stubEngine struct {
	healthy     bool
	chunkResult speech.Result
	fileResult  speech.Result
}

func (e *stubEngine) TranscribeFile(ctx context.Context, audio []byte, contentType string) (speech.Result, error) {
	return e.fileResult, nil
}

func (e *stubEngine) TranscribeChunk(ctx context.Context, audio []byte, contentType string) (speech.Result, error) {
	return e.chunkResult, nil
}

func (e *stubEngine) TextToPhonetic(ctx context.Context, text string) (speech.PhoneticResult, error) {
	return speech.PhoneticResult{Success: true, OriginalText: text}, nil
}

func (e *stubEngine) CheckHealth(ctx context.Context) bool {
	return e.healthy
}

type stubWebhook struct{}

func (stubWebhook) SendFeedback(ctx context.Context, payload webhook.FeedbackPayload) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                   "test",
		ListenAddr:            ":0",
		SpeechEngineBaseURL:   "http://localhost:9999",
		SpeechFileTimeout:     time.Minute,
		SpeechChunkTimeout:    10 * time.Second,
		SpeechPhoneticTimeout: 10 * time.Second,
		SpeechHealthTimeout:   5 * time.Second,
		MaxActiveSessions:     16,
		MaxChunkBytes:         1 << 20,
	}
}

func newTestServer(t *testing.T, engine *stubEngine) *httptest.Server {
	t.Helper()
	cfg := testConfig()
	h := hub.New(cfg, engine, registry.New(cfg.MaxActiveSessions), stubWebhook{})
	srv := httptest.NewServer(NewServer(cfg, h, engine).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, callerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/speaking"
	header := http.Header{}
	if callerID != "" {
		header.Set("X-Caller-ID", callerID)
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	if err := ws.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	return env.Event, env.Data
}

func sendFrame(t *testing.T, ws *websocket.Conn, frame map[string]any) {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("failed to marshal frame: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
}

func TestSpeaking_RejectsMissingCallerID(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: true})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/speaking"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail without caller identity")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestSpeaking_AcceptsCallerIDQueryParam(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: true})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/speaking?caller_id=learner-7"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial with query param identity: %v", err)
	}
	defer ws.Close()

	sendFrame(t, ws, map[string]any{"action": "start_session", "lesson_id": "l1", "expected_text": "hello"})
	event, _ := readEnvelope(t, ws)
	if event != "session_started" {
		t.Fatalf("expected session_started, got %q", event)
	}
}

func TestSpeaking_StartSessionRoundTrip(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: true})
	ws := dial(t, srv, "learner-1")

	sendFrame(t, ws, map[string]any{
		"action":        "start_session",
		"lesson_id":     "lesson-42",
		"expected_text": "the quick brown fox",
	})

	event, data := readEnvelope(t, ws)
	if event != "session_started" {
		t.Fatalf("expected session_started, got %q", event)
	}
	var started struct {
		SessionID    string `json:"session_id"`
		LessonID     string `json:"lesson_id"`
		ExpectedText string `json:"expected_text"`
	}
	if err := json.Unmarshal(data, &started); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if started.SessionID == "" {
		t.Fatal("expected non-empty session id")
	}
	if started.LessonID != "lesson-42" || started.ExpectedText != "the quick brown fox" {
		t.Fatalf("unexpected session_started payload: %+v", started)
	}
}

func TestSpeaking_ChunkRoundTrip(t *testing.T) {
	engine := &stubEngine{
		healthy:     true,
		chunkResult: speech.Result{Success: true, Text: "hello there"},
	}
	srv := newTestServer(t, engine)
	ws := dial(t, srv, "learner-1")

	sendFrame(t, ws, map[string]any{"action": "start_session", "lesson_id": "l1", "expected_text": "hello there"})
	event, data := readEnvelope(t, ws)
	if event != "session_started" {
		t.Fatalf("expected session_started, got %q", event)
	}
	var started struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(data, &started); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}

	sendFrame(t, ws, map[string]any{
		"action":     "submit_chunk",
		"session_id": started.SessionID,
		"audio":      base64.StdEncoding.EncodeToString([]byte("fake audio")),
	})

	event, data = readEnvelope(t, ws)
	if event != "chunk_transcribed" {
		t.Fatalf("expected chunk_transcribed, got %q", event)
	}
	var chunk struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &chunk); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if chunk.Text != "hello there" {
		t.Fatalf("expected transcribed text, got %q", chunk.Text)
	}
}

func TestSpeaking_UnknownActionReturnsError(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: true})
	ws := dial(t, srv, "learner-1")

	sendFrame(t, ws, map[string]any{"action": "dance"})

	event, data := readEnvelope(t, ws)
	if event != "error" {
		t.Fatalf("expected error event, got %q", event)
	}
	var errEvent struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &errEvent); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if errEvent.Code != string(hub.CodeBadInput) {
		t.Fatalf("expected bad_input, got %q", errEvent.Code)
	}
}

func TestSpeaking_MalformedFrameReturnsError(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: true})
	ws := dial(t, srv, "learner-1")

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}

	event, _ := readEnvelope(t, ws)
	if event != "error" {
		t.Fatalf("expected error event, got %q", event)
	}
}

func TestHealthz_Healthy(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: true})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to request healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHealthz_Degraded(t *testing.T) {
	srv := newTestServer(t, &stubEngine{healthy: false})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to request healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
