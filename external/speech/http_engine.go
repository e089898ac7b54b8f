package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/siuteam/speaklab/internal/speech"
)

type HTTPEngineConfig struct {
	BaseURL         string
	FileTimeout     time.Duration
	ChunkTimeout    time.Duration
	PhoneticTimeout time.Duration
	HealthTimeout   time.Duration
}

// HTTPEngine talks to the transcription engine over its JSON/multipart HTTP
// API. Every call carries its own timeout; failures map onto the typed
// errors in internal/speech and never bubble up as anything else.
type HTTPEngine struct {
	baseURL         string
	fileTimeout     time.Duration
	chunkTimeout    time.Duration
	phoneticTimeout time.Duration
	healthTimeout   time.Duration
	client          *http.Client
}

func NewHTTPEngine(cfg HTTPEngineConfig) speech.Engine {
	return &HTTPEngine{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		fileTimeout:     cfg.FileTimeout,
		chunkTimeout:    cfg.ChunkTimeout,
		phoneticTimeout: cfg.PhoneticTimeout,
		healthTimeout:   cfg.HealthTimeout,
		client:          &http.Client{},
	}
}

type notationDTO struct {
	G2pIPA     string `json:"g2p_ipa"`
	EpitranIPA string `json:"epitran_ipa"`
	Arpabet    string `json:"arpabet"`
	Success    bool   `json:"success"`
	Error      string `json:"error"`
}

type segmentDTO struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcriptionDTO struct {
	Success             bool         `json:"success"`
	Filename            string       `json:"filename"`
	Text                string       `json:"text"`
	Language            string       `json:"language"`
	LanguageProbability float64      `json:"language_probability"`
	Duration            float64      `json:"duration"`
	ProcessingTime      float64      `json:"processing_time"`
	Segments            []segmentDTO `json:"segments"`
	Model               string       `json:"model"`
	Ipa                 notationDTO  `json:"ipa"`
	Error               string       `json:"error"`
}

type textToIpaDTO struct {
	Success      bool        `json:"success"`
	OriginalText string      `json:"original_text"`
	Ipa          notationDTO `json:"ipa"`
	Error        string      `json:"error"`
}

func (e *HTTPEngine) TranscribeFile(ctx context.Context, audio []byte, contentType string) (speech.Result, error) {
	return e.postAudio(ctx, "/transcribe", "file", "final.wav", contentType, audio, e.fileTimeout)
}

func (e *HTTPEngine) TranscribeChunk(ctx context.Context, audio []byte, contentType string) (speech.Result, error) {
	return e.postAudio(ctx, "/transcribe_chunk", "chunk", "chunk.wav", contentType, audio, e.chunkTimeout)
}

func (e *HTTPEngine) postAudio(ctx context.Context, path, field, filename, contentType string, audio []byte, timeout time.Duration) (speech.Result, error) {
	body, formContentType, err := buildMultipartBody(field, filename, contentType, audio)
	if err != nil {
		return speech.Result{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.baseURL+path, body)
	if err != nil {
		return speech.Result{}, err
	}
	req.Header.Set("Content-Type", formContentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return speech.Result{}, classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isHTTPSuccessStatus(resp.StatusCode) {
		return speech.Result{}, &speech.RemoteError{Status: resp.StatusCode}
	}

	var dto transcriptionDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return speech.Result{}, fmt.Errorf("%w: %v", speech.ErrMalformedResponse, err)
	}

	result := speech.Result{
		Success:             dto.Success,
		Text:                strings.TrimSpace(dto.Text),
		Language:            dto.Language,
		LanguageProbability: dto.LanguageProbability,
		Duration:            dto.Duration,
		ProcessingTime:      dto.ProcessingTime,
		Notation:            toNotation(dto.Ipa),
		ErrorDetail:         dto.Error,
	}
	for _, seg := range dto.Segments {
		result.Segments = append(result.Segments, speech.Segment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	return result, nil
}

func (e *HTTPEngine) TextToPhonetic(ctx context.Context, text string) (speech.PhoneticResult, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return speech.PhoneticResult{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.phoneticTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.baseURL+"/text_to_ipa", bytes.NewReader(payload))
	if err != nil {
		return speech.PhoneticResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return speech.PhoneticResult{}, classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isHTTPSuccessStatus(resp.StatusCode) {
		return speech.PhoneticResult{}, &speech.RemoteError{Status: resp.StatusCode}
	}

	var dto textToIpaDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return speech.PhoneticResult{}, fmt.Errorf("%w: %v", speech.ErrMalformedResponse, err)
	}

	return speech.PhoneticResult{
		Success:      dto.Success,
		OriginalText: dto.OriginalText,
		Notation:     toNotation(dto.Ipa),
		ErrorDetail:  dto.Error,
	}, nil
}

// CheckHealth reports whether the engine answers its health endpoint with a
// 2xx. It has no side effects and never returns an error.
func (e *HTTPEngine) CheckHealth(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, e.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		slog.Debug("speech engine health check failed", "error", err)
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	return isHTTPSuccessStatus(resp.StatusCode)
}

func buildMultipartBody(field, filename, contentType string, audio []byte) (*bytes.Buffer, string, error) {
	if contentType == "" {
		contentType = "audio/wav"
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", speech.ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", speech.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", speech.ErrUnreachable, err)
}

func toNotation(dto notationDTO) speech.Notation {
	return speech.Notation{
		G2pIPA:     dto.G2pIPA,
		EpitranIPA: dto.EpitranIPA,
		Arpabet:    dto.Arpabet,
	}
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
