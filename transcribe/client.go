// Package transcribe is the client for the local speech-to-text service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/richinex/docvoice/model"
)

// Defaults for the transcription service that runs next to the app.
const (
	DefaultURL     = "http://127.0.0.1:5001/transcribe"
	DefaultTimeout = 30 * time.Second
)

// Result is a successful transcription.
type Result struct {
	Text           string
	ProcessingTime float64 // seconds, as reported by the service
}

// Client posts recordings to the transcription service.
type Client struct {
	url     string
	client  *http.Client
	verbose bool
}

// Option configures a Client.
type Option func(*Client)

// WithVerbose logs each request at debug level.
func WithVerbose(v bool) Option {
	return func(c *Client) { c.verbose = v }
}

// NewClient creates a client for url. Empty url and non-positive timeout
// take the defaults.
func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

type response struct {
	Success        bool    `json:"success"`
	Transcription  string  `json:"transcription"`
	ProcessingTime float64 `json:"processing_time"`
	Error          string  `json:"error"`
}

// Transcribe sends wav as the "audio" file part and returns the transcript.
// Timeouts wrap model.ErrTranscriptionTimeout; every other failure wraps
// model.ErrTranscriptionService.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (Result, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return Result{}, fmt.Errorf("%w: building request: %w", model.ErrTranscriptionService, err)
	}
	if _, err := part.Write(wav); err != nil {
		return Result{}, fmt.Errorf("%w: building request: %w", model.ErrTranscriptionService, err)
	}
	if err := form.Close(); err != nil {
		return Result{}, fmt.Errorf("%w: building request: %w", model.ErrTranscriptionService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: creating request: %w", model.ErrTranscriptionService, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	if c.verbose {
		log.Printf("[DEBUG] Posting %d bytes of audio to %s", len(wav), c.url)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{}, fmt.Errorf("%w: no reply within %s", model.ErrTranscriptionTimeout, c.client.Timeout)
		}
		return Result{}, fmt.Errorf("%w: calling %s: %w", model.ErrTranscriptionService, c.url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return Result{}, fmt.Errorf("%w: reading reply: %w", model.ErrTranscriptionTimeout, err)
		}
		return Result{}, fmt.Errorf("%w: reading reply: %w", model.ErrTranscriptionService, err)
	}

	var decoded response
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(decoded.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return Result{}, fmt.Errorf("%w: status %d: %s", model.ErrTranscriptionService, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("%w: decoding reply: %w", model.ErrTranscriptionService, decodeErr)
	}
	if !decoded.Success {
		return Result{}, fmt.Errorf("%w: %s", model.ErrTranscriptionService, decoded.Error)
	}

	log.Printf("[INFO] Transcribed %d bytes in %.2fs", len(wav), decoded.ProcessingTime)
	return Result{Text: strings.TrimSpace(decoded.Transcription), ProcessingTime: decoded.ProcessingTime}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
