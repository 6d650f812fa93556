// Package ml is the client for the external inference collaborator that
// analyzes webcam frames for suspicious behavior. The collaborator is consumed
// over HTTP; this service never interprets images itself.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	checkFacePath  = "/ml/check_face"
	defaultTimeout = 10 * time.Second
)

var (
	// ErrMalformedResponse marks a payload that does not satisfy the response
	// schema; it is surfaced as an upstream failure, never propagated as-is.
	ErrMalformedResponse = errors.New("inference service returned a malformed response")
	// ErrUnavailable marks transport failures and non-2xx statuses.
	ErrUnavailable = errors.New("inference service unavailable")
)

// Frame is one captured webcam image.
type Frame struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is the validated response schema of the collaborator.
type Result struct {
	CheatingScore  float64  `json:"cheating_score"`
	MobileDetected bool     `json:"mobile_detected"`
	Message        string   `json:"message"`
	Issues         []string `json:"issues,omitempty"`
}

// Client analyzes a single frame. Implementations must honor ctx cancellation.
type Client interface {
	CheckFrame(ctx context.Context, frame Frame) (*Result, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CheckFrame(ctx context.Context, frame Frame) (*Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, frame.Filename))
	header.Set("Content-Type", frame.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(frame.Data); err != nil {
		return nil, fmt.Errorf("failed to write frame data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkFacePath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return decodeResult(payload)
}

// decodeResult validates the collaborator's schema before any field is used.
func decodeResult(payload []byte) (*Result, error) {
	var raw struct {
		CheatingScore  *float64 `json:"cheating_score"`
		MobileDetected *bool    `json:"mobile_detected"`
		Message        string   `json:"message"`
		Issues         []string `json:"issues"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.CheatingScore == nil || raw.MobileDetected == nil {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedResponse)
	}
	if *raw.CheatingScore < 0 || *raw.CheatingScore > 100 {
		return nil, fmt.Errorf("%w: cheating_score %v out of range", ErrMalformedResponse, *raw.CheatingScore)
	}

	return &Result{
		CheatingScore:  *raw.CheatingScore,
		MobileDetected: *raw.MobileDetected,
		Message:        raw.Message,
		Issues:         raw.Issues,
	}, nil
}
