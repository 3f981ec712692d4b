package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultProcessingTimeout = 60 * time.Second
	maxProcessingErrorBody   = 64 << 10
)

// HTTPProcessingClientDeps wires dependencies for the upstream processing client.
type HTTPProcessingClientDeps struct {
	Endpoint   string
	AuthToken  string
	HTTPClient *http.Client
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type httpProcessingClient struct {
	endpoint  string
	authToken string
	client    *http.Client
	logger    func(context.Context, string, map[string]any)
}

// NewHTTPProcessingClient constructs a ProcessingClient talking to the hosted
// face-swap processing service.
func NewHTTPProcessingClient(deps HTTPProcessingClientDeps) (ProcessingClient, error) {
	endpoint := strings.TrimSpace(deps.Endpoint)
	if endpoint == "" {
		return nil, errors.New("processing client: endpoint is required")
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultProcessingTimeout}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &httpProcessingClient{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(deps.AuthToken),
		client:    client,
		logger:    logger,
	}, nil
}

func (c *httpProcessingClient) ProcessImage(ctx context.Context, req ProcessImageRequest) (ProcessImageResult, error) {
	if len(req.Data) == 0 {
		return ProcessImageResult{}, &ProcessingError{Kind: ProcessingErrorUnknown, Message: "empty image payload"}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = "photo.jpg"
	}
	part, err := writer.CreateFormFile("image", fileName)
	if err != nil {
		return ProcessImageResult{}, fmt.Errorf("processing: build request: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return ProcessImageResult{}, fmt.Errorf("processing: build request: %w", err)
	}
	if req.Concern.Valid() {
		if err := writer.WriteField("background_color", req.Concern.BackgroundColor()); err != nil {
			return ProcessImageResult{}, fmt.Errorf("processing: build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return ProcessImageResult{}, fmt.Errorf("processing: build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return ProcessImageResult{}, fmt.Errorf("processing: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ProcessImageResult{}, err
		}
		return ProcessImageResult{}, &ProcessingError{
			Kind:    ProcessingErrorUpstreamDown,
			Message: "processing service unreachable",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxProcessingErrorBody))
		procErr := normalizeProcessingError(resp.StatusCode, raw)
		c.logger(ctx, "processing.upstream_error", map[string]any{
			"status": resp.StatusCode,
			"kind":   string(procErr.Kind),
		})
		return ProcessImageResult{}, procErr
	}

	var payload struct {
		ImageURL string `json:"image_url"`
		URL      string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ProcessImageResult{}, &ProcessingError{
			Kind:    ProcessingErrorUnknown,
			Message: "malformed processing response",
			Status:  resp.StatusCode,
		}
	}
	imageURL := strings.TrimSpace(payload.ImageURL)
	if imageURL == "" {
		imageURL = strings.TrimSpace(payload.URL)
	}
	if imageURL == "" {
		return ProcessImageResult{}, &ProcessingError{
			Kind:    ProcessingErrorUnknown,
			Message: "processing response missing image url",
			Status:  resp.StatusCode,
		}
	}
	return ProcessImageResult{ImageURL: imageURL}, nil
}

// normalizeProcessingError folds the upstream service's inconsistent error
// payloads into the closed ProcessingErrorKind set. Observed shapes:
// {"detail": "..."}, {"message": "..."}, {"error": "..."}, a bare JSON
// string, and an array of strings.
func normalizeProcessingError(status int, raw []byte) *ProcessingError {
	message := extractUpstreamMessage(raw)
	return &ProcessingError{
		Kind:    classifyProcessingFailure(status, message),
		Message: message,
		Status:  status,
	}
}

func extractUpstreamMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "processing failed"
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			value, ok := envelope[key]
			if !ok {
				continue
			}
			if msg := decodeMessageValue(value); msg != "" {
				return msg
			}
		}
		return "processing failed"
	}

	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		if msg := strings.TrimSpace(single); msg != "" {
			return msg
		}
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err == nil {
		var parts []string
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	// Non-JSON bodies are surfaced as-is, truncated to something loggable.
	msg := strings.TrimSpace(string(trimmed))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if msg == "" {
		msg = "processing failed"
	}
	return msg
}

func decodeMessageValue(value json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(value, &msg); err == nil {
		return strings.TrimSpace(msg)
	}
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		var parts []string
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func classifyProcessingFailure(status int, message string) ProcessingErrorKind {
	lowered := strings.ToLower(message)
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return ProcessingErrorTooLarge
	case strings.Contains(lowered, "unsupported") || strings.Contains(lowered, "format"):
		return ProcessingErrorUnsupportedFormat
	case strings.Contains(lowered, "face"):
		return ProcessingErrorNoFaceDetected
	case strings.Contains(lowered, "too large") || strings.Contains(lowered, "size"):
		return ProcessingErrorTooLarge
	case status >= 500 || status == http.StatusTooManyRequests:
		return ProcessingErrorUpstreamDown
	default:
		return ProcessingErrorUnknown
	}
}
