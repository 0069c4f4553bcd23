// Package api is the client for the Alpha Smart backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alphaboutique/config"
	"alphaboutique/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNetwork wraps transport failures: the backend could not be reached or
// the response could not be read.
var ErrNetwork = errors.New("backend unreachable")

// Error is a non-2xx response. Detail carries the backend's "detail" field.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Client calls the backend. Every request carries the tunnel bypass header.
type Client struct {
	baseURL      string
	bypassHeader string
	httpClient   *http.Client
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewClient(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		bypassHeader: cfg.BypassHeader,
		httpClient:   &http.Client{Timeout: cfg.APITimeout},
		logger:       logger,
		metrics:      m,
	}
}

// do sends one request. endpoint is the metrics label; path may include a query.
func (c *Client) do(ctx context.Context, method, endpoint, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(c.bypassHeader, "true")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.APIRequest(endpoint, 0, time.Since(start))
		c.logger.Warn("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err))
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.APIRequest(endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrNetwork, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Detail: extractDetail(data)}
		c.logger.Info("Backend rejected request",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail))
		return apiErr
	}

	c.logger.Debug("Backend request",
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// extractDetail pulls "detail" out of an error body. FastAPI validation
// errors carry a list of {msg} objects instead of a string.
func extractDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(body.Detail)
}

// DetailOf returns the backend detail of err, or fallback when err is not a backend rejection
func DetailOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
