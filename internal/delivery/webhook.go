package delivery

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebhookConfig configures a WebhookSink
type WebhookConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	Burst      int
	MaxRetries int
}

// WebhookSink forwards notifications to a push gateway over HTTP.
// Outbound calls are rate limited and retried with exponential backoff.
type WebhookSink struct {
	endpoint   string
	token      string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NewWebhookSink creates a new WebhookSink
func NewWebhookSink(cfg WebhookConfig, logger *zap.Logger) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid webhook URL %q", cfg.URL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	return &WebhookSink{
		endpoint:   strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		baseDelay:  500 * time.Millisecond,
	}, nil
}

type deliverResponse struct {
	DeliveryID string `json:"delivery_id"`
}

// statusError is a non-2xx response from the gateway
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("push gateway returned status %d: %s", e.status, e.body)
}

// Deliver posts the request to the gateway and returns the gateway's delivery id
func (s *WebhookSink) Deliver(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode delivery request: %w", err)
	}

	var body []byte
	err = s.withRetry(ctx, "deliver", func() error {
		body, err = s.do(ctx, http.MethodPost, s.endpoint, payload)
		return err
	})
	if err != nil {
		return "", err
	}

	var resp deliverResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			s.logger.Warn("push gateway returned an unreadable body", zap.Error(err))
		}
	}
	if resp.DeliveryID == "" {
		resp.DeliveryID = req.ID
	}

	return resp.DeliveryID, nil
}

// Cancel withdraws one scheduled notification; an unknown id is not an error
func (s *WebhookSink) Cancel(ctx context.Context, id string) error {
	target := s.endpoint + "/" + url.PathEscape(id)
	return s.withRetry(ctx, "cancel", func() error {
		_, err := s.do(ctx, http.MethodDelete, target, nil)
		return ignoreNotFound(err)
	})
}

// CancelAll withdraws every scheduled notification
func (s *WebhookSink) CancelAll(ctx context.Context) error {
	return s.withRetry(ctx, "cancel_all", func() error {
		_, err := s.do(ctx, http.MethodDelete, s.endpoint, nil)
		return ignoreNotFound(err)
	})
}

func (s *WebhookSink) withRetry(ctx context.Context, op string, fn func() error) error {
	startTime := time.Now()
	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay * time.Duration(1<<uint(attempt-1))
			s.logger.Info("retrying push gateway request",
				zap.String("operation", op),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := fn()
		if err == nil {
			s.logger.Debug("push gateway request completed",
				zap.String("operation", op),
				zap.Duration("processing_time", time.Since(startTime)),
				zap.Int("attempts", attempt+1),
			)
			return nil
		}

		lastErr = err
		if !isRetryable(ctx, err) {
			s.logger.Error("non-retryable push gateway error",
				zap.String("operation", op),
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			return fmt.Errorf("push gateway %s failed: %w", op, err)
		}

		s.logger.Warn("push gateway request failed, will retry",
			zap.String("operation", op),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
		)
	}

	s.logger.Error("push gateway request failed after retries",
		zap.String("operation", op),
		zap.Error(lastErr),
		zap.Duration("total_time", time.Since(startTime)),
		zap.Int("max_retries", s.maxRetries),
	)
	return fmt.Errorf("push gateway %s failed after %d attempts: %w", op, s.maxRetries, lastErr)
}

func (s *WebhookSink) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// isRetryable retries network errors, 429 and 5xx; other statuses and
// context cancellation are final
func isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true
}

func ignoreNotFound(err error) error {
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return nil
	}
	return err
}
