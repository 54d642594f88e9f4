package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guardkit/guardkit/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrTimeout is returned when the remote call exceeds the configured
	// deadline after the bounded retries are exhausted.
	ErrTimeout = errors.New("remote validation timed out")
	// ErrUnreachable is returned when the endpoint cannot be reached.
	ErrUnreachable = errors.New("remote validation endpoint unreachable")
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
)

// Client calls a remote validation endpoint and maps responses back to
// ValidationResults.
type Client struct {
	cfg    EndpointConfig
	client *http.Client
	logger *zerolog.Logger
}

func NewClient(cfg EndpointConfig, logger *zerolog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger,
	}
}

// Validate sends one request and blocks until its result is available.
// Transient failures are retried with backoff up to MaxRetries; timeouts are
// never retried indefinitely.
func (c *Client) Validate(ctx context.Context, request models.ValidationRequest) (*models.ValidationResult, error) {
	payload := validateRequest{
		RequestID: request.RequestID,
		Validator: request.Validator,
		Text:      request.Text,
		Metadata:  request.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize validation request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			c.logger.Debug().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Str("request_id", request.RequestID).
				Msg("retrying remote validation")

			select {
			case <-ctx.Done():
				return nil, classify(ctx.Err())
			case <-time.After(backoff):
			}
		}

		result, err := c.doValidate(ctx, request, body)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if errors.Is(err, ErrTimeout) || ctx.Err() != nil {
			// Deadline hit, retrying would only stack more latency.
			break
		}
		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			// The endpoint understood the request and rejected it;
			// retrying cannot change the answer.
			break
		}
	}

	return nil, lastErr
}

func (c *Client) doValidate(ctx context.Context, request models.ValidationRequest, body []byte) (*models.ValidationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.URL, "/") + "/api/v1/validate/" + request.Validator
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create validation request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var result models.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("unable to decode validation response: %w", err)
	}

	normalizeResult(&result, request.RequestID, request.Validator)
	result.Duration = time.Since(start)
	return &result, nil
}

// ValidateStream sends fragments for one validator as they arrive and
// yields one partial result per fragment, so a caller can accumulate output
// without waiting for completion. The returned channel is closed when the
// server finishes or the context is cancelled; it is finite and not
// restartable.
func (c *Client) ValidateStream(ctx context.Context, validatorName string, requests <-chan models.ValidationRequest) <-chan StreamResult {
	out := make(chan StreamResult)

	go func() {
		defer close(out)

		pr, pw := io.Pipe()
		endpoint := strings.TrimRight(c.cfg.URL, "/") + "/api/v1/validate/" + validatorName + "/stream"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
		if err != nil {
			out <- StreamResult{Err: fmt.Errorf("unable to create stream request: %w", err)}
			return
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/x-ndjson")

		// Writer side: one NDJSON line per fragment request.
		go func() {
			enc := json.NewEncoder(pw)
			for request := range requests {
				line := validateRequest{
					RequestID: request.RequestID,
					Validator: request.Validator,
					Text:      request.Text,
					Metadata:  request.Metadata,
				}
				if err := enc.Encode(line); err != nil {
					pw.CloseWithError(err)
					return
				}
			}
			pw.Close()
		}()

		resp, err := c.client.Do(req)
		if err != nil {
			out <- StreamResult{Err: classify(err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			out <- StreamResult{Err: &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}}
			return
		}

		dec := json.NewDecoder(resp.Body)
		for {
			var result models.ValidationResult
			if err := dec.Decode(&result); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				out <- StreamResult{Err: classify(err)}
				return
			}

			normalizeResult(&result, result.RequestID, validatorName)
			select {
			case out <- StreamResult{Result: result}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// StreamResult carries either one partial result or the terminal error of a
// streamed call.
type StreamResult struct {
	Result models.ValidationResult
	Err    error
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
}

// normalizeResult fills gaps a lax endpoint may leave and pins the mode:
// from the caller's side this execution was remote, whatever the endpoint
// reports about itself.
func normalizeResult(result *models.ValidationResult, requestID, validatorName string) {
	switch result.Outcome {
	case models.OutcomePass, models.OutcomeFail, models.OutcomeError:
	default:
		result.Outcome = models.OutcomeError
	}

	if result.RequestID == "" {
		result.RequestID = requestID
	}
	if result.Validator == "" {
		result.Validator = validatorName
	}
	result.Mode = models.ModeRemote
}

// statusError is a non-2xx response from the endpoint. 4xx codes are
// terminal for the retry loop.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d: %s", e.code, e.body)
}

// classify maps transport errors onto the client's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
