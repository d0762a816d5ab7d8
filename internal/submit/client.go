// Package submit sends captured inventory records to the submission endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/util"
)

const (
	// defaultTimeout is the request timeout when none is configured.
	defaultTimeout = 10 * time.Second

	// defaultUserAgent identifies the terminal to the backend.
	defaultUserAgent = "invscan/dev"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20

	// maxErrorBodyLen bounds the response body kept on a SubmissionError.
	maxErrorBodyLen = 200

	// IdempotencyHeader carries a key unique to each submit attempt.
	IdempotencyHeader = "Idempotency-Key"
)

// Record is the payload the backend receives.
type Record struct {
	ScannedResult string `json:"scannedResult" validate:"required"`
	EmploymentID  string `json:"employmentId" validate:"required"`
	Quantity      string `json:"quantity" validate:"required"`
}

// NewRecord builds a Record from operator input, trimming surrounding whitespace.
func NewRecord(workerID, scannedValue, quantity string) Record {
	return Record{
		ScannedResult: strings.TrimSpace(scannedValue),
		EmploymentID:  strings.TrimSpace(workerID),
		Quantity:      strings.TrimSpace(quantity),
	}
}

// Field messages shown to the operator, keyed by JSON field name.
var requiredMessages = map[string]string{
	"scannedResult": "Scanned value is required",
	"employmentId":  "Employment ID is required",
	"quantity":      "Quantity is required",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that every field is present after trimming. It returns
// errors.ValidationErrors with one entry per missing field, keyed by JSON name.
func (r Record) Validate() error {
	trimmed := NewRecord(r.EmploymentID, r.ScannedResult, r.Quantity)
	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate record")
	}

	out := make(errors.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := requiredMessages[fe.Field()]
		if !ok || fe.Tag() != "required" {
			msg = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		out = append(out, errors.NewValidationError(msg).WithField(fe.Field()).WithValue(fe.Value()))
	}
	return out
}

// Receipt is the backend's acknowledgement. Both fields are optional.
type Receipt struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client submits records.
type Client interface {
	// Submit performs exactly one request for rec. Failures are
	// *errors.SubmissionError.
	Submit(ctx context.Context, rec Record) (*Receipt, error)
}

// HTTPClient implements Client with a JSON POST.
type HTTPClient struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	newKey     func() string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithIdempotencyKeys overrides how per-attempt idempotency keys are generated.
func WithIdempotencyKeys(fn func() string) ClientOption {
	return func(c *HTTPClient) {
		c.newKey = fn
	}
}

// NewHTTPClient creates a client posting to endpoint, which must be an
// absolute http(s) URL.
func NewHTTPClient(endpoint string, opts ...ClientOption) (*HTTPClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewValidationError("endpoint must be an absolute http or https URL").
			WithField("submit.endpoint").
			WithValue(endpoint)
	}

	c := &HTTPClient{
		endpoint:  u.String(),
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		newKey: uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Endpoint returns the URL records are posted to.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Submit posts rec once. There are no transport-level retries: the operator
// decides whether to resubmit.
func (c *HTTPClient) Submit(ctx context.Context, rec Record) (*Receipt, error) {
	reqBytes, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.NewSubmissionError("could not encode record", err).WithRetryable(false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, errors.NewSubmissionError("could not build request", err).WithRetryable(false)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(IdempotencyHeader, c.newKey())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.NewSubmissionError("could not read server response", err).WithStatusCode(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewSubmissionError(
			fmt.Sprintf("server responded %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			errors.ErrUnexpectedStatus,
		).WithStatusCode(resp.StatusCode).WithBody(util.TruncateString(strings.TrimSpace(string(body)), maxErrorBodyLen))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Receipt{}, nil
	}
	if !json.Valid(trimmed) {
		return nil, errors.NewSubmissionError("unreadable response from server", errors.ErrMalformedResponse).
			WithStatusCode(resp.StatusCode).
			WithBody(util.TruncateString(string(trimmed), maxErrorBodyLen))
	}

	// Non-object JSON bodies ("ok", true) still mean success.
	var receipt Receipt
	_ = json.Unmarshal(trimmed, &receipt)
	return &receipt, nil
}

func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return errors.NewSubmissionError("request canceled", fmt.Errorf("%w: %v", errors.ErrCanceled, err))
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return errors.NewSubmissionError("request timed out", fmt.Errorf("%w: %v", errors.ErrTimeout, err))
	default:
		return errors.NewSubmissionError("could not reach server", err)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
