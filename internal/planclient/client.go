// Package planclient speaks the plan service's HTTP contract:
// POST /plan and GET /health.
package planclient

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/studyplan/studyplan/internal/logger"
	"github.com/studyplan/studyplan/internal/plan"
	"github.com/studyplan/studyplan/internal/validate"
)

const (
	maxBodyBytes    = 4 << 20
	requestIDHeader = "X-Request-ID"
)

// ErrResponseTooLarge is returned when a response body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response too large")

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
	tracer     trace.Tracer
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: hc,
		log:        log,
		tracer:     otel.Tracer("github.com/studyplan/studyplan/internal/planclient"),
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

type planRequest struct {
	Subjects    []string `json:"subjects"`
	Hours       float64  `json:"hours"`
	DaysPerWeek int      `json:"days_per_week"`
}

// Generate posts req to /plan and returns the validated response.
//
// Errors are *TransportError when the service could not be reached,
// *HTTPError for non-2xx statuses, and wrap plan.ErrMalformed when a
// 2xx body is not a usable plan.
func (c *Client) Generate(ctx context.Context, req validate.Request) (*plan.Response, error) {
	ctx, span := c.tracer.Start(ctx, "plan.generate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	requestID := RequestIDFrom(ctx)
	span.SetAttributes(
		attribute.String("studyplan.request_id", requestID),
		attribute.Int("studyplan.subjects", len(req.Subjects())),
		attribute.Float64("studyplan.daily_hours", req.DailyHours()),
		attribute.Int("studyplan.days_per_week", req.DaysPerWeek()),
	)

	body := planRequest{
		Subjects:    req.Subjects(),
		Hours:       req.DailyHours(),
		DaysPerWeek: req.DaysPerWeek(),
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/plan", body, requestID)
	if errors.Is(err, ErrResponseTooLarge) {
		err = fmt.Errorf("%w: %w", plan.ErrMalformed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid body")
		c.log.Warn("plan response invalid", "request_id", requestID, "status", status, "error", err)
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if status < 200 || status >= 300 {
		herr := parseHTTPError(status, raw)
		span.SetStatus(codes.Error, herr.Message())
		c.log.Warn("plan request rejected", "request_id", requestID, "status", status, "detail", herr.Detail)
		return nil, herr
	}

	resp, err := plan.Decode(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid body")
		c.log.Warn("plan response invalid", "request_id", requestID, "error", err)
		return nil, err
	}
	c.log.Debug("plan received", "request_id", requestID, "days", len(resp.Plan), "resources", resp.Resources.Len())
	return resp, nil
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, span := c.tracer.Start(ctx, "plan.health", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, raw, err := c.do(ctx, http.MethodGet, "/health", nil, RequestIDFrom(ctx))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, parseHTTPError(status, raw)
	}
	var out HealthStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &out, nil
}

// do performs a single attempt. Plan generation is not idempotent from
// the user's point of view, so there are no retries.
func (c *Client) do(ctx context.Context, method, path string, body any, requestID string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, err
		}
		reader = &buf
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return 0, nil, &TransportError{BaseURL: c.baseURL, Err: fmt.Errorf("reading response: %w", err)}
	}
	if len(raw) > maxBodyBytes {
		return resp.StatusCode, nil, fmt.Errorf("%w: %s %s returned more than %d bytes", ErrResponseTooLarge, method, path, maxBodyBytes)
	}
	return resp.StatusCode, raw, nil
}

type requestIDKey struct{}

// WithRequestID attaches the id sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id attached to ctx, or a fresh one.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
