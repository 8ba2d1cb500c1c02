// Package followup reads follow-up end dates from the external case
// management system.
package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/observability"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/httpx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/ctxutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/envutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/expiration"
)

type Config struct {
	BaseURL    string
	User       string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BaseURL:    envutil.String("FOLLOWUP_BASE_URL", "", log),
		User:       envutil.String("FOLLOWUP_USER", "", log),
		Password:   envutil.String("FOLLOWUP_PASSWORD", "", nil),
		Timeout:    time.Duration(envutil.Int("FOLLOWUP_TIMEOUT_SECONDS", 30, log)) * time.Second,
		MaxRetries: envutil.Int("FOLLOWUP_MAX_RETRIES", 2, log),
	}
}

// Client satisfies expiration.EndDateSource.
type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

var _ expiration.EndDateSource = (*Client)(nil)

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing FOLLOWUP_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		log:        log.With("client", "FollowUpClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type endDateDTO struct {
	PersonUUID            string    `json:"personUuid"`
	LatestFollowUpEndDate Timestamp `json:"latestFollowUpEndDate"`
}

// Timestamp accepts an ISO-8601 string or epoch milliseconds.
type Timestamp struct{ time.Time }

func (t *Timestamp) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("follow-up end date %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("follow-up end date %s: %w", raw, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("follow-up http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// FetchEndDates returns the latest follow-up end date of every person whose
// follow-up changed since the given instant.
func (c *Client) FetchEndDates(ctx context.Context, since time.Time) (out []expiration.FollowUpEndDate, err error) {
	ctx, span := observability.StartSpan(ctxutil.Default(ctx), "followup.FetchEndDates",
		attribute.String("followup.since", since.UTC().Format(time.RFC3339)),
	)
	defer func() { observability.EndSpan(span, err) }()

	endpoint := fmt.Sprintf("%s/visits-external/followUpEndDates/%d", c.cfg.BaseURL, since.UnixMilli())
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		rows, resp, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			span.SetAttributes(attribute.Int("followup.rows", len(rows)))
			return rows, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Follow-up request retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if serr := httpx.Sleep(ctx, sleepFor); serr != nil {
			return nil, serr
		}
		backoff *= 2
	}
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]expiration.FollowUpEndDate, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, resp, fmt.Errorf("follow-up: empty response body")
	}

	var dtos []endDateDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, resp, fmt.Errorf("follow-up decode error: %w", err)
	}
	out := make([]expiration.FollowUpEndDate, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, expiration.FollowUpEndDate{
			PersonUUID:            strings.TrimSpace(d.PersonUUID),
			LatestFollowUpEndDate: d.LatestFollowUpEndDate.Time,
		})
	}
	return out, resp, nil
}
