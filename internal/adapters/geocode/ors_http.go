package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error bodies from ORS are short JSON documents; anything longer is cut.
const maxErrorBody = 4 << 10

// apiError is a non-2xx answer from an ORS endpoint.
type apiError struct {
	Endpoint   string
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *apiError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ors %s: HTTP %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("ors %s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// temporary reports rate limiting and gateway-side failures.
func (e *apiError) temporary() bool {
	switch e.Status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get issues an authenticated GET against path with query, retrying
// temporary API errors and network errors. The caller closes the body.
func (o *ORSGeocoder) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := o.baseURL + path + "?" + query.Encode()
	delay := o.backoff

	for attempt := 1; ; attempt++ {
		resp, err := o.getOnce(ctx, path, target)
		if err == nil {
			return resp, nil
		}
		if attempt >= o.maxAttempts || !retryable(err) {
			return nil, err
		}

		wait := delay
		var ae *apiError
		if errors.As(err, &ae) && ae.RetryAfter > wait {
			wait = min(ae.RetryAfter, o.maxRetryAfter)
		}
		o.log.Debug("ors request failed, retrying", "endpoint", path, "attempt", attempt, "wait_ms", wait.Milliseconds(), "err", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

func (o *ORSGeocoder) getOnce(ctx context.Context, path, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("ors %s: build request: %w", path, err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &apiError{
		Endpoint:   path,
		Status:     resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.temporary()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// parseRetryAfter accepts the delay-seconds form only; ORS does not send dates.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
