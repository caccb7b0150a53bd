// Package httputil holds shared helpers for talking to external HTTP APIs.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cvelab/vulnenrich"
)

// CheckResponse takes a http.Response and a variadic of ints representing
// acceptable http status codes. The error returned classifies the failure
// and attempts to include some content from the server's response.
func CheckResponse(resp *http.Response, acceptableCodes ...int) error {
	for _, code := range acceptableCodes {
		if resp.StatusCode == code {
			return nil
		}
	}
	kind := vulnenrich.ErrBadResponse
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = vulnenrich.ErrRateLimited
	case resp.StatusCode >= 500:
		kind = vulnenrich.ErrUnreachable
	}
	msg := fmt.Sprintf("unexpected status code: %s", resp.Status)
	if limitBody, err := io.ReadAll(io.LimitReader(resp.Body, 256)); err == nil && len(limitBody) != 0 {
		msg = fmt.Sprintf("unexpected status code: %s (body starts: %q)", resp.Status, limitBody)
	}
	return &vulnenrich.Error{
		Kind:    kind,
		Message: msg,
	}
}

// RetryAfter reports the server-requested backoff from a Retry-After
// header, or the fallback if absent or unparseable.
func RetryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return fallback
}
