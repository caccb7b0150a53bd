package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cvelab/vulnenrich"
)

func TestCheckResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/429":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/503":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("no such resource"))
		}
	}))
	defer srv.Close()
	cl := srv.Client()

	tt := []struct {
		Path string
		Kind vulnenrich.ErrorKind
	}{
		{"/429", vulnenrich.ErrRateLimited},
		{"/503", vulnenrich.ErrUnreachable},
		{"/404", vulnenrich.ErrBadResponse},
	}
	for _, tc := range tt {
		res, err := cl.Get(srv.URL + tc.Path)
		if err != nil {
			t.Fatal(err)
		}
		err = CheckResponse(res, http.StatusOK)
		res.Body.Close()
		if err == nil {
			t.Fatalf("%s: expected an error", tc.Path)
		}
		if !errors.Is(err, tc.Kind) {
			t.Errorf("%s: got: %v, want kind: %v", tc.Path, err, tc.Kind)
		}
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return &vulnenrich.Error{Kind: vulnenrich.ErrInvalid}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestRetryTransient(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return &vulnenrich.Error{Kind: vulnenrich.ErrUnreachable}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3", calls)
	}
}

func TestRetryAfter(t *testing.T) {
	res := &http.Response{Header: http.Header{}}
	if got := RetryAfter(res, time.Second); got != time.Second {
		t.Errorf("got: %v, want: %v", got, time.Second)
	}
	res.Header.Set("Retry-After", "5")
	if got := RetryAfter(res, time.Second); got != 5*time.Second {
		t.Errorf("got: %v, want: %v", got, 5*time.Second)
	}
}
