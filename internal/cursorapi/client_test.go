package cursorapi_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zsprackett/cursor-usage/internal/cursorapi"
	"github.com/zsprackett/cursor-usage/internal/cursorauth"
	"github.com/zsprackett/cursor-usage/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var session = cursorauth.Session{Token: "a.b.c", UserID: "user_01"}

func newClient(url string) *cursorapi.Client {
	return cursorapi.New(
		cursorapi.WithBaseURL(url),
		cursorapi.WithRetryPolicy(retry.Policy{Attempts: 3, Delay: time.Millisecond}),
		cursorapi.WithLogger(discardLogger()),
	)
}

func TestUsage_ParsesModelEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/usage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"gpt-4":{"numRequests":42,"maxRequestUsage":500},"gpt-3.5-turbo":{"numRequests":3},"startOfMonth":"2026-10-01T00:00:00.000Z"}`))
	}))
	defer srv.Close()

	u, err := newClient(srv.URL).Usage(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil {
		t.Fatal("expected usage")
	}
	if u.Requests() != 42 || u.RequestCap() != 500 {
		t.Errorf("got %d/%d want 42/500", u.Requests(), u.RequestCap())
	}
}

func TestUsage_SendsSessionCookieAndBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	newClient(srv.URL).Usage(context.Background(), session)

	if c := got.Get("Cookie"); c != session.Cookie() {
		t.Errorf("cookie: got %q want %q", c, session.Cookie())
	}
	for _, h := range []string{"Accept", "Accept-Language", "Cache-Control", "Referer", "User-Agent", "sec-ch-ua", "sec-ch-ua-platform", "Sec-Fetch-Mode"} {
		if got.Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestUsage_MissingModelIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"startOfMonth":"2026-10-01"}`))
	}))
	defer srv.Close()

	u, err := newClient(srv.URL).Usage(context.Background(), session)
	if err != nil || u != nil {
		t.Errorf("got (%v, %v) want (nil, nil)", u, err)
	}
}

func TestUsage_AbsentFieldsDefaultToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gpt-4":{}}`))
	}))
	defer srv.Close()

	u, err := newClient(srv.URL).Usage(context.Background(), session)
	if err != nil || u == nil {
		t.Fatalf("got (%v, %v)", u, err)
	}
	if u.Requests() != 0 || u.RequestCap() != 0 {
		t.Errorf("got %d/%d want 0/0", u.Requests(), u.RequestCap())
	}
}

func TestUsage_Non200IsNoDataWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	u, err := newClient(srv.URL).Usage(context.Background(), session)
	if err != nil || u != nil {
		t.Errorf("got (%v, %v) want (nil, nil)", u, err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("hits: got %d want 1", n)
	}
}

func TestUsage_ServerErrorRetriedThenExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Usage(context.Background(), session)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
	var se *cursorapi.StatusError
	if !errors.As(err, &se) || se.Code != 500 {
		t.Errorf("expected wrapped 500 StatusError, got %v", err)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("hits: got %d want 3", n)
	}
}

func TestUsage_RecoversOnThirdAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"gpt-4":{"numRequests":1,"maxRequestUsage":2}}`))
	}))
	defer srv.Close()

	u, err := newClient(srv.URL).Usage(context.Background(), session)
	if err != nil || u == nil || u.Requests() != 1 {
		t.Errorf("got (%v, %v)", u, err)
	}
}

func TestUsage_BadJSONIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"gpt-4":`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Usage(context.Background(), session)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if errors.Is(err, retry.ErrExhausted) {
		t.Error("parse error must not be retried")
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("hits: got %d want 1", n)
	}
}

func TestUsage_TransportFailureExhausts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(url).Usage(context.Background(), session)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/me" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"email":"dev@example.com","name":"Dev"}`))
	}))
	defer srv.Close()

	p, err := newClient(srv.URL).Profile(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Email != "dev@example.com" {
		t.Errorf("got %+v", p)
	}
}

func TestProfile_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p, err := newClient(srv.URL).Profile(context.Background(), session)
	if err != nil || p != nil {
		t.Errorf("got (%v, %v) want (nil, nil)", p, err)
	}
}
