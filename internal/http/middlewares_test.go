package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHeaderMiddleware(t *testing.T) {
	var got *http.Request
	rt := NewHeaderMiddleware(map[string]string{
		"User-Agent": "serverstatus/1.0",
		"Accept":     "text/html",
	}, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		got = req
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil
	}))

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Header.Set("Accept", "application/json")

	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ua := got.Header.Get("User-Agent"); ua != "serverstatus/1.0" {
		t.Errorf("expected User-Agent to be set, got %q", ua)
	}
	if accept := got.Header.Get("Accept"); accept != "application/json" {
		t.Errorf("expected existing Accept header to be kept, got %q", accept)
	}
	if req.Header.Get("User-Agent") != "" {
		t.Error("expected original request to be left untouched")
	}
}

func TestNewLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ok := NewLoggerMiddleware(logger, roundTripperFunc(func(_ *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 404, Body: http.NoBody}, nil
	}))
	failing := NewLoggerMiddleware(logger, roundTripperFunc(func(_ *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if _, err := ok.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := failing.RoundTrip(req); err == nil {
		t.Fatal("expected error from failing transport")
	}

	if n := logs.FilterMessage("Response").Len(); n != 1 {
		t.Errorf("expected 1 response log, got %d", n)
	}
	if n := logs.FilterMessage("Request failed").Len(); n != 1 {
		t.Errorf("expected 1 failure log, got %d", n)
	}
}
