package probes

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	aireoneHttp "aireone.xyz/serverstatus/internal/http"
	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	UserAgent    = "serverstatus/1.0"
	AcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	maxDrainBytes = 64 << 10
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProber issues a single GET and classifies the answer.
type HTTPProber struct {
	// Client verifies certificates. InsecureClient is only used for https
	// targets configured to ignore TLS errors.
	Client         HTTPClient
	InsecureClient HTTPClient

	Logger *zap.Logger
}

func NewHTTPProber(logger *zap.Logger) *HTTPProber {
	return &HTTPProber{
		Client:         newHTTPClient(logger, false),
		InsecureClient: newHTTPClient(logger, true),
		Logger:         logger,
	}
}

func newHTTPClient(logger *zap.Logger, insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per target
	}

	headers := map[string]string{
		"User-Agent": UserAgent,
		"Accept":     AcceptHeader,
	}

	return &http.Client{
		Transport: aireoneHttp.NewHeaderMiddleware(headers, aireoneHttp.NewLoggerMiddleware(logger, transport)),
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Probe implements Strategy.
func (h *HTTPProber) Probe(ctx context.Context, target monitorconfig.EffectiveConfig) Result {
	res := h.Check(ctx, target.Address, target.Timeout, target.IgnoreTLSErrors)
	if errors.Is(res.Err, ErrTLSVerification) {
		h.Logger.Warn("TLS verification failed",
			zap.String("target", target.Name),
			zap.String("address", target.Address),
			zap.Error(res.Err),
		)
	}
	return res
}

// Check probes address with timeout covering connection and response.
func (h *HTTPProber) Check(ctx context.Context, address string, timeout time.Duration, ignoreTLSErrors bool) Result {
	addr, err := ParseHTTPAddress(address)
	if err != nil {
		return Result{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.URL(), http.NoBody)
	if err != nil {
		return Result{Err: errors.Wrap(err, "error creating http request")}
	}

	client := h.Client
	if addr.Scheme == "https" && ignoreTLSErrors {
		client = h.InsecureClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if isTLSVerificationError(err) {
			return Result{Latency: latency, Err: tlsVerificationError(err)}
		}
		return Result{Latency: latency, Err: errors.Wrap(err, "error running http health check")}
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused without buffering large bodies.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	res := Result{
		Alive:      Classify(resp.StatusCode),
		Latency:    latency,
		StatusCode: resp.StatusCode,
		CertExpiry: certificateExpiry(resp.TLS),
	}
	if !res.Alive {
		res.Err = errors.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return res
}
