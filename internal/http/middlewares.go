package http

import (
	"net/http"

	"go.uber.org/zap"
)

type RoundTripperMiddleware struct {
	Proxied http.RoundTripper

	OnBefore func(req *http.Request)
	OnAfter  func(req *http.Request, res *http.Response, err error)
}

func (m RoundTripperMiddleware) RoundTrip(req *http.Request) (res *http.Response, err error) {
	if m.OnBefore != nil {
		m.OnBefore(req)
	}
	res, err = m.Proxied.RoundTrip(req)
	if m.OnAfter != nil {
		m.OnAfter(req, res, err)
	}

	return res, err
}

// NewHeaderMiddleware sets the given headers on requests that do not carry them yet.
// The request is cloned first as RoundTrippers must not modify their input.
func NewHeaderMiddleware(headers map[string]string, proxied http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		clone := req.Clone(req.Context())
		for k, v := range headers {
			if clone.Header.Get(k) == "" {
				clone.Header.Set(k, v)
			}
		}
		return proxied.RoundTrip(clone)
	})
}

func NewLoggerMiddleware(logger *zap.Logger, proxied http.RoundTripper) *RoundTripperMiddleware {
	return &RoundTripperMiddleware{
		Proxied: proxied,
		OnBefore: func(req *http.Request) {
			logger.Debug("Request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
		},
		OnAfter: func(req *http.Request, res *http.Response, err error) {
			if err != nil {
				logger.Debug("Request failed", zap.String("url", req.URL.String()), zap.Error(err))
				return
			}
			logger.Debug("Response", zap.String("url", req.URL.String()), zap.Int("status", res.StatusCode))
		},
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
