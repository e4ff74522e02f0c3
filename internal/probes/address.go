package probes

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

var ErrInvalidAddress = errors.New("invalid address")

// HTTPAddress is a normalised HTTP probe target.
type HTTPAddress struct {
	Scheme   string
	Hostname string
	// Port is the explicit port or the scheme default.
	Port string
	// Path includes the query string and is never empty.
	Path string

	host string
}

// URL returns the absolute URL requested by the probe.
func (a HTTPAddress) URL() string {
	return a.Scheme + "://" + a.host + a.Path
}

// ParseHTTPAddress normalises address into an HTTP target, defaulting the
// scheme to http and the path to /.
func ParseHTTPAddress(address string) (HTTPAddress, error) {
	raw := strings.TrimSpace(address)
	if raw == "" {
		return HTTPAddress{}, errors.Wrap(ErrInvalidAddress, "empty address")
	}
	raw = withScheme(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return HTTPAddress{}, errors.Wrapf(ErrInvalidAddress, "%q: %v", address, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return HTTPAddress{}, errors.Wrapf(ErrInvalidAddress, "%q: unsupported scheme %q", address, u.Scheme)
	}
	if u.Hostname() == "" {
		return HTTPAddress{}, errors.Wrapf(ErrInvalidAddress, "%q: missing host", address)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if scheme == "https" {
			port = "443"
		}
	}

	return HTTPAddress{
		Scheme:   scheme,
		Hostname: u.Hostname(),
		Port:     port,
		Path:     u.RequestURI(),
		host:     u.Host,
	}, nil
}

// Hostname extracts the bare host from address, dropping any scheme, port,
// path or query. IP literals are returned unchanged and internationalised
// names are converted to their ASCII form.
func Hostname(address string) (string, error) {
	raw := strings.TrimSpace(address)
	if ip := net.ParseIP(strings.Trim(raw, "[]")); ip != nil {
		return ip.String(), nil
	}
	raw = withScheme(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidAddress, "%q: %v", address, err)
	}

	host := u.Hostname()
	if host == "" {
		return "", errors.Wrapf(ErrInvalidAddress, "%q: missing host", address)
	}
	if isASCII(host) {
		return host, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidAddress, "%q: %v", address, err)
	}

	return ascii, nil
}

// withScheme prefixes raw with http:// unless it already starts with a
// scheme. A "://" found after the host, e.g. in a query, does not count.
func withScheme(raw string) string {
	i := strings.Index(raw, "://")
	if i <= 0 || strings.ContainsAny(raw[:i], "/?#@:") {
		return "http://" + raw
	}
	return raw
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
