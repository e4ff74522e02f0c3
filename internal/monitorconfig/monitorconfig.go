package monitorconfig

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultTimeoutMs is used when neither the target nor the platform sets a timeout.
	DefaultTimeoutMs = 5000
	// DefaultIntervalMs is used when neither the target nor the platform sets an interval.
	DefaultIntervalMs = 60000

	serialLength = 10
)

var ErrInvalidConfig = errors.New("invalid target configuration")

// Method selects the probing strategy of a target.
type Method string

const (
	MethodPing      Method = "ping"
	MethodHTTP      Method = "http"
	MethodContainer Method = "container"
)

// ParseMethod accepts the method names used in configuration files. An empty
// string is returned as is so the fallback chain can apply.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "", MethodPing, MethodHTTP, MethodContainer:
		return m, nil
	default:
		return "", errors.Wrapf(ErrInvalidConfig, "unknown method %q", s)
	}
}

// TargetConfig is the operator supplied description of one monitored target.
// Zero values mean "not set" and are resolved through Defaults.
type TargetConfig struct {
	Name            string
	Address         string
	Method          Method
	TimeoutMs       int
	IntervalMs      int
	IgnoreTLSErrors *bool
}

// Defaults holds the platform wide fallbacks.
type Defaults struct {
	Method          Method
	TimeoutMs       int
	IntervalMs      int
	IgnoreTLSErrors bool
}

// EffectiveConfig is a TargetConfig with every optional field resolved.
type EffectiveConfig struct {
	Name            string
	Address         string
	Method          Method
	Timeout         time.Duration
	Interval        time.Duration
	IgnoreTLSErrors bool
}

// Serial returns a short stable identifier derived from the name and address.
func (e EffectiveConfig) Serial() string {
	s := base64.StdEncoding.EncodeToString([]byte(e.Name + e.Address))
	if len(s) > serialLength {
		return s[:serialLength]
	}
	return s
}

// Validate reports the first problem found in the target configuration.
func (c TargetConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(ErrInvalidConfig, "name is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		return errors.Wrapf(ErrInvalidConfig, "address is required for target %q", c.Name)
	}
	if _, err := ParseMethod(string(c.Method)); err != nil {
		return errors.Wrapf(err, "target %q", c.Name)
	}
	if c.TimeoutMs < 0 {
		return errors.Wrapf(ErrInvalidConfig, "timeout must be positive for target %q", c.Name)
	}
	if c.IntervalMs < 0 {
		return errors.Wrapf(ErrInvalidConfig, "interval must be positive for target %q", c.Name)
	}
	return nil
}

// Validate checks the platform defaults.
func (d Defaults) Validate() error {
	if _, err := ParseMethod(string(d.Method)); err != nil {
		return errors.Wrap(err, "default method")
	}
	if d.TimeoutMs < 0 {
		return errors.Wrap(ErrInvalidConfig, "default timeout must be positive")
	}
	if d.IntervalMs < 0 {
		return errors.Wrap(ErrInvalidConfig, "default interval must be positive")
	}
	return nil
}

// Resolve validates c and applies the fallback chain
// target -> platform default -> hardcoded default.
func Resolve(c TargetConfig, d Defaults) (EffectiveConfig, error) {
	if err := c.Validate(); err != nil {
		return EffectiveConfig{}, err
	}
	if err := d.Validate(); err != nil {
		return EffectiveConfig{}, err
	}

	method, _ := ParseMethod(string(c.Method))
	if method == "" {
		method, _ = ParseMethod(string(d.Method))
	}
	if method == "" {
		method = MethodPing
	}

	ignoreTLS := d.IgnoreTLSErrors
	if c.IgnoreTLSErrors != nil {
		ignoreTLS = *c.IgnoreTLSErrors
	}

	return EffectiveConfig{
		Name:            strings.TrimSpace(c.Name),
		Address:         strings.TrimSpace(c.Address),
		Method:          method,
		Timeout:         millis(firstPositive(c.TimeoutMs, d.TimeoutMs, DefaultTimeoutMs)),
		Interval:        millis(firstPositive(c.IntervalMs, d.IntervalMs, DefaultIntervalMs)),
		IgnoreTLSErrors: ignoreTLS,
	}, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
