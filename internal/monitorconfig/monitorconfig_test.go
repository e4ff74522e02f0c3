package monitorconfig

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestResolve_FallbackChain(t *testing.T) {
	tests := []struct {
		name     string
		target   TargetConfig
		defaults Defaults
		expected EffectiveConfig
	}{
		{
			name:     "hardcoded defaults",
			target:   TargetConfig{Name: "db1", Address: "10.0.0.5"},
			defaults: Defaults{},
			expected: EffectiveConfig{
				Name:     "db1",
				Address:  "10.0.0.5",
				Method:   MethodPing,
				Timeout:  5 * time.Second,
				Interval: time.Minute,
			},
		},
		{
			name:   "platform defaults",
			target: TargetConfig{Name: "web", Address: "example.com"},
			defaults: Defaults{
				Method:          MethodHTTP,
				TimeoutMs:       2000,
				IntervalMs:      30000,
				IgnoreTLSErrors: true,
			},
			expected: EffectiveConfig{
				Name:            "web",
				Address:         "example.com",
				Method:          MethodHTTP,
				Timeout:         2 * time.Second,
				Interval:        30 * time.Second,
				IgnoreTLSErrors: true,
			},
		},
		{
			name: "target overrides platform",
			target: TargetConfig{
				Name:            "web",
				Address:         "https://example.com",
				Method:          MethodPing,
				TimeoutMs:       100,
				IntervalMs:      1000,
				IgnoreTLSErrors: boolPtr(false),
			},
			defaults: Defaults{
				Method:          MethodHTTP,
				TimeoutMs:       2000,
				IntervalMs:      30000,
				IgnoreTLSErrors: true,
			},
			expected: EffectiveConfig{
				Name:     "web",
				Address:  "https://example.com",
				Method:   MethodPing,
				Timeout:  100 * time.Millisecond,
				Interval: time.Second,
			},
		},
		{
			name:     "surrounding spaces trimmed",
			target:   TargetConfig{Name: " nas ", Address: " nas.local ", Method: "HTTP"},
			defaults: Defaults{},
			expected: EffectiveConfig{
				Name:     "nas",
				Address:  "nas.local",
				Method:   MethodHTTP,
				Timeout:  5 * time.Second,
				Interval: time.Minute,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.target, tt.defaults)
			if err != nil {
				t.Fatalf("Resolve() returned unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestResolve_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		target   TargetConfig
		defaults Defaults
		contains string
	}{
		{"missing name", TargetConfig{Address: "10.0.0.5"}, Defaults{}, "name is required"},
		{"blank name", TargetConfig{Name: "  ", Address: "10.0.0.5"}, Defaults{}, "name is required"},
		{"missing address", TargetConfig{Name: "db1"}, Defaults{}, "address is required"},
		{"unknown method", TargetConfig{Name: "db1", Address: "10.0.0.5", Method: "udp"}, Defaults{}, "unknown method"},
		{"negative timeout", TargetConfig{Name: "db1", Address: "10.0.0.5", TimeoutMs: -1}, Defaults{}, "timeout"},
		{"negative interval", TargetConfig{Name: "db1", Address: "10.0.0.5", IntervalMs: -5}, Defaults{}, "interval"},
		{"bad default method", TargetConfig{Name: "db1", Address: "10.0.0.5"}, Defaults{Method: "smtp"}, "default method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.target, tt.defaults)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected error to wrap ErrInvalidConfig, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error to contain %q, got: %v", tt.contains, err)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input    string
		expected Method
		valid    bool
	}{
		{"ping", MethodPing, true},
		{"HTTP", MethodHTTP, true},
		{" container ", MethodContainer, true},
		{"", "", true},
		{"icmp", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if (err == nil) != tt.valid {
				t.Fatalf("ParseMethod(%q) error = %v, valid %v", tt.input, err, tt.valid)
			}
			if got != tt.expected {
				t.Errorf("ParseMethod(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEffectiveConfig_Serial(t *testing.T) {
	cfg := EffectiveConfig{Name: "db1", Address: "10.0.0.5"}

	// base64("db110.0.0.5") = "ZGIxMTAuMC4wLjU="
	if got := cfg.Serial(); got != "ZGIxMTAuMC" {
		t.Errorf("Serial() = %q, want %q", got, "ZGIxMTAuMC")
	}

	short := EffectiveConfig{Name: "a"}
	if got := short.Serial(); got != "YQ==" {
		t.Errorf("Serial() = %q, want %q", got, "YQ==")
	}
}
