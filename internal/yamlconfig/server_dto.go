package yamlconfig

import "aireone.xyz/serverstatus/internal/monitorconfig"

// ServerDTO represents the configuration of one monitored server.
type ServerDTO struct {
	// Name of the server. Must be unique, it identifies the server in logs, metrics and the API.
	Name string `yaml:"name" json:"name"`
	// Address of the server. A host name or IP address for ping, a URL for http (http:// is
	// assumed when the scheme is missing) or a container name for container.
	URL string `yaml:"url" json:"url"`
	// Probing method. Default is default_method.
	Method string `yaml:"method,omitempty" json:"method,omitempty" jsonschema:"enum=ping,enum=http,enum=container"`
	// Timeout of one probe in milliseconds. Default is default_timeout.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"minimum=0"`
	// Interval between probes in milliseconds. Default is default_interval.
	Interval int `yaml:"interval,omitempty" json:"interval,omitempty" jsonschema:"minimum=0"`
	// Accept invalid TLS certificates for https URLs. Default is default_ignore_tls_errors.
	IgnoreTLSErrors *bool `yaml:"ignore_tls_errors,omitempty" json:"ignore_tls_errors,omitempty"`
}

func (s ServerDTO) TargetConfig() monitorconfig.TargetConfig {
	return monitorconfig.TargetConfig{
		Name:            s.Name,
		Address:         s.URL,
		Method:          monitorconfig.Method(s.Method),
		TimeoutMs:       s.Timeout,
		IntervalMs:      s.Interval,
		IgnoreTLSErrors: s.IgnoreTLSErrors,
	}
}
