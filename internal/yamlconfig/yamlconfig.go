package yamlconfig

import (
	"io"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrYAMLDecode = errors.New("error decoding YAML file")

type YamlConfig struct {
	// Probing method used when a server does not set one. Default is ping.
	DefaultMethod string `yaml:"default_method,omitempty" json:"default_method,omitempty" jsonschema:"enum=ping,enum=http,enum=container"`
	// Probe timeout in milliseconds used when a server does not set one. Default is 5000.
	DefaultTimeout int `yaml:"default_timeout,omitempty" json:"default_timeout,omitempty" jsonschema:"minimum=0"`
	// Probe interval in milliseconds used when a server does not set one. Default is 60000.
	DefaultInterval int `yaml:"default_interval,omitempty" json:"default_interval,omitempty" jsonschema:"minimum=0"`
	// Accept invalid TLS certificates when a server does not say otherwise. Default is false.
	DefaultIgnoreTLSErrors bool `yaml:"default_ignore_tls_errors,omitempty" json:"default_ignore_tls_errors,omitempty"`
	// List of servers to monitor.
	Servers []ServerDTO `yaml:"servers" json:"servers"`
}

func NewYamlConfig(r io.Reader) (*YamlConfig, error) {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	config := &YamlConfig{}

	if err := d.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(ErrYAMLDecode, err.Error())
	}

	return config, nil
}

// Defaults returns the platform defaults declared in the file.
func (c *YamlConfig) Defaults() monitorconfig.Defaults {
	return monitorconfig.Defaults{
		Method:          monitorconfig.Method(c.DefaultMethod),
		TimeoutMs:       c.DefaultTimeout,
		IntervalMs:      c.DefaultInterval,
		IgnoreTLSErrors: c.DefaultIgnoreTLSErrors,
	}
}

// Targets returns the servers as target configurations, in file order.
// They are validated when registered.
func (c *YamlConfig) Targets() []monitorconfig.TargetConfig {
	targets := make([]monitorconfig.TargetConfig, 0, len(c.Servers))
	for _, s := range c.Servers {
		targets = append(targets, s.TargetConfig())
	}
	return targets
}
