package serverstatus

import (
	"flag"

	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

const (
	defaultConfigFile    = "config.yaml"
	defaultListenAddress = ":2112"
	defaultLogLevel      = "info"
)

type Flags struct {
	// Path to the configuration file.
	ConfigFile *string
	// Reload the configuration file when it changes.
	WatchConfigFile *bool
	// Address of the HTTP server exposing the API and the metrics.
	ListenAddress *string
	LogLevel      *string
	// Write JSON logs to this file instead of stdout.
	LogFile *string
	// Send ICMP echo requests from a raw socket.
	PrivilegedPing *bool
	// Upper bound on probes running at the same time. 0 means unbounded.
	MaxConcurrentProbes *int
}

// LoadFlag parses args. Every flag can also be set from the environment,
// e.g. CONFIG or LOG_LEVEL.
func LoadFlag(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("serverstatus", flag.ContinueOnError)

	cfg := Flags{
		ConfigFile:          fs.String("config", defaultConfigFile, "Path to the configuration file"),
		WatchConfigFile:     fs.Bool("watch", false, "Reload the configuration file when it changes"),
		ListenAddress:       fs.String("listen", defaultListenAddress, "Listen address of the API and metrics server"),
		LogLevel:            fs.String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)"),
		LogFile:             fs.String("log-file", "", "Write rotated JSON logs to this file instead of stdout"),
		PrivilegedPing:      fs.Bool("ping-privileged", false, "Use raw sockets for ICMP probes (requires CAP_NET_RAW, always on when running as root)"),
		MaxConcurrentProbes: fs.Int("max-concurrent-probes", 0, "Maximum number of probes running at the same time (0 = unbounded)"),
	}

	if err := ff.Parse(fs, args, ff.WithEnvVars()); err != nil {
		return nil, errors.Wrap(err, "error parsing flags")
	}

	if *cfg.MaxConcurrentProbes < 0 {
		return nil, errors.Errorf("max-concurrent-probes must not be negative, got %d", *cfg.MaxConcurrentProbes)
	}

	return &cfg, nil
}

func (f *Flags) Options() Options {
	return Options{
		ConfigFile:          *f.ConfigFile,
		WatchConfigFile:     *f.WatchConfigFile,
		ListenAddress:       *f.ListenAddress,
		PrivilegedPing:      *f.PrivilegedPing,
		MaxConcurrentProbes: *f.MaxConcurrentProbes,
	}
}
