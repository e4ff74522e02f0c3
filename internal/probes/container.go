package probes

import (
	"context"
	"strings"
	"sync"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DockerClient interface for testing purposes.
type DockerClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// ContainerProber treats the target address as a Docker container name and
// reports it alive while the container is running.
type ContainerProber struct {
	// NewClient is called on first use so hosts without Docker can still run
	// ping and http targets.
	NewClient func() (DockerClient, error)

	Logger *zap.Logger

	mu     sync.Mutex
	client DockerClient
}

func NewContainerProber(logger *zap.Logger) *ContainerProber {
	return &ContainerProber{
		NewClient: func() (DockerClient, error) {
			return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		},
		Logger: logger,
	}
}

func (c *ContainerProber) dockerClient() (DockerClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	cli, err := c.NewClient()
	if err != nil {
		return nil, errors.Wrap(err, "error creating docker client")
	}
	c.client = cli

	return cli, nil
}

// Probe implements Strategy.
func (c *ContainerProber) Probe(ctx context.Context, target monitorconfig.EffectiveConfig) Result {
	cli, err := c.dockerClient()
	if err != nil {
		return Result{Err: err}
	}

	name := strings.TrimPrefix(target.Address, "/")

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to list containers")}
	}

	// The name filter matches substrings, so compare exactly.
	for _, ct := range containers {
		for _, n := range ct.Names {
			if strings.TrimPrefix(n, "/") == name {
				c.Logger.Debug("Container found", zap.String("container", name), zap.String("state", string(ct.State)))
				return Result{Alive: ct.State == "running"}
			}
		}
	}

	return Result{Err: errors.Errorf("container %q not found", name)}
}

func (c *ContainerProber) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if closer, ok := c.client.(interface{ Close() error }); ok {
		c.client = nil
		return closer.Close()
	}
	return nil
}
