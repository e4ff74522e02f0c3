package probes

import (
	"context"
	"net"
	"os"
	"time"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/pkg/errors"
	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// minReplies is the number of echo replies needed to consider a host up.
const minReplies = 1

var ErrPingPermission = errors.New("not allowed to open an ICMP socket; run with -ping-privileged (needs CAP_NET_RAW) or add the process group to net.ipv4.ping_group_range")

type PingStats struct {
	Received int
	RTT      time.Duration
}

// PingFunc sends ICMP echo requests to ip and waits at most timeout for replies.
type PingFunc func(ctx context.Context, ip *net.IPAddr, timeout time.Duration) (PingStats, error)

type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// PingProber checks reachability with ICMP echo.
type PingProber struct {
	Resolver Resolver
	Ping     PingFunc

	Logger *zap.Logger
}

func NewPingProber(logger *zap.Logger, privileged bool) *PingProber {
	return &PingProber{
		Resolver: net.DefaultResolver,
		Ping:     icmpEcho(privileged),
		Logger:   logger,
	}
}

// Probe implements Strategy.
func (p *PingProber) Probe(ctx context.Context, target monitorconfig.EffectiveConfig) Result {
	host, err := Hostname(target.Address)
	if err != nil {
		return Result{Err: err}
	}

	addrs, err := p.Resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return Result{Err: errors.Wrapf(err, "error resolving %q", host)}
	}
	if len(addrs) == 0 {
		return Result{Err: errors.Errorf("no address found for %q", host)}
	}

	ip := preferIPv4(addrs)
	p.Logger.Debug("Sending ICMP echo", zap.String("target", target.Name), zap.String("ip", ip.String()))

	stats, err := p.Ping(ctx, &ip, target.Timeout)
	if errors.Is(err, os.ErrPermission) {
		err = errors.Wrap(ErrPingPermission, err.Error())
		p.Logger.Warn("ICMP echo not permitted",
			zap.String("target", target.Name),
			zap.String("address", target.Address),
			zap.Error(err),
		)
	}
	if err != nil {
		return Result{Err: errors.Wrapf(err, "error pinging %s", ip.String())}
	}

	return Result{
		Alive:   stats.Received >= minReplies,
		Latency: stats.RTT,
	}
}

func preferIPv4(addrs []net.IPAddr) net.IPAddr {
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a
		}
	}
	return addrs[0]
}

func icmpEcho(privileged bool) PingFunc {
	return func(ctx context.Context, ip *net.IPAddr, timeout time.Duration) (PingStats, error) {
		pinger := probing.New(ip.String())
		pinger.SetIPAddr(ip)
		pinger.SetPrivileged(privileged)
		pinger.Count = minReplies
		pinger.Timeout = timeout

		if err := pinger.RunWithContext(ctx); err != nil {
			return PingStats{}, errors.Wrap(err, "error sending icmp echo")
		}

		stats := pinger.Statistics()
		return PingStats{
			Received: stats.PacketsRecv,
			RTT:      stats.AvgRtt,
		}, nil
	}
}
