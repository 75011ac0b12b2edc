package lab

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"k8s.io/klog/v2"
)

// ProbePublicAddress asks the STUN servers in turn for the mapped address of
// this host and returns the first answer as ip:port. The mapping belongs to
// the probe socket, so only the IP is meaningful to the lab server.
func ProbePublicAddress(ctx context.Context, servers []string, timeout time.Duration) (string, error) {
	if len(servers) == 0 {
		return "", fmt.Errorf("no STUN servers provided")
	}
	var lastErr error
	for _, server := range servers {
		addr, err := probeServer(ctx, server, timeout)
		if err != nil {
			klog.V(2).Infof("STUN server %s: %v", server, err)
			lastErr = err
			continue
		}
		return addr, nil
	}
	return "", lastErr
}

// SameHost reports whether the mapped address carries the expected public IP.
func SameHost(expected, mapped string) bool {
	host, _, err := net.SplitHostPort(mapped)
	if err != nil {
		host = mapped
	}
	a, b := net.ParseIP(strings.TrimSpace(expected)), net.ParseIP(host)
	return a != nil && b != nil && a.Equal(b)
}

type stunReply struct {
	addr stun.XORMappedAddress
	err  error
}

// probeServer runs one binding transaction. The handler and Do can both
// report, so replies holds two and neither send blocks after a timeout.
func probeServer(ctx context.Context, server string, timeout time.Duration) (string, error) {
	host := strings.TrimSpace(server)
	if host == "" {
		return "", fmt.Errorf("empty STUN server")
	}
	uri, err := stun.ParseURI("stun:" + strings.TrimPrefix(host, "stun:"))
	if err != nil {
		return "", fmt.Errorf("%s: %w", server, err)
	}
	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", fmt.Errorf("%s: %w", server, err)
	}
	defer client.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	replies := make(chan stunReply, 2)
	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	klog.V(3).Infof("STUN binding request to %s", host)
	go func() {
		err := client.Do(msg, func(ev stun.Event) {
			var r stunReply
			if r.err = ev.Error; r.err == nil {
				r.err = r.addr.GetFrom(ev.Message)
			}
			replies <- r
		})
		if err != nil {
			replies <- stunReply{err: err}
		}
	}()

	select {
	case r := <-replies:
		if r.err != nil {
			return "", fmt.Errorf("%s: %w", server, r.err)
		}
		klog.V(3).Infof("STUN server %s maps us to %s", host, r.addr)
		return r.addr.String(), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", server, ctx.Err())
	}
}
