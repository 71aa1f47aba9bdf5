package dns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Public resolvers raced when the system resolver cannot answer.
var publicDNS = []string{
	"1.1.1.1",
	"1.0.0.1",
	"[2606:4700:4700::1111]",
	"8.8.8.8",
	"8.8.4.4",
	"[2001:4860:4860::8888]",
	"9.9.9.9",
	"149.112.112.112",
	"208.67.222.222",
}

type lookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolver finds the relay host, falling back to public DNS when the local
// configuration fails (captive resolvers, broken split-horizon setups).
type Resolver struct {
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration

	local  lookupFunc
	remote []lookupFunc
}

func NewResolver() *Resolver {
	r := &Resolver{
		LocalTimeout:  time.Second,
		RemoteTimeout: 2 * time.Second,
		local:         (&net.Resolver{}).LookupHost,
	}
	for _, server := range publicDNS {
		r.remote = append(r.remote, serverLookup(server))
	}
	return r
}

// Lookup resolves host to a single address, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	localCtx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ips, err := r.local(localCtx, host)
	cancel()
	if err == nil && len(ips) > 0 {
		return preferIPv4(ips), nil
	}
	slog.Debug("system DNS lookup failed, racing public resolvers", "host", host, "error", err)

	return r.race(ctx, host)
}

// race returns the first successful answer from the public resolvers.
func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.remote) == 0 {
		return "", fmt.Errorf("failed to resolve %s: no public resolvers configured", host)
	}

	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.remote))
	for _, lookup := range r.remote {
		go func(lookup lookupFunc) {
			ips, err := lookup(ctx, host)
			if err == nil && len(ips) == 0 {
				err = errors.New("no IPs returned")
			}
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{ip: preferIPv4(ips)}
		}(lookup)
	}

	failures := 0
	for range r.remote {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("DNS lookup for %s timed out during public DNS race", host)
		}
	}

	return "", fmt.Errorf("failed to resolve %s: all %d public DNS servers failed", host, failures)
}

// DialContext resolves the host part of addr before dialing so it can be
// plugged into a websocket.Dialer.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func serverLookup(server string) lookupFunc {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
	return r.LookupHost
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}

func preferIPv4(ips []string) string {
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip
		}
	}
	return ips[0]
}
