package transport

import (
	"fmt"
	"net"
)

// ResolveHost turns a host argument into an IP address. Dotted numeric
// literals and the literal localhost short-circuit; anything else goes
// through name resolution, preferring an IPv4 answer. Failures surface at
// connect time and are never retried here.
func ResolveHost(host string) (net.IP, error) {
	if host == "localhost" {
		return net.IPv4(127, 0, 0, 1), nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", host, err)
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4, nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0], nil
	}
	return nil, fmt.Errorf("failed to resolve %q: no addresses", host)
}
