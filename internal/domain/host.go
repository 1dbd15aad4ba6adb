// Package domain holds the core value types shared by every pipeline
// stage: hosts, attempt records, thresholds, and classifier results.
package domain

import (
	"fmt"
	"net"
)

// Host is a validated IPv4 or IPv6 source address. It is the unit every
// pipeline stage keys its state on: attempt counters, the deny file,
// the firewall's blocked set, and the allow-list all index by Host.
type Host string

// ParseHost validates s as an IPv4/IPv6 textual address and returns it
// as a Host. Non-conforming strings are rejected here so that malformed
// addresses never reach the attempt store or the deny file.
func ParseHost(s string) (Host, error) {
	if net.ParseIP(s) == nil {
		return "", fmt.Errorf("invalid host address: %q", s)
	}
	return Host(s), nil
}

// String implements fmt.Stringer.
func (h Host) String() string { return string(h) }

// IsIPv6 reports whether the host parses as an IPv6 address.
func (h Host) IsIPv6() bool {
	ip := net.ParseIP(string(h))
	return ip != nil && ip.To4() == nil
}
