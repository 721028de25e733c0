package util

import (
	"fmt"
	"net"
)

// ParseSubnets parses the provided subnets into net.IPNet format.
// Bare addresses are widened to a /32 or /128 network.
func ParseSubnets(subnets []string) ([]*net.IPNet, error) {
	var parsedSubnets []*net.IPNet

	for _, entry := range subnets {
		// Try to parse out CIDR range
		_, block, err := net.ParseCIDR(entry)

		// If there was an error, check if entry was an IP
		if err != nil {
			ipAddr := net.ParseIP(entry)
			if ipAddr == nil {
				return parsedSubnets, fmt.Errorf("invalid subnet %q: %w", entry, err)
			}

			// Check if it's an IPv4 or IPv6 address and append the appropriate subnet mask
			var subnetMask string
			if ipAddr.To4() != nil {
				subnetMask = "/32"
			} else {
				subnetMask = "/128"
			}

			_, block, err = net.ParseCIDR(entry + subnetMask)
			if err != nil {
				return parsedSubnets, fmt.Errorf("invalid subnet %q: %w", entry, err)
			}
		}

		parsedSubnets = append(parsedSubnets, block)
	}
	return parsedSubnets, nil
}

//ContainsIP checks if a collection of subnets contains an IP
func ContainsIP(subnets []*net.IPNet, ip net.IP) bool {
	// cache IPv4 conversion so it not performed every in every Contains call
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}

	for _, block := range subnets {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
