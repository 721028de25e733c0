package parser

import (
	"net"

	"github.com/activecm/flowledger/config"
	"github.com/activecm/flowledger/util"
)

// filter drops traffic to or from subnets the user never wants to see
type filter struct {
	alwaysIncluded []*net.IPNet
	neverIncluded  []*net.IPNet
}

func newFilter(conf *config.Config) filter {
	return filter{
		alwaysIncluded: conf.R.Filtering.AlwaysIncluded,
		neverIncluded:  conf.R.Filtering.NeverIncluded,
	}
}

// active reports whether any never-include subnet is configured
func (f filter) active() bool {
	return len(f.neverIncluded) > 0
}

// filterPair reports whether traffic between src and dst should be ignored.
// An address on both lists is kept.
func (f filter) filterPair(src string, dst string) (ignore bool) {
	if !f.active() {
		return false
	}

	// parse src and dst IPs
	srcIP := net.ParseIP(src)
	dstIP := net.ParseIP(dst)

	return f.isExcluded(srcIP) || f.isExcluded(dstIP)
}

// isExcluded checks if a single IP address is on the never included list
// without being rescued by the always included list
func (f filter) isExcluded(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return util.ContainsIP(f.neverIncluded, ip) && !util.ContainsIP(f.alwaysIncluded, ip)
}
