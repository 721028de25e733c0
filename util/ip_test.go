package util

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type parseSubnetsTestCase struct {
	nets    []string
	out     []*net.IPNet
	wantErr bool
	msg     string
}

// Ensures ParseSubnets returns expected net.IPNets and returns
// error when invalid IP address/CIDR network is provided.
func TestParseSubnets(t *testing.T) {
	validNets := []string{"192.168.0.0/24", "2001:db8::/32", "192.168.0.1", "2001:db8::1"}
	validNetsOutput := createIPNets([]string{"192.168.0.0/24", "2001:db8::/32", "192.168.0.1/32", "2001:db8::1/128"})

	testCases := []parseSubnetsTestCase{
		{validNets, validNetsOutput, false, "valid subnets and bare addresses"},
		{[]string{"invalidIP"}, nil, true, "not an address"},
		{[]string{"300.0.0.0/24"}, nil, true, "octet out of range"},
	}

	for _, testCase := range testCases {
		output, err := ParseSubnets(testCase.nets)
		if testCase.wantErr {
			assert.Error(t, err, testCase.msg)
			continue
		}
		assert.NoError(t, err, testCase.msg)
		assert.Equal(t, testCase.out, output, testCase.msg)
	}
}

func TestContainsIP(t *testing.T) {
	subnets := createIPNets([]string{"10.0.0.0/8", "2001:db8::/32"})

	assert.True(t, ContainsIP(subnets, net.ParseIP("10.1.2.3")))
	assert.True(t, ContainsIP(subnets, net.ParseIP("2001:db8::5")))
	assert.False(t, ContainsIP(subnets, net.ParseIP("192.168.1.1")))
	assert.False(t, ContainsIP(nil, net.ParseIP("10.1.2.3")))
}

func createIPNets(nets []string) []*net.IPNet {
	var out []*net.IPNet
	for _, n := range nets {
		_, block, _ := net.ParseCIDR(n)
		out = append(out, block)
	}
	return out
}
