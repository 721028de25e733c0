package conntrack

import (
	"testing"

	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpFrame(src string, srcPort uint16, dst string, dstPort uint16, syn bool) parsetypes.Frame {
	return parsetypes.Frame{
		HasNetwork: true,
		HasTCP:     true,
		SrcIP:      src,
		SrcPort:    srcPort,
		DstIP:      dst,
		DstPort:    dstPort,
		SYN:        syn,
	}
}

func TestKeys(t *testing.T) {
	frame := tcpFrame("10.0.0.1", 1234, "10.0.0.2", 80, false)
	assert.Equal(t, Key("10.0.0.1:1234->10.0.0.2:80"), ForwardKey(frame))
	assert.Equal(t, Key("10.0.0.2:80->10.0.0.1:1234"), ReverseKey(frame))
}

func TestProbeHandshake(t *testing.T) {
	tracker, err := NewTracker(0)
	require.NoError(t, err)

	syn := tcpFrame("10.0.0.1", 1234, "10.0.0.2", 80, true)
	reply := tcpFrame("10.0.0.2", 80, "10.0.0.1", 1234, true)
	data := tcpFrame("10.0.0.1", 1234, "10.0.0.2", 80, false)

	assert.Equal(t, New, tracker.Probe(syn))
	assert.Equal(t, Reverse, tracker.Probe(reply), "a SYN/ACK travels back to the initiator")
	assert.Equal(t, Forward, tracker.Probe(data))
	assert.Equal(t, Forward, tracker.Probe(syn), "a retransmitted SYN continues the connection")
	assert.Equal(t, 1, tracker.Len())
	assert.True(t, tracker.Established(ForwardKey(syn)))
	assert.False(t, tracker.Established(ReverseKey(syn)))
}

func TestProbeRejectsMidStream(t *testing.T) {
	tracker, err := NewTracker(0)
	require.NoError(t, err)

	assert.Equal(t, Reject, tracker.Probe(tcpFrame("10.0.0.1", 1234, "10.0.0.2", 80, false)))
	assert.Equal(t, 0, tracker.Len(), "rejected frames record nothing")
}

func TestReset(t *testing.T) {
	tracker, err := NewTracker(0)
	require.NoError(t, err)

	tracker.Probe(tcpFrame("10.0.0.1", 1234, "10.0.0.2", 80, true))
	tracker.Reset()

	assert.Equal(t, 0, tracker.Len())
	assert.Equal(t, Reject, tracker.Probe(tcpFrame("10.0.0.2", 80, "10.0.0.1", 1234, false)))
}

func TestBoundedTrackerEvictsLeastRecentlyActive(t *testing.T) {
	tracker, err := NewTracker(2)
	require.NoError(t, err)

	first := tcpFrame("10.0.0.1", 1000, "10.0.0.9", 80, true)
	second := tcpFrame("10.0.0.1", 1001, "10.0.0.9", 80, true)
	third := tcpFrame("10.0.0.1", 1002, "10.0.0.9", 80, true)

	assert.Equal(t, New, tracker.Probe(first))
	assert.Equal(t, New, tracker.Probe(second))

	// activity on the first connection makes the second the eviction candidate
	first.SYN = false
	assert.Equal(t, Forward, tracker.Probe(first))

	assert.Equal(t, New, tracker.Probe(third))
	assert.Equal(t, 2, tracker.Len())
	assert.True(t, tracker.Established(ForwardKey(first)))
	assert.False(t, tracker.Established(ForwardKey(second)))
	assert.True(t, tracker.Established(ForwardKey(third)))

	second.SYN = false
	assert.Equal(t, Reject, tracker.Probe(second))
}

func TestNewTrackerRejectsNegativeLimit(t *testing.T) {
	_, err := NewTracker(-1)
	assert.Error(t, err)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "new", New.String())
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "reverse", Reverse.String())
	assert.Equal(t, "reject", Reject.String())
}
