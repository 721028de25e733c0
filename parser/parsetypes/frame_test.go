package parsetypes

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTestPacket(t *testing.T, p TestPacket) Frame {
	t.Helper()
	data, err := p.Serialize()
	require.NoError(t, err)

	ci := gopacket.CaptureInfo{Timestamp: p.Timestamp, CaptureLength: len(data), Length: len(data)}
	return DecodeFrame(data, ci, layers.LayerTypeEthernet)
}

func TestDecodeTCPFrame(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp:  Seconds(1.5),
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.2",
		SrcPort:    1234,
		DstPort:    80,
		Transport:  TransportTCP,
		SYN:        true,
		PayloadLen: 20,
	})

	assert.True(t, frame.HasNetwork)
	assert.True(t, frame.HasTCP)
	assert.False(t, frame.HasUDP)
	assert.Equal(t, "10.0.0.1", frame.SrcIP)
	assert.Equal(t, "10.0.0.2", frame.DstIP)
	assert.Equal(t, uint16(1234), frame.SrcPort)
	assert.Equal(t, uint16(80), frame.DstPort)
	assert.True(t, frame.SYN)
	assert.Equal(t, 60, frame.Length, "ipv4 header + tcp header + payload")
	assert.InDelta(t, 1.5, frame.Seconds(), 1e-9)
}

func TestDecodeUDPFrame(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp:  Seconds(2),
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.3",
		SrcPort:    40000,
		DstPort:    123,
		Transport:  TransportUDP,
		PayloadLen: 48,
	})

	assert.True(t, frame.HasNetwork)
	assert.True(t, frame.HasUDP)
	assert.False(t, frame.HasTCP)
	assert.False(t, frame.SYN)
	assert.Equal(t, uint16(123), frame.DstPort)
	assert.Equal(t, 20+8+48, frame.Length)
	assert.Empty(t, frame.Answers)
}

func TestDecodeIPv6Frame(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp:  Seconds(3),
		SrcIP:      "2001:db8::1",
		DstIP:      "2001:db8::2",
		SrcPort:    50000,
		DstPort:    443,
		Transport:  TransportTCP,
		SYN:        true,
		PayloadLen: 10,
	})

	assert.True(t, frame.HasNetwork)
	assert.True(t, frame.HasTCP)
	assert.Equal(t, "2001:db8::1", frame.SrcIP)
	assert.Equal(t, 40+20+10, frame.Length)
}

func TestDecodeNonIPFrame(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{Timestamp: Seconds(4), NoNetwork: true})

	assert.False(t, frame.HasNetwork)
	assert.False(t, frame.HasTCP)
	assert.False(t, frame.HasUDP)
	assert.Empty(t, frame.SrcIP)
	assert.Equal(t, 0, frame.Length)
}

func TestDecodeICMPFrame(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp:  Seconds(5),
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.9",
		Transport:  TransportICMP,
		PayloadLen: 8,
	})

	assert.True(t, frame.HasNetwork)
	assert.False(t, frame.HasTCP)
	assert.False(t, frame.HasUDP)
	assert.Equal(t, uint16(0), frame.DstPort)
}

func TestDecodeDNSAnswers(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp: Seconds(6),
		SrcIP:     "8.8.8.8",
		DstIP:     "10.0.0.1",
		SrcPort:   53,
		DstPort:   53000,
		Transport: TransportUDP,
		Answers: []layers.DNSResourceRecord{
			TestCNAMERecord("www.example.com", "edge.example.net"),
			TestARecord("edge.example.net", "93.184.216.34"),
		},
	})

	require.Len(t, frame.Answers, 2)

	assert.Equal(t, layers.DNSTypeCNAME, frame.Answers[0].Type)
	assert.Equal(t, "www.example.com", string(frame.Answers[0].Name))
	assert.Equal(t, "edge.example.net", string(frame.Answers[0].CNAME))

	assert.Equal(t, layers.DNSTypeA, frame.Answers[1].Type)
	assert.Equal(t, "edge.example.net", string(frame.Answers[1].Name))
	assert.Equal(t, "93.184.216.34", frame.Answers[1].IP.String())
}

func TestDecodeKeepsAnswersBeforeMalformedRecord(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp: Seconds(7),
		SrcIP:     "8.8.8.8",
		DstIP:     "10.0.0.1",
		SrcPort:   53,
		DstPort:   5000,
		Transport: TransportUDP,
		Answers: []layers.DNSResourceRecord{
			TestARecord("ok.example", "192.0.2.1"),
			TestARecord("cut.example", "192.0.2.2"),
		},
		// the last answer loses half of its address
		TruncateDNS: 2,
	})

	require.Len(t, frame.Answers, 1)
	assert.Equal(t, "ok.example", string(frame.Answers[0].Name))
	assert.Equal(t, "192.0.2.1", frame.Answers[0].IP.String())
	assert.Equal(t, 1, frame.DroppedAnswers)
	assert.True(t, frame.HasUDP)
}

func TestDecodeDropsOnlyMalformedAnswer(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp:   Seconds(8),
		SrcIP:       "8.8.8.8",
		DstIP:       "10.0.0.1",
		SrcPort:     53,
		DstPort:     5000,
		Transport:   TransportUDP,
		Answers:     []layers.DNSResourceRecord{TestARecord("cut.example", "192.0.2.2")},
		TruncateDNS: 3,
	})

	assert.Empty(t, frame.Answers)
	assert.Equal(t, 1, frame.DroppedAnswers)
}

func TestDecodeIgnoresBrokenPayloadOffDNSPort(t *testing.T) {
	frame := decodeTestPacket(t, TestPacket{
		Timestamp:  Seconds(9),
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.3",
		SrcPort:    40000,
		DstPort:    123,
		Transport:  TransportUDP,
		PayloadLen: 48,
	})

	assert.Empty(t, frame.Answers)
	assert.Equal(t, 0, frame.DroppedAnswers)
}

func TestRecoverDNSShortPayload(t *testing.T) {
	dns, dropped := recoverDNS([]byte{0, 1, 0x81, 0x80})
	assert.Nil(t, dns)
	assert.Equal(t, 0, dropped)

	// a header announcing far more answers than the payload can hold
	header := []byte{0, 1, 0x81, 0x80, 0, 0, 0xff, 0xff, 0, 0, 0, 0}
	dns, dropped = recoverDNS(header)
	require.NotNil(t, dns)
	assert.Empty(t, dns.Answers)
	assert.Equal(t, 0xffff, dropped)
}
