package hostname

import (
	"net"
	"testing"

	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aAnswer(name string, ip string) parsetypes.DNSAnswer {
	return parsetypes.DNSAnswer{Type: layers.DNSTypeA, Name: []byte(name), IP: net.ParseIP(ip).To4()}
}

func cnameAnswer(alias, canonical string) parsetypes.DNSAnswer {
	return parsetypes.DNSAnswer{Type: layers.DNSTypeCNAME, Name: []byte(alias), CNAME: []byte(canonical)}
}

func response(source string, answers ...parsetypes.DNSAnswer) parsetypes.Frame {
	return parsetypes.Frame{HasNetwork: true, HasUDP: true, SrcIP: source, DstIP: "10.0.0.1", SrcPort: 53, Answers: answers}
}

func TestObserveAddressRecord(t *testing.T) {
	m := NewMapping(Options{})

	recorded := m.Observe(response("8.8.8.8", aAnswer("example.com", "93.184.216.34")))

	assert.Equal(t, 2, recorded)
	assert.Equal(t, map[string]string{
		"93.184.216.34": "example.com",
		"8.8.8.8":       "example.com",
	}, m.Strings())
}

func TestObserveAliasRecord(t *testing.T) {
	m := NewMapping(Options{})

	m.Observe(response("8.8.8.8",
		cnameAnswer("www.example.com", "edge.example.net"),
		aAnswer("edge.example.net", "192.0.2.10"),
	))

	assert.Equal(t, "edge.example.net", m.Resolve("www.example.com"))
	assert.Equal(t, "edge.example.net", m.Resolve("192.0.2.10"))
	// the responder is associated with the last name it answered about
	assert.Equal(t, "edge.example.net", m.Resolve("8.8.8.8"))
	assert.Equal(t, 3, m.Len())
}

func TestObserveAAAA(t *testing.T) {
	answer := parsetypes.DNSAnswer{Type: layers.DNSTypeAAAA, Name: []byte("v6.example"), IP: net.ParseIP("2001:db8::1")}

	m := NewMapping(Options{IncludeAAAA: true})
	assert.Equal(t, 2, m.Observe(response("2001:db8::53", answer)))
	assert.Equal(t, "v6.example", m.Resolve("2001:db8::1"))

	skipped := NewMapping(Options{IncludeAAAA: false})
	assert.Equal(t, 0, skipped.Observe(response("2001:db8::53", answer)))
	assert.Equal(t, 0, skipped.Len())
}

func TestObserveSkipsMalformedAnswers(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	m := NewMapping(Options{Logger: logrus.NewEntry(logger)})

	recorded := m.Observe(response("8.8.8.8",
		parsetypes.DNSAnswer{Type: layers.DNSTypeA, Name: []byte("noaddr.example")},
		cnameAnswer("", "edge.example.net"),
		parsetypes.DNSAnswer{Type: layers.DNSTypeMX, Name: []byte("mail.example")},
		aAnswer("ok.example", "192.0.2.1"),
	))

	assert.Equal(t, 2, recorded, "only the well formed record is mapped")
	assert.Equal(t, "ok.example", m.Resolve("192.0.2.1"))
	assert.Len(t, hook.AllEntries(), 2, "both malformed records are logged, the unmapped type is not")
}

func TestObserveDecodedFrameWithMalformedAnswer(t *testing.T) {
	packet := parsetypes.TestPacket{
		Timestamp: parsetypes.Seconds(1),
		SrcIP:     "8.8.8.8",
		DstIP:     "10.0.0.1",
		SrcPort:   53,
		DstPort:   5000,
		Transport: parsetypes.TransportUDP,
		Answers: []layers.DNSResourceRecord{
			parsetypes.TestARecord("ok.example", "192.0.2.1"),
			parsetypes.TestARecord("cut.example", "192.0.2.2"),
		},
		TruncateDNS: 2,
	}
	data, err := packet.Serialize()
	require.NoError(t, err)
	frame := parsetypes.DecodeFrame(data, gopacket.CaptureInfo{Timestamp: packet.Timestamp, CaptureLength: len(data), Length: len(data)}, layers.LinkTypeEthernet)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	m := NewMapping(Options{Logger: logrus.NewEntry(logger)})

	assert.Equal(t, 2, m.Observe(frame))
	assert.Equal(t, "ok.example", m.Resolve("192.0.2.1"))
	assert.Equal(t, "ok.example", m.Resolve("8.8.8.8"))
	assert.Equal(t, "192.0.2.2", m.Resolve("192.0.2.2"))

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, 1, hook.LastEntry().Data["dropped"])
}

func TestObserveNormalizesNames(t *testing.T) {
	m := NewMapping(Options{})
	m.Observe(response("8.8.8.8", aAnswer("bad\xffname.example", "192.0.2.1")))

	assert.Equal(t, "badname.example", m.Resolve("192.0.2.1"))
}

func TestCollisionPolicy(t *testing.T) {
	last := NewMapping(Options{Policy: LastWins})
	first := NewMapping(Options{Policy: FirstWins})

	for _, m := range []*Mapping{last, first} {
		m.Set("192.0.2.1", "one.example")
		m.Set("192.0.2.1", "two.example")
	}

	assert.Equal(t, "two.example", last.Resolve("192.0.2.1"))
	assert.Equal(t, "one.example", first.Resolve("192.0.2.1"))
}

func TestResolveIsSingleStep(t *testing.T) {
	m := NewMapping(Options{})
	m.Set("a", "b")
	m.Set("b", "c")

	assert.Equal(t, "b", m.Resolve("a"))
	assert.Equal(t, "unmapped", m.Resolve("unmapped"))

	_, ok := m.Lookup("unmapped")
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	base := NewMapping(Options{Policy: LastWins})
	base.Set("192.0.2.1", "one.example")

	later := NewMapping(Options{Policy: LastWins})
	later.Set("192.0.2.1", "two.example")
	later.Set("192.0.2.2", "three.example")

	base.Merge(later)
	assert.Equal(t, "two.example", base.Resolve("192.0.2.1"))
	assert.Equal(t, []string{"192.0.2.1", "192.0.2.2"}, base.Keys())

	kept := NewMapping(Options{Policy: FirstWins})
	kept.Set("192.0.2.1", "one.example")
	kept.Merge(later)
	assert.Equal(t, "one.example", kept.Resolve("192.0.2.1"))
	assert.Equal(t, "three.example", kept.Resolve("192.0.2.2"))
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy("first")
	require.NoError(t, err)
	assert.Equal(t, FirstWins, policy)

	_, err = ParsePolicy("newest")
	assert.Error(t, err)
}
