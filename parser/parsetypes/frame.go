package parsetypes

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ipv6HeaderLength is added to the IPv6 payload length so that both
// address families report the full network-layer length
const ipv6HeaderLength = 40

const (
	dnsPort         = 53
	dnsHeaderLength = 12
	// a resource record holds at least a root name and its fixed fields
	dnsMinRecordLength = 11
)

type (
	// Frame holds the header fields of one decoded packet. Frames are
	// produced once per captured packet and never modified afterwards.
	Frame struct {
		HasNetwork bool
		HasTCP     bool
		HasUDP     bool
		SrcIP      string
		DstIP      string
		SrcPort    uint16
		DstPort    uint16
		SYN        bool
		Timestamp  time.Time
		// Length is the network-layer length of the packet in bytes
		Length  int
		Answers []DNSAnswer
		// DroppedAnswers counts the DNS answers which could not be decoded
		DroppedAnswers int
	}

	// DNSAnswer is one resource record from the answer section of a DNS message
	DNSAnswer struct {
		Type  layers.DNSType
		Name  []byte
		IP    net.IP
		CNAME []byte
	}
)

// Seconds returns the frame timestamp as fractional unix seconds
func (f Frame) Seconds() float64 {
	return float64(f.Timestamp.UnixNano()) / float64(time.Second)
}

// NewFrame extracts a Frame from a decoded packet. Packets without an
// IPv4 or IPv6 layer produce a frame with HasNetwork unset and nothing else
// filled in.
func NewFrame(packet gopacket.Packet) Frame {
	var frame Frame
	if md := packet.Metadata(); md != nil {
		frame.Timestamp = md.Timestamp
	}

	switch network := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		frame.HasNetwork = true
		frame.SrcIP = network.SrcIP.String()
		frame.DstIP = network.DstIP.String()
		frame.Length = int(network.Length)
	case *layers.IPv6:
		frame.HasNetwork = true
		frame.SrcIP = network.SrcIP.String()
		frame.DstIP = network.DstIP.String()
		frame.Length = int(network.Length) + ipv6HeaderLength
	default:
		return frame
	}

	var udp *layers.UDP
	if tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		frame.HasTCP = true
		frame.SrcPort = uint16(tcp.SrcPort)
		frame.DstPort = uint16(tcp.DstPort)
		frame.SYN = tcp.SYN
	} else if udp, ok = packet.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		frame.HasUDP = true
		frame.SrcPort = uint16(udp.SrcPort)
		frame.DstPort = uint16(udp.DstPort)
	}

	dns, dropped := dnsLayer(packet, udp)
	frame.DroppedAnswers = dropped
	if dns != nil && len(dns.Answers) > 0 {
		frame.Answers = make([]DNSAnswer, 0, len(dns.Answers))
		for _, rr := range dns.Answers {
			frame.Answers = append(frame.Answers, DNSAnswer{
				Type:  rr.Type,
				Name:  copyBytes(rr.Name),
				IP:    net.IP(copyBytes(rr.IP)),
				CNAME: copyBytes(rr.CNAME),
			})
		}
	}

	return frame
}

// DecodeFrame decodes raw packet data read from a capture container
func DecodeFrame(data []byte, ci gopacket.CaptureInfo, decoder gopacket.Decoder) Frame {
	packet := gopacket.NewPacket(data, decoder, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	packet.Metadata().CaptureInfo = ci
	return NewFrame(packet)
}

// dnsLayer returns the DNS message carried by the packet and the number of
// answers that had to be left out of it. gopacket drops the whole DNS layer
// when a single resource record fails to decode, so a DNS port payload
// without a DNS layer is decoded again with fewer answers until the leading
// well formed records come through.
func dnsLayer(packet gopacket.Packet, udp *layers.UDP) (*layers.DNS, int) {
	if dns, ok := packet.Layer(layers.LayerTypeDNS).(*layers.DNS); ok {
		return dns, 0
	}
	if udp == nil || (udp.SrcPort != dnsPort && udp.DstPort != dnsPort) {
		return nil, 0
	}
	return recoverDNS(udp.Payload)
}

func recoverDNS(payload []byte) (*layers.DNS, int) {
	if len(payload) < dnsHeaderLength {
		return nil, 0
	}
	data := copyBytes(payload)
	announced := int(binary.BigEndian.Uint16(data[6:8]))

	// authority and additional records sit behind the answers
	binary.BigEndian.PutUint16(data[8:10], 0)
	binary.BigEndian.PutUint16(data[10:12], 0)

	answers := announced
	if fit := (len(data) - dnsHeaderLength) / dnsMinRecordLength; answers > fit {
		answers = fit
	}
	for ; answers >= 0; answers-- {
		binary.BigEndian.PutUint16(data[6:8], uint16(answers))
		if dns, err := decodeDNS(data); err == nil {
			return dns, announced - len(dns.Answers)
		}
	}
	return nil, 0
}

// decodeDNS decodes a DNS message outside of gopacket's packet decoding,
// which is what normally recovers from decoder panics on short records
func decodeDNS(data []byte) (dns *layers.DNS, err error) {
	defer func() {
		if r := recover(); r != nil {
			dns, err = nil, fmt.Errorf("could not decode dns message: %v", r)
		}
	}()
	dns = &layers.DNS{}
	if err := dns.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, err
	}
	return dns, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
