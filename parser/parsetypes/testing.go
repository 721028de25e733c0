package parsetypes

import (
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Transports understood by TestPacket
const (
	TransportTCP  = "TCP"
	TransportUDP  = "UDP"
	TransportICMP = "ICMP"
)

var (
	testSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	testDstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// TestPacket describes a synthetic ethernet frame used to build capture
// fixtures in tests
type TestPacket struct {
	Timestamp  time.Time
	SrcIP      string
	DstIP      string
	SrcPort    uint16
	DstPort    uint16
	Transport  string
	SYN        bool
	PayloadLen int
	// Answers turns a UDP packet into a DNS response carrying these records
	Answers []layers.DNSResourceRecord
	// TruncateDNS cuts this many bytes off the end of the DNS message
	TruncateDNS int
	// RawIP leaves out the ethernet header, for LinkTypeRaw interfaces
	RawIP bool
	// NoNetwork emits an ARP frame instead of an IP packet
	NoNetwork bool
}

// Serialize renders the packet onto the wire with lengths and checksums fixed
func (p TestPacket) Serialize() ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	if p.NoNetwork {
		eth := layers.Ethernet{
			SrcMAC:       testSrcMAC,
			DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			EthernetType: layers.EthernetTypeARP,
		}
		arp := layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   []byte(testSrcMAC),
			SourceProtAddress: []byte{10, 0, 0, 1},
			DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
			DstProtAddress:    []byte{10, 0, 0, 2},
		}
		if err := gopacket.SerializeLayers(buf, opts, &eth, &arp); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	srcIP, dstIP := net.ParseIP(p.SrcIP), net.ParseIP(p.DstIP)
	if srcIP == nil || dstIP == nil {
		return nil, fmt.Errorf("invalid test addresses %q -> %q", p.SrcIP, p.DstIP)
	}

	var ipProto layers.IPProtocol
	switch p.Transport {
	case TransportTCP:
		ipProto = layers.IPProtocolTCP
	case TransportUDP:
		ipProto = layers.IPProtocolUDP
	default:
		ipProto = layers.IPProtocolICMPv4
	}

	eth := layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC}
	var network gopacket.NetworkLayer
	var networkLayer gopacket.SerializableLayer
	if srcIP.To4() != nil {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip4 := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: ipProto, SrcIP: srcIP.To4(), DstIP: dstIP.To4()}
		network, networkLayer = ip4, ip4
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		if ipProto == layers.IPProtocolICMPv4 {
			ipProto = layers.IPProtocolICMPv6
		}
		ip6 := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: ipProto, SrcIP: srcIP, DstIP: dstIP}
		network, networkLayer = ip6, ip6
	}

	toSerialize := []gopacket.SerializableLayer{&eth, networkLayer}
	if p.RawIP {
		toSerialize = toSerialize[1:]
	}

	switch p.Transport {
	case TransportTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(p.SrcPort),
			DstPort: layers.TCPPort(p.DstPort),
			SYN:     p.SYN,
			ACK:     !p.SYN,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		toSerialize = append(toSerialize, tcp)
	case TransportUDP:
		udp := &layers.UDP{SrcPort: layers.UDPPort(p.SrcPort), DstPort: layers.UDPPort(p.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		toSerialize = append(toSerialize, udp)
		if len(p.Answers) > 0 {
			dns, err := p.serializeDNS(opts)
			if err != nil {
				return nil, err
			}
			toSerialize = append(toSerialize, dns)
		}
	}

	if p.PayloadLen > 0 {
		toSerialize = append(toSerialize, gopacket.Payload(make([]byte, p.PayloadLen)))
	}

	if err := gopacket.SerializeLayers(buf, opts, toSerialize...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p TestPacket) serializeDNS(opts gopacket.SerializeOptions) (gopacket.SerializableLayer, error) {
	dns := &layers.DNS{
		ID:           1,
		QR:           true,
		OpCode:       layers.DNSOpCodeQuery,
		RD:           true,
		RA:           true,
		ResponseCode: layers.DNSResponseCodeNoErr,
		Answers:      p.Answers,
	}
	if p.TruncateDNS <= 0 {
		return dns, nil
	}

	buf := gopacket.NewSerializeBuffer()
	if err := dns.SerializeTo(buf, opts); err != nil {
		return nil, err
	}
	message := buf.Bytes()
	if p.TruncateDNS >= len(message) {
		return nil, fmt.Errorf("cannot cut %d bytes from a %d byte dns message", p.TruncateDNS, len(message))
	}
	return gopacket.Payload(message[:len(message)-p.TruncateDNS]), nil
}

// TestARecord builds an A answer record
func TestARecord(name, ip string) layers.DNSResourceRecord {
	return layers.DNSResourceRecord{
		Name:  []byte(name),
		Type:  layers.DNSTypeA,
		Class: layers.DNSClassIN,
		TTL:   300,
		IP:    net.ParseIP(ip).To4(),
	}
}

// TestAAAARecord builds an AAAA answer record
func TestAAAARecord(name, ip string) layers.DNSResourceRecord {
	return layers.DNSResourceRecord{
		Name:  []byte(name),
		Type:  layers.DNSTypeAAAA,
		Class: layers.DNSClassIN,
		TTL:   300,
		IP:    net.ParseIP(ip),
	}
}

// TestCNAMERecord builds a CNAME answer record
func TestCNAMERecord(alias, canonical string) layers.DNSResourceRecord {
	return layers.DNSResourceRecord{
		Name:  []byte(alias),
		Type:  layers.DNSTypeCNAME,
		Class: layers.DNSClassIN,
		TTL:   300,
		CNAME: []byte(canonical),
	}
}

// Seconds converts fractional unix seconds into a time.Time
func Seconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second))).UTC()
}
