package flow

import (
	"strconv"

	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/activecm/flowledger/pkg/conntrack"
)

const (
	// ProtocolTCP labels flows carried over TCP
	ProtocolTCP = "TCP"
	// ProtocolUDP labels flows carried over UDP
	ProtocolUDP = "UDP"
	// ProtocolUnknown labels IP traffic with any other transport
	ProtocolUnknown = "unknown"

	// UnknownPort is the port recorded for transports without ports
	UnknownPort = "0"
)

// Direction tells which counter of a ledger entry a frame is charged to
type Direction string

const (
	// Upload is traffic from the flow source to the flow destination
	Upload Direction = "upload"
	// Download is traffic from the flow destination back to the flow source
	Download Direction = "download"
)

// Flow is a frame attributed to a conversation. Source is always the side
// that started the conversation, so for Download flows it is the frame's
// destination address.
type Flow struct {
	Source      string
	Destination string
	Protocol    string
	Port        string
	Direction   Direction
}

// Classify attributes a frame to a flow. The verdict is only consulted for
// TCP frames. ok is false for frames without a network layer and for
// rejected TCP frames.
func Classify(frame parsetypes.Frame, verdict conntrack.Verdict) (Flow, bool) {
	if !frame.HasNetwork {
		return Flow{}, false
	}

	switch {
	case frame.HasTCP:
		switch verdict {
		case conntrack.New, conntrack.Forward:
			return Flow{
				Source:      frame.SrcIP,
				Destination: frame.DstIP,
				Protocol:    ProtocolTCP,
				Port:        portString(frame.DstPort),
				Direction:   Upload,
			}, true
		case conntrack.Reverse:
			// the frame answers a known connection: its source port is the
			// port the initiator connected to
			return Flow{
				Source:      frame.DstIP,
				Destination: frame.SrcIP,
				Protocol:    ProtocolTCP,
				Port:        portString(frame.SrcPort),
				Direction:   Download,
			}, true
		default:
			return Flow{}, false
		}
	case frame.HasUDP:
		return Flow{
			Source:      frame.SrcIP,
			Destination: frame.DstIP,
			Protocol:    ProtocolUDP,
			Port:        portString(frame.DstPort),
			Direction:   Upload,
		}, true
	default:
		return Flow{
			Source:      frame.SrcIP,
			Destination: frame.DstIP,
			Protocol:    ProtocolUnknown,
			Port:        UnknownPort,
			Direction:   Upload,
		}, true
	}
}

func portString(port uint16) string {
	return strconv.FormatUint(uint64(port), 10)
}
