package files

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"

	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// TestCaptureOptions selects the container written by WriteTestCapture
type TestCaptureOptions struct {
	PcapNG bool
	Gzip   bool
}

// WriteTestCapture writes the packets to path as an ethernet capture
func WriteTestCapture(path string, opts TestCaptureOptions, packets ...parsetypes.TestPacket) error {
	var raw bytes.Buffer
	if err := encodeTestCapture(&raw, opts.PcapNG, packets); err != nil {
		return err
	}

	data := raw.Bytes()
	if opts.Gzip {
		var compressed bytes.Buffer
		zw := gzip.NewWriter(&compressed)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = compressed.Bytes()
	}
	return os.WriteFile(path, data, 0644)
}

func encodeTestCapture(w io.Writer, pcapng bool, packets []parsetypes.TestPacket) error {
	type packetWriter interface {
		WritePacket(gopacket.CaptureInfo, []byte) error
	}

	var writer packetWriter
	var flush func() error
	if pcapng {
		ngWriter, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
		if err != nil {
			return err
		}
		writer, flush = ngWriter, ngWriter.Flush
	} else {
		pcapWriter := pcapgo.NewWriter(w)
		if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
			return err
		}
		writer, flush = pcapWriter, func() error { return nil }
	}

	for _, packet := range packets {
		data, err := packet.Serialize()
		if err != nil {
			return err
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     packet.Timestamp,
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := writer.WritePacket(ci, data); err != nil {
			return err
		}
	}
	return flush()
}
