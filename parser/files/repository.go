package files

import (
	"time"
)

// Container is the on-disk format of a capture file
type Container string

const (
	// ContainerPcap is the classic libpcap format
	ContainerPcap Container = "pcap"
	// ContainerPcapNG is the pcap next generation format
	ContainerPcapNG Container = "pcapng"
)

//IndexedFile describes a capture file found in the input directory
type IndexedFile struct {
	Path      string
	Length    int64
	ModTime   time.Time
	Hash      string
	Container Container
	// Compressed is set for gzip wrapped captures
	Compressed bool
}

// Name returns a printable form of the container, e.g. "pcapng+gzip"
func (c Container) Name(compressed bool) string {
	if compressed {
		return string(c) + "+gzip"
	}
	return string(c)
}
