package files

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/activecm/flowledger/util"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

// ErrUnknownContainer is returned for files that are neither pcap nor pcapng,
// compressed or not
var ErrUnknownContainer = errors.New("unrecognized capture container")

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}
)

// microsecond and nanosecond magics of the classic pcap header, in either byte order
var pcapMagics = []uint32{0xa1b2c3d4, 0xa1b23c4d}

// GatherCaptureFiles lists the regular files directly inside dir whose name
// contains marker, ignoring case. The result is sorted by name.
func GatherCaptureFiles(dir string, marker string, logger log.FieldLogger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read input directory %s: %w", dir, err)
	}

	var toReturn []string
	for _, entry := range entries {
		if !util.ContainsFold(entry.Name(), marker) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// symlinks to regular files are followed, nested directories are not
		if !util.IsRegularFile(path) {
			logger.WithFields(log.Fields{
				"path": path,
			}).Debug("Ignoring capture marker match which is not a regular file")
			continue
		}
		toReturn = append(toReturn, path)
	}
	sort.Strings(toReturn)
	return toReturn, nil
}

// sniffContainer inspects the leading bytes of a (decompressed) capture
func sniffContainer(head []byte) (Container, error) {
	if len(head) < 4 {
		return "", ErrUnknownContainer
	}
	if bytes.Equal(head[:4], pcapngMagic) {
		return ContainerPcapNG, nil
	}
	for _, magic := range pcapMagics {
		if binary.LittleEndian.Uint32(head) == magic || binary.BigEndian.Uint32(head) == magic {
			return ContainerPcap, nil
		}
	}
	return "", ErrUnknownContainer
}

// packetDataSource is implemented by both pcapgo readers
type packetDataSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Capture reads frames from an open capture file
type Capture struct {
	Container  Container
	Compressed bool
	source     packetDataSource
	closer     func() error
}

// OpenCapture opens a pcap or pcapng file, transparently decompressing gzip
func OpenCapture(path string) (*Capture, error) {
	fileHandle, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	capture, err := newCapture(fileHandle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return capture, nil
}

func newCapture(fileHandle *os.File) (*Capture, error) {
	capture := &Capture{closer: fileHandle.Close}

	buffered := bufio.NewReader(fileHandle)
	head, _ := buffered.Peek(4)
	var stream io.Reader = buffered

	if len(head) >= 2 && bytes.Equal(head[:2], gzipMagic) {
		gzipReader, closer, err := newGzipReader(buffered, fileHandle)
		if err != nil {
			closer()
			return nil, err
		}
		capture.closer = closer
		capture.Compressed = true
		buffered = bufio.NewReader(gzipReader)
		head, _ = buffered.Peek(4)
		stream = buffered
	}

	container, err := sniffContainer(head)
	if err != nil {
		capture.closer()
		return nil, err
	}
	capture.Container = container

	switch container {
	case ContainerPcapNG:
		capture.source, err = pcapgo.NewNgReader(stream, pcapgo.DefaultNgReaderOptions)
	default:
		capture.source, err = pcapgo.NewReader(stream)
	}
	if err != nil {
		capture.closer()
		return nil, fmt.Errorf("%w: %v", ErrUnknownContainer, err)
	}
	return capture, nil
}

// ReadFrame decodes the next packet of the capture. It returns io.EOF once
// the capture is exhausted.
func (c *Capture) ReadFrame() (parsetypes.Frame, error) {
	data, ci, err := c.source.ReadPacketData()
	if err != nil {
		return parsetypes.Frame{}, err
	}
	return parsetypes.DecodeFrame(data, ci, c.linkType(ci)), nil
}

// linkType returns the link type of the interface a packet was captured on.
// A pcapng file may mix interfaces of different link types.
func (c *Capture) linkType(ci gopacket.CaptureInfo) layers.LinkType {
	if ng, ok := c.source.(*pcapgo.NgReader); ok {
		if intf, err := ng.Interface(ci.InterfaceIndex); err == nil {
			return intf.LinkType
		}
	}
	return c.source.LinkType()
}

// Close releases the file and any decompression subprocess
func (c *Capture) Close() error {
	return c.closer()
}

//newGzipReader returns an un-gzipped byte stream given a gzip compressed byte stream.
//This method tries to use the system's pigz or gzip implementation before relying on
//Golang's gzip package (as it is quite slow). Returns stream to read from, a function to
//close the underlying stream, and any err that may occur when opening the stream.
func newGzipReader(compressed io.Reader, fileHandle io.Closer) (reader io.Reader, closer func() error, err error) {
	// by default just close out the underlying file handle
	// works for built in gzip library and error cases
	closer = fileHandle.Close

	var gzipPath string
	if path, err := exec.LookPath("pigz"); err == nil {
		gzipPath = path
	} else if path, err := exec.LookPath("gzip"); err == nil {
		gzipPath = path
	} else {
		reader, err = gzip.NewReader(compressed)
		return reader, closer, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	gzipCommand := exec.CommandContext(ctx, gzipPath, "-d", "-c")
	gzipCommand.Stdin = compressed

	pipeR, err := gzipCommand.StdoutPipe()
	if err != nil {
		cancel()
		return reader, fileHandle.Close, err
	}

	var cmdStdErr bytes.Buffer
	gzipCommand.Stderr = &cmdStdErr

	if err := gzipCommand.Start(); err != nil {
		cancel()
		return reader, fileHandle.Close, err
	}

	// update the closer to kill the subprocess in addition to closing the file descriptor
	closer = func() error {
		cancel()
		errFile := fileHandle.Close()
		errProc := gzipCommand.Wait()
		// the subprocess is killed when the caller stops reading early
		if errors.Is(errProc, context.Canceled) {
			errProc = nil
		}

		if errProc != nil && cmdStdErr.Len() > 0 {
			errProc = fmt.Errorf("%s: %s", errProc.Error(), cmdStdErr.String())
		}

		if errProc != nil && errFile != nil {
			return fmt.Errorf("%s; %s", errProc.Error(), errFile.Error())
		}
		if errProc != nil {
			return errProc
		}
		return errFile
	}

	return pipeR, closer, nil
}
