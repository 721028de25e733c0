package conntrack

import (
	"fmt"

	"github.com/activecm/flowledger/parser/parsetypes"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Verdict is the result of probing a TCP frame against the known connections
type Verdict int

const (
	// Reject means no connection could be attributed and the frame must be dropped
	Reject Verdict = iota
	// New means the frame opened a connection, which is now recorded
	New
	// Forward means the frame travels from the connection initiator
	Forward
	// Reverse means the frame travels back towards the connection initiator
	Reverse
)

func (v Verdict) String() string {
	switch v {
	case New:
		return "new"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "reject"
	}
}

// Key identifies one direction of a TCP connection as srcIP:srcPort->dstIP:dstPort
type Key string

// NewKey builds the key for the given endpoints
func NewKey(srcIP string, srcPort uint16, dstIP string, dstPort uint16) Key {
	return Key(fmt.Sprintf("%s:%d->%s:%d", srcIP, srcPort, dstIP, dstPort))
}

// ForwardKey is the key of the frame as it travels
func ForwardKey(frame parsetypes.Frame) Key {
	return NewKey(frame.SrcIP, frame.SrcPort, frame.DstIP, frame.DstPort)
}

// ReverseKey is the key of the frame with both endpoints swapped
func ReverseKey(frame parsetypes.Frame) Key {
	return NewKey(frame.DstIP, frame.DstPort, frame.SrcIP, frame.SrcPort)
}

// establishedSet stores the keys of connections whose SYN has been seen
type establishedSet interface {
	// touch reports whether the key is present, refreshing its recency
	touch(Key) bool
	add(Key)
	len() int
	purge()
}

// Tracker records which TCP connections have been established. It is not
// safe for concurrent use.
type Tracker struct {
	established establishedSet
}

// NewTracker creates a tracker. A maxConnections of zero leaves the
// tracker unbounded, otherwise the least recently active connections
// are evicted once the limit is reached.
func NewTracker(maxConnections int) (*Tracker, error) {
	if maxConnections < 0 {
		return nil, fmt.Errorf("max connections must not be negative, got %d", maxConnections)
	}
	if maxConnections == 0 {
		return &Tracker{established: make(mapSet)}, nil
	}

	cache, err := lru.New[Key, struct{}](maxConnections)
	if err != nil {
		return nil, err
	}
	return &Tracker{established: lruSet{cache}}, nil
}

// Probe classifies a TCP frame against the recorded connections.
// A SYN frame that matches no connection is recorded and returns New.
func (t *Tracker) Probe(frame parsetypes.Frame) Verdict {
	if t.established.touch(ForwardKey(frame)) {
		return Forward
	}
	if t.established.touch(ReverseKey(frame)) {
		return Reverse
	}
	if frame.SYN {
		t.established.add(ForwardKey(frame))
		return New
	}
	return Reject
}

// Established reports whether the key has been recorded without refreshing it
func (t *Tracker) Established(key Key) bool {
	switch set := t.established.(type) {
	case mapSet:
		_, ok := set[key]
		return ok
	case lruSet:
		return set.cache.Contains(key)
	}
	return false
}

// Len returns the number of recorded connections
func (t *Tracker) Len() int {
	return t.established.len()
}

// Reset forgets every recorded connection
func (t *Tracker) Reset() {
	t.established.purge()
}

type mapSet map[Key]struct{}

func (m mapSet) touch(k Key) bool {
	_, ok := m[k]
	return ok
}

func (m mapSet) add(k Key) { m[k] = struct{}{} }

func (m mapSet) len() int { return len(m) }

func (m mapSet) purge() {
	for k := range m {
		delete(m, k)
	}
}

type lruSet struct {
	cache *lru.Cache[Key, struct{}]
}

func (l lruSet) touch(k Key) bool {
	_, ok := l.cache.Get(k)
	return ok
}

func (l lruSet) add(k Key) { l.cache.Add(k, struct{}{}) }

func (l lruSet) len() int { return l.cache.Len() }

func (l lruSet) purge() { l.cache.Purge() }
