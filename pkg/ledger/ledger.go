package ledger

import (
	"sort"

	"github.com/activecm/flowledger/pkg/flow"
	"github.com/activecm/flowledger/util"
)

type (
	// Key identifies a ledger entry
	Key struct {
		Source      string
		Protocol    string
		Port        string
		Destination string
	}

	// Entry accumulates the traffic seen for one key. Timestamps are
	// fractional unix seconds.
	Entry struct {
		Download  int64   `json:"download"`
		FirstSeen float64 `json:"firstseen"`
		LastSeen  float64 `json:"lastseen"`
		Upload    int64   `json:"upload"`
	}

	// Nested is the source -> protocol -> port -> destination view of a ledger
	Nested map[string]map[string]map[string]map[string]Entry

	// Ledger is the traffic summary of a set of captures. It is not safe
	// for concurrent use.
	Ledger struct {
		entries map[Key]*Entry
	}
)

// KeyOf returns the ledger key a flow is charged to
func KeyOf(f flow.Flow) Key {
	return Key{
		Source:      f.Source,
		Protocol:    f.Protocol,
		Port:        f.Port,
		Destination: f.Destination,
	}
}

// Less orders keys by source, protocol, port and destination
func (k Key) Less(other Key) bool {
	if k.Source != other.Source {
		return k.Source < other.Source
	}
	if k.Protocol != other.Protocol {
		return k.Protocol < other.Protocol
	}
	if k.Port != other.Port {
		return k.Port < other.Port
	}
	return k.Destination < other.Destination
}

// Total returns the bytes counted in both directions
func (e Entry) Total() int64 {
	return e.Upload + e.Download
}

// Combine merges two entries for the same key: counters are summed and the
// observed time span is widened to cover both
func Combine(a, b Entry) Entry {
	return Entry{
		Download:  a.Download + b.Download,
		Upload:    a.Upload + b.Upload,
		FirstSeen: util.MinFloat64(a.FirstSeen, b.FirstSeen),
		LastSeen:  util.MaxFloat64(a.LastSeen, b.LastSeen),
	}
}

// New returns an empty ledger
func New() *Ledger {
	return &Ledger{entries: make(map[Key]*Entry)}
}

// Ingest charges length bytes seen at timestamp to the flow's entry.
// Negative lengths count as zero.
func (l *Ledger) Ingest(f flow.Flow, timestamp float64, length int) {
	if length < 0 {
		length = 0
	}

	key := KeyOf(f)
	entry, ok := l.entries[key]
	if !ok {
		entry = &Entry{FirstSeen: timestamp, LastSeen: timestamp}
		l.entries[key] = entry
	}

	entry.FirstSeen = util.MinFloat64(entry.FirstSeen, timestamp)
	entry.LastSeen = util.MaxFloat64(entry.LastSeen, timestamp)

	if f.Direction == flow.Download {
		entry.Download += int64(length)
	} else {
		entry.Upload += int64(length)
	}
}

// Add merges an entry into the ledger under key
func (l *Ledger) Add(key Key, entry Entry) {
	if existing, ok := l.entries[key]; ok {
		merged := Combine(*existing, entry)
		*existing = merged
		return
	}
	copied := entry
	l.entries[key] = &copied
}

// Merge adds every entry of other into the ledger. other is not modified.
func (l *Ledger) Merge(other *Ledger) {
	for key, entry := range other.entries {
		l.Add(key, *entry)
	}
}

// Get returns a copy of the entry stored under key
func (l *Ledger) Get(key Key) (Entry, bool) {
	entry, ok := l.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Len returns the number of entries
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Keys returns every key in sorted order
func (l *Ledger) Keys() []Key {
	keys := make([]Key, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Entries returns a copy of every entry keyed by its ledger key
func (l *Ledger) Entries() map[Key]Entry {
	out := make(map[Key]Entry, len(l.entries))
	for key, entry := range l.entries {
		out[key] = *entry
	}
	return out
}

// TotalBytes sums both counters over every entry
func (l *Ledger) TotalBytes() int64 {
	var total int64
	for _, entry := range l.entries {
		total += entry.Total()
	}
	return total
}

// Nested returns the ledger in its source -> protocol -> port -> destination shape
func (l *Ledger) Nested() Nested {
	nested := make(Nested)
	for key, entry := range l.entries {
		protocols, ok := nested[key.Source]
		if !ok {
			protocols = make(map[string]map[string]map[string]Entry)
			nested[key.Source] = protocols
		}
		ports, ok := protocols[key.Protocol]
		if !ok {
			ports = make(map[string]map[string]Entry)
			protocols[key.Protocol] = ports
		}
		destinations, ok := ports[key.Port]
		if !ok {
			destinations = make(map[string]Entry)
			ports[key.Port] = destinations
		}
		destinations[key.Destination] = *entry
	}
	return nested
}

// FromNested rebuilds a ledger from its nested view
func FromNested(nested Nested) *Ledger {
	l := New()
	for source, protocols := range nested {
		for protocol, ports := range protocols {
			for port, destinations := range ports {
				for destination, entry := range destinations {
					l.Add(Key{Source: source, Protocol: protocol, Port: port, Destination: destination}, entry)
				}
			}
		}
	}
	return l
}
