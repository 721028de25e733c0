package hostname

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Policy decides which name is kept when two DNS facts target the same key
type Policy string

const (
	// LastWins lets a later fact overwrite an earlier one
	LastWins Policy = "last"
	// FirstWins keeps the first fact recorded for a key
	FirstWins Policy = "first"
)

// ParsePolicy converts a configured policy name
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case LastWins, FirstWins:
		return Policy(name), nil
	}
	return "", fmt.Errorf("unknown dns collision policy %q", name)
}

type (
	// Options controls how DNS answers are turned into mapping entries
	Options struct {
		Policy      Policy
		IncludeAAAA bool
		Logger      *log.Entry
	}

	// Mapping associates identifiers (addresses or names) with the name
	// a DNS answer resolved them to. It is not safe for concurrent use.
	Mapping struct {
		policy      Policy
		includeAAAA bool
		names       map[string]string
		log         *log.Entry
	}
)

// NewMapping returns an empty mapping. An empty policy means LastWins.
func NewMapping(opts Options) *Mapping {
	policy := opts.Policy
	if policy == "" {
		policy = LastWins
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Mapping{
		policy:      policy,
		includeAAAA: opts.IncludeAAAA,
		names:       make(map[string]string),
		log:         logger,
	}
}

// Policy returns the collision policy of the mapping
func (m *Mapping) Policy() Policy {
	return m.policy
}

// Set records that id resolves to name, honouring the collision policy.
// It reports whether the mapping changed.
func (m *Mapping) Set(id, name string) bool {
	if current, ok := m.names[id]; ok {
		if m.policy == FirstWins || current == name {
			return false
		}
	}
	m.names[id] = name
	return true
}

// Lookup returns the name id resolves to
func (m *Mapping) Lookup(id string) (string, bool) {
	name, ok := m.names[id]
	return name, ok
}

// Resolve returns the name id resolves to, or id itself when it is unmapped.
// Resolution is a single step: the returned name is not looked up again.
func (m *Mapping) Resolve(id string) string {
	if name, ok := m.names[id]; ok {
		return name
	}
	return id
}

// Len returns the number of mapped identifiers
func (m *Mapping) Len() int {
	return len(m.names)
}

// Merge folds other into m as if other's facts were observed after m's,
// in key order
func (m *Mapping) Merge(other *Mapping) {
	for _, id := range other.Keys() {
		m.Set(id, other.names[id])
	}
}

// Keys returns every mapped identifier in sorted order
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, len(m.names))
	for id := range m.names {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Strings returns a copy of the mapping as plain text pairs
func (m *Mapping) Strings() map[string]string {
	out := make(map[string]string, len(m.names))
	for id, name := range m.names {
		out[id] = name
	}
	return out
}
