package enrich

import (
	"testing"

	"github.com/activecm/flowledger/pkg/flow"
	"github.com/activecm/flowledger/pkg/hostname"
	"github.com/activecm/flowledger/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]string

func (s staticResolver) Resolve(id string) string {
	if name, ok := s[id]; ok {
		return name
	}
	return id
}

func upload(src, dst string) flow.Flow {
	return flow.Flow{Source: src, Destination: dst, Protocol: flow.ProtocolTCP, Port: "443", Direction: flow.Upload}
}

func download(src, dst string) flow.Flow {
	f := upload(src, dst)
	f.Direction = flow.Download
	return f
}

func TestEnrichMergesCollidingDestinations(t *testing.T) {
	l := ledger.New()
	l.Ingest(upload("10.0.0.1", "10.0.0.5"), 2, 100)
	l.Ingest(upload("10.0.0.1", "10.0.0.6"), 1, 200)
	l.Ingest(download("10.0.0.1", "10.0.0.6"), 3, 30)

	enriched := Enrich(l, staticResolver{"10.0.0.5": "svc.example", "10.0.0.6": "svc.example"})

	require.Equal(t, 1, enriched.Len())
	entry, ok := enriched.Get(ledger.Key{Source: "10.0.0.1", Protocol: flow.ProtocolTCP, Port: "443", Destination: "svc.example"})
	require.True(t, ok)
	assert.Equal(t, ledger.Entry{FirstSeen: 1, LastSeen: 3, Upload: 300, Download: 30}, entry)
}

func TestEnrichRewritesSources(t *testing.T) {
	l := ledger.New()
	l.Ingest(upload("10.0.0.1", "10.0.0.5"), 1, 10)
	l.Ingest(upload("10.0.0.2", "10.0.0.5"), 1, 20)

	enriched := Enrich(l, staticResolver{"10.0.0.1": "laptop", "10.0.0.2": "laptop"})

	entry, ok := enriched.Get(ledger.Key{Source: "laptop", Protocol: flow.ProtocolTCP, Port: "443", Destination: "10.0.0.5"})
	require.True(t, ok)
	assert.EqualValues(t, 30, entry.Upload)
}

func TestEnrichLeavesInputsUntouched(t *testing.T) {
	l := ledger.New()
	l.Ingest(upload("10.0.0.1", "10.0.0.5"), 1, 10)
	l.Ingest(upload("10.0.0.1", "10.0.0.6"), 1, 20)
	before := l.Entries()

	Enrich(l, staticResolver{"10.0.0.5": "svc", "10.0.0.6": "svc"})

	assert.Equal(t, before, l.Entries())
}

func TestEnrichConservesBytes(t *testing.T) {
	l := ledger.New()
	l.Ingest(upload("10.0.0.1", "10.0.0.5"), 1, 10)
	l.Ingest(download("10.0.0.1", "10.0.0.5"), 2, 11)
	l.Ingest(upload("10.0.0.2", "10.0.0.6"), 3, 12)
	l.Ingest(upload("10.0.0.6", "10.0.0.2"), 4, 13)
	l.Ingest(flow.Flow{Source: "10.0.0.3", Destination: "10.0.0.4", Protocol: flow.ProtocolUnknown, Port: flow.UnknownPort, Direction: flow.Upload}, 5, 14)

	resolvers := []staticResolver{
		{},
		{"10.0.0.1": "a", "10.0.0.2": "a", "10.0.0.6": "a"},
		{"10.0.0.5": "x", "10.0.0.6": "x", "10.0.0.4": "x", "10.0.0.3": "x"},
	}
	for _, r := range resolvers {
		assert.Equal(t, l.TotalBytes(), Enrich(l, r).TotalBytes())
	}
}

func TestEnrichIsIdempotentForTerminalNames(t *testing.T) {
	l := ledger.New()
	l.Ingest(upload("10.0.0.1", "10.0.0.5"), 1, 10)
	l.Ingest(upload("10.0.0.1", "10.0.0.6"), 2, 20)

	m := hostname.NewMapping(hostname.Options{})
	m.Set("10.0.0.5", "svc.example")
	m.Set("10.0.0.6", "svc.example")

	once := Enrich(l, m)
	twice := Enrich(once, m)
	assert.Equal(t, once.Entries(), twice.Entries())
}

func TestEnrichWithEmptyMappingCopies(t *testing.T) {
	l := ledger.New()
	l.Ingest(upload("10.0.0.1", "10.0.0.5"), 1, 10)

	enriched := Enrich(l, hostname.NewMapping(hostname.Options{}))
	assert.Equal(t, l.Entries(), enriched.Entries())
}
