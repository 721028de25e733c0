package enrich

import "github.com/activecm/flowledger/pkg/ledger"

// Resolver maps an identifier to the name it should be reported under.
// Unknown identifiers resolve to themselves.
type Resolver interface {
	Resolve(id string) string
}

// Enrich returns a new ledger whose sources and destinations have been
// rewritten through the resolver. Entries that end up under the same key
// are combined. Neither input is modified.
func Enrich(l *ledger.Ledger, r Resolver) *ledger.Ledger {
	enriched := ledger.New()
	for key, entry := range l.Entries() {
		key.Source = r.Resolve(key.Source)
		key.Destination = r.Resolve(key.Destination)
		enriched.Add(key, entry)
	}
	return enriched
}
