package emitter

import (
	"fmt"
	"os"

	"github.com/activecm/flowledger/pkg/hostname"
	"github.com/activecm/flowledger/pkg/ledger"
	jsoniter "github.com/json-iterator/go"
)

const indent = "    "

// json writes maps with sorted keys at every level so that artifacts are
// byte-for-byte reproducible
var json = jsoniter.Config{
	SortMapKeys: true,
	EscapeHTML:  false,
}.Froze()

// MarshalLedger renders the ledger in its nested source -> protocol -> port
// -> destination shape
func MarshalLedger(l *ledger.Ledger) ([]byte, error) {
	return json.MarshalIndent(l.Nested(), "", indent)
}

// MarshalMapping renders the mapping as a flat object
func MarshalMapping(m *hostname.Mapping) ([]byte, error) {
	return json.MarshalIndent(m.Strings(), "", indent)
}

// WriteLedger writes the ledger artifact to path
func WriteLedger(path string, l *ledger.Ledger) error {
	data, err := MarshalLedger(l)
	if err != nil {
		return fmt.Errorf("could not encode traffic ledger: %w", err)
	}
	return writeFile(path, data)
}

// WriteMapping writes the name mapping artifact to path
func WriteMapping(path string, m *hostname.Mapping) error {
	data, err := MarshalMapping(m)
	if err != nil {
		return fmt.Errorf("could not encode dns mapping: %w", err)
	}
	return writeFile(path, data)
}

// ReadLedger loads a ledger artifact written by WriteLedger
func ReadLedger(path string) (*ledger.Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nested ledger.Nested
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("could not decode traffic ledger %s: %w", path, err)
	}
	return ledger.FromNested(nested), nil
}

// ReadMapping loads a mapping artifact written by WriteMapping
func ReadMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("could not decode dns mapping %s: %w", path, err)
	}
	return names, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}
