package hostname

import (
	"errors"
	"fmt"
	"strings"

	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"
)

// ErrMalformedAnswer is returned for DNS answers missing the data a mapping
// entry needs
var ErrMalformedAnswer = errors.New("malformed dns answer")

// fact is one identifier -> name association derived from a DNS answer
type fact struct {
	id   string
	name string
}

// Observe records the name resolution facts carried by the frame's DNS
// answers and returns how many were recorded. Malformed answers are logged
// and skipped.
//
// Address records map the answered address and the frame's source address
// to the queried name. Alias records map the alias to its canonical name
// and the frame's source address to the alias.
func (m *Mapping) Observe(frame parsetypes.Frame) int {
	if frame.DroppedAnswers > 0 {
		m.log.WithFields(log.Fields{
			"source":  frame.SrcIP,
			"dropped": frame.DroppedAnswers,
		}).Debug(fmt.Errorf("%w: answers could not be decoded", ErrMalformedAnswer))
	}

	recorded := 0
	for i, answer := range frame.Answers {
		facts, err := m.factsFor(frame.SrcIP, answer)
		if err != nil {
			if errors.Is(err, ErrMalformedAnswer) {
				m.log.WithFields(log.Fields{
					"source": frame.SrcIP,
					"answer": i,
					"type":   answer.Type.String(),
				}).Debug(err)
			}
			continue
		}
		for _, f := range facts {
			m.Set(f.id, f.name)
			recorded++
		}
	}
	return recorded
}

// errSkipped marks answer types that carry no mapping facts
var errSkipped = errors.New("dns answer type not mapped")

func (m *Mapping) factsFor(source string, answer parsetypes.DNSAnswer) ([]fact, error) {
	switch answer.Type {
	case layers.DNSTypeA, layers.DNSTypeAAAA:
		if answer.Type == layers.DNSTypeAAAA && !m.includeAAAA {
			return nil, errSkipped
		}
		name := normalize(answer.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: address record without a name", ErrMalformedAnswer)
		}
		if len(answer.IP) == 0 {
			return nil, fmt.Errorf("%w: address record for %s without an address", ErrMalformedAnswer, name)
		}
		return []fact{
			{id: answer.IP.String(), name: name},
			{id: source, name: name},
		}, nil
	case layers.DNSTypeCNAME:
		alias := normalize(answer.Name)
		canonical := normalize(answer.CNAME)
		if alias == "" || canonical == "" {
			return nil, fmt.Errorf("%w: incomplete alias record", ErrMalformedAnswer)
		}
		return []fact{
			{id: alias, name: canonical},
			{id: source, name: alias},
		}, nil
	}
	return nil, errSkipped
}

// normalize decodes raw name bytes as UTF-8, dropping invalid sequences
func normalize(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}
