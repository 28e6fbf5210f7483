package transformer

import (
	"encoding/json"
	"fmt"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/relay"
)

func init() {
	relay.RegisterTransformer(cfg.FormatJSON, func() relay.Transformer {
		return JSONTransformer{}
	})
}

// JSONTransformer encodes records as JSON envelopes
type JSONTransformer struct{}

// Transform encodes rec
func (JSONTransformer) Transform(rec relay.Record) ([]byte, error) {
	data, err := json.Marshal(newEnvelope(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", rec.Path(), err)
	}
	return data, nil
}

// Tombstone returns nil, the broker-level delete marker
func (JSONTransformer) Tombstone(string) []byte { return nil }
