package transformer

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/relay"
)

func init() {
	relay.RegisterTransformer(cfg.FormatMsgpack, func() relay.Transformer {
		return MsgpackTransformer{}
	})
}

// MsgpackTransformer encodes records as msgpack envelopes
type MsgpackTransformer struct{}

// Transform encodes rec
func (MsgpackTransformer) Transform(rec relay.Record) ([]byte, error) {
	data, err := msgpack.Marshal(newEnvelope(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", rec.Path(), err)
	}
	return data, nil
}

// Tombstone returns nil, the broker-level delete marker
func (MsgpackTransformer) Tombstone(string) []byte { return nil }
