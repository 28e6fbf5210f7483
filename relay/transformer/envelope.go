// Package transformer provides implementations of the relay.Transformer
// interface. Both formats share one envelope:
//
//	{"op":"c|u|d","before":{...},"after":{...},"ts_ms":1700000000000,
//	 "source":{"instance":"...","target":"collection:notes","collection":"notes","document":"n1"}}
package transformer

import "github.com/vothanachyes/telegram-user-tracking-sub004/relay"

type envelope struct {
	Op     string         `json:"op" msgpack:"op"`
	Before map[string]any `json:"before" msgpack:"before"`
	After  map[string]any `json:"after" msgpack:"after"`
	TsMs   int64          `json:"ts_ms" msgpack:"ts_ms"`
	Source source         `json:"source" msgpack:"source"`
}

type source struct {
	Instance   string `json:"instance" msgpack:"instance"`
	Target     string `json:"target" msgpack:"target"`
	Collection string `json:"collection" msgpack:"collection"`
	Document   string `json:"document" msgpack:"document"`
}

// opCode maps record operations to Debezium-style op codes
func opCode(op uint8) string {
	switch op {
	case relay.OpAdded:
		return "c"
	case relay.OpUpdated:
		return "u"
	case relay.OpDeleted:
		return "d"
	default:
		return "?"
	}
}

func newEnvelope(rec relay.Record) envelope {
	return envelope{
		Op:     opCode(rec.Operation),
		Before: rec.Before,
		After:  rec.After,
		TsMs:   rec.ObservedMS,
		Source: source{
			Instance:   rec.Source,
			Target:     rec.Target,
			Collection: rec.Collection,
			Document:   rec.DocumentID,
		},
	}
}
