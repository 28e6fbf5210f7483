package stream

import (
	"bytes"
	"encoding/json"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
)

// Target change types
const (
	targetNoChange = "NO_CHANGE"
	targetAdd      = "ADD"
	targetRemove   = "REMOVE"
	targetCurrent  = "CURRENT"
	targetReset    = "RESET"
)

// frame is one listen response. Exactly one member is set.
type frame struct {
	TargetChange   *targetChange   `json:"targetChange,omitempty"`
	DocumentChange *documentChange `json:"documentChange,omitempty"`
	DocumentDelete *documentDelete `json:"documentDelete,omitempty"`
	DocumentRemove *documentDelete `json:"documentRemove,omitempty"`
	Filter         json.RawMessage `json:"filter,omitempty"`
}

type targetChange struct {
	TargetChangeType string       `json:"targetChangeType,omitempty"`
	TargetIDs        []int32      `json:"targetIds,omitempty"`
	Cause            *statusCause `json:"cause,omitempty"`
	ResumeToken      string       `json:"resumeToken,omitempty"`
	ReadTime         string       `json:"readTime,omitempty"`
}

type statusCause struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type documentChange struct {
	Document         document.WireDocument `json:"document"`
	TargetIDs        []int32               `json:"targetIds,omitempty"`
	RemovedTargetIDs []int32               `json:"removedTargetIds,omitempty"`
}

type documentDelete struct {
	Document         string  `json:"document"`
	RemovedTargetIDs []int32 `json:"removedTargetIds,omitempty"`
	ReadTime         string  `json:"readTime,omitempty"`
}

// frameType names the member set on f, for metrics and logs
func (f *frame) frameType() string {
	switch {
	case f.TargetChange != nil:
		return "target_change"
	case f.DocumentChange != nil:
		return "document_change"
	case f.DocumentDelete != nil:
		return "document_delete"
	case f.DocumentRemove != nil:
		return "document_remove"
	case f.Filter != nil:
		return "filter"
	default:
		return "unknown"
	}
}

// trimFrame strips whitespace and the JSON array framing the REST endpoint
// wraps around frames: a leading "[" or "," and a trailing "]" or ",".
func trimFrame(line []byte) []byte {
	line = bytes.TrimSpace(line)
	if len(line) > 0 && (line[0] == '[' || line[0] == ',') {
		line = bytes.TrimSpace(line[1:])
	}
	if n := len(line); n > 0 && (line[n-1] == ']' || line[n-1] == ',') {
		line = bytes.TrimSpace(line[:n-1])
	}
	return line
}

// parseFrame decodes one line. Blank lines return nil with no error.
func parseFrame(line []byte) (*frame, error) {
	line = trimFrame(line)
	if len(line) == 0 {
		return nil, nil
	}

	var f frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
