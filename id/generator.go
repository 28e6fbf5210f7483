package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator provides process-unique listener IDs.
// IDs are lexicographically sortable by creation time.
type Generator interface {
	NextID() string
}

// ULIDGenerator generates monotonic ULIDs.
// Thread-safe via an internal mutex guarding the entropy source.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewULIDGenerator creates a new ID generator backed by crypto/rand entropy.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NextID generates a unique 26 character ULID string.
// IDs generated within the same millisecond increase monotonically.
func (g *ULIDGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}
