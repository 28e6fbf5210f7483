package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

func TestKindChain(t *testing.T) {
	assert.Equal(t, []Kind{KindUpdated, KindChange}, KindUpdated.Chain())
	assert.Equal(t, []Kind{KindChange}, KindChange.Chain())
	assert.True(t, KindDeleted.Is(KindChange))
	assert.False(t, KindChange.Is(KindDeleted))
	assert.Equal(t, "added", KindAdded.Short())
	assert.Equal(t, "change", KindChange.Short())
}

func TestUpdated_Previous(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	tgt, _ := target.Document("licenses/l1")
	cur := document.NewSnapshot("licenses/l1", map[string]document.Value{"tier": document.StringValue("pro")})
	prev := document.NewSnapshot("licenses/l1", map[string]document.Value{"tier": document.StringValue("free")})

	u := NewUpdated(tgt, cur)
	_, ok := u.Previous()
	assert.False(t, ok)

	withPrev := u.WithPrevious(prev)
	got, ok := withPrev.Previous()
	assert.True(t, ok)
	assert.True(t, got.Equal(prev))

	// original value untouched
	_, ok = u.Previous()
	assert.False(t, ok)

	assert.Equal(t, "l1", u.DocumentID())
	assert.Equal(t, fixed, u.CreatedAt())
	assert.Equal(t, tgt, u.Target())
}
