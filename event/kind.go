package event

// Kind identifies an event type. Kinds form a hierarchy rooted at KindChange;
// subscribing to a kind also receives every kind below it.
type Kind string

const (
	KindChange  Kind = "change"
	KindAdded   Kind = "change.added"
	KindUpdated Kind = "change.updated"
	KindDeleted Kind = "change.deleted"
)

var parents = map[Kind]Kind{
	KindAdded:   KindChange,
	KindUpdated: KindChange,
	KindDeleted: KindChange,
}

// Parent returns the next more general kind
func (k Kind) Parent() (Kind, bool) {
	p, ok := parents[k]
	return p, ok
}

// Chain walks from k to the root, most specific first
func (k Kind) Chain() []Kind {
	chain := []Kind{k}
	for cur := k; ; {
		p, ok := cur.Parent()
		if !ok {
			return chain
		}
		chain = append(chain, p)
		cur = p
	}
}

// Is reports whether k equals base or descends from it
func (k Kind) Is(base Kind) bool {
	for _, c := range k.Chain() {
		if c == base {
			return true
		}
	}
	return false
}

// Short returns the last segment, e.g. "added"
func (k Kind) Short() string {
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] == '.' {
			return string(k[i+1:])
		}
	}
	return string(k)
}
