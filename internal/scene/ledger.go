package scene

// Ledger records which scrollback keys have already been graduated to the
// persistent sink. A key stays graduated for the lifetime of the runtime
// instance; there is no eviction. The ledger is owned by exactly one planner
// so concurrent sessions (and tests) stay isolated.
type Ledger struct {
	keys map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{keys: make(map[string]struct{})}
}

// Contains reports whether key has graduated.
func (l *Ledger) Contains(key string) bool {
	_, ok := l.keys[key]
	return ok
}

// Graduate marks key as graduated. It returns true if the key was new and
// false if it had already graduated.
func (l *Ledger) Graduate(key string) bool {
	if l.Contains(key) {
		return false
	}
	l.keys[key] = struct{}{}
	return true
}

// Len reports how many keys have graduated.
func (l *Ledger) Len() int {
	return len(l.keys)
}
