package snapshot

import "sync"

// StringInterner is a process-wide, append-only string interner: repeated
// property and path names across many History instances collapse onto a
// single backing string, reducing the retained-memory cost of building many
// records with the same small set of property names (spec.md §5).
type StringInterner struct {
	mu     sync.Mutex
	values map[string]string
}

// NewStringInterner constructs an empty StringInterner.
func NewStringInterner() *StringInterner {
	return &StringInterner{values: make(map[string]string)}
}

// Intern returns the canonical instance of s: the first string equal to s
// ever passed to Intern on this interner. Entries are never evicted, matching
// the append-only contract; callers needing bounded retention should use a
// fresh StringInterner per some coarser scope (e.g. per build) instead.
func (i *StringInterner) Intern(s string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if existing, ok := i.values[s]; ok {
		return existing
	}
	i.values[s] = s
	return s
}
