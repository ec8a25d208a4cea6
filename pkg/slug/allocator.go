package slug

import (
	"fmt"
	"sync"
)

// Allocator guarantees run-scoped uniqueness of base slugs. The first call
// for a base returns it unchanged; the nth repeat returns "base-n" in
// allocation order. State is never persisted across runs.
type Allocator struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewAllocator creates an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{counts: make(map[string]int)}
}

// Next returns a run-unique variant of base.
func (a *Allocator) Next(base string) string {
	if base == "" {
		base = "dataset"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	count := a.counts[base]
	a.counts[base] = count + 1
	if count == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, count)
}

// NameRegistry de-duplicates catalog names after length truncation. This is
// a second, independent uniqueness pass: truncating two distinct allocator
// outputs can map them onto the same prefix, so the registry appends -2, -3…
// while re-truncating the base to keep the suffixed result within the cap.
type NameRegistry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewNameRegistry creates an empty NameRegistry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{names: make(map[string]struct{})}
}

// Claim reserves and returns a unique catalog name for the given slug,
// capped at maxLength bytes.
func (r *NameRegistry) Claim(s string, maxLength int) string {
	base := Truncate(s, maxLength)

	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := base
	counter := 2
	for {
		if _, taken := r.names[candidate]; !taken {
			break
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := Truncate(base, maxLength-len(suffix))
		candidate = trimmed + suffix
		counter++
	}

	r.names[candidate] = struct{}{}
	return candidate
}
