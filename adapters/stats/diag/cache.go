// Package diag derives per-dataset goodness-of-fit diagnostics (signs,
// residuals, probability integral transforms) from a fit result, with
// memoization keyed to the identity of the upstream ensemble rather than to
// value equality.
package diag

// Memo caches a computed value forever. The zero value is ready to use.
// Not safe for concurrent use; each diagnostics instance owns its memos and
// is accessed from a single goroutine.
type Memo[T any] struct {
	value T
	done  bool
}

// Get returns the cached value, computing it on first call.
func (m *Memo[T]) Get(compute func() T) T {
	if !m.done {
		m.value = compute()
		m.done = true
	}
	return m.value
}

// Computed reports whether the value has been computed.
func (m *Memo[T]) Computed() bool {
	return m.done
}

// Tracked caches a computed value until the identity of any tracked
// dependency changes. Dependencies are captured as interface values holding
// pointers; two captures are the same dependency state only if every pair
// compares equal with ==, which for pointers is object identity. Swapping an
// upstream field to a freshly computed object therefore invalidates the
// cache even when the new object holds identical values, while repeated
// reads between swaps cost one pointer comparison per dependency.
type Tracked[T any] struct {
	value  T
	done   bool
	tokens []any
}

// Get returns the cached value, recomputing it when any dependency identity
// reported by deps differs from the identities captured at the last
// computation.
func (t *Tracked[T]) Get(deps func() []any, compute func() T) T {
	current := deps()
	if t.done && sameIdentity(t.tokens, current) {
		return t.value
	}
	t.value = compute()
	t.done = true
	t.tokens = current
	return t.value
}

// Invalidate drops the cached value unconditionally.
func (t *Tracked[T]) Invalidate() {
	t.done = false
	t.tokens = nil
}

func sameIdentity(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
