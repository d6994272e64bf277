package cache

import "fmt"

// Policy decides which key to evict when the cache is full. The cache
// calls RecordAccess on every successful get and every set of a live
// key, and Remove whenever a key leaves storage, so the policy's tracked
// key set always mirrors the storage map.
type Policy interface {
	// RecordAccess notes an access, creating tracking state for a
	// previously unknown key.
	RecordAccess(key string)
	// Evict chooses one tracked key to remove. It fails with ErrNoKeys
	// if nothing is tracked. The caller removes the returned key from
	// its own storage and from the policy afterwards.
	Evict() (key string, err error)
	// Remove purges a key's tracking state. No-op for untracked keys.
	Remove(key string)
	// Clear resets to empty tracking state.
	Clear()
}

// Kind is the closed enumeration of eviction policies.
type Kind string

const (
	LRU    Kind = "lru"
	LFU    Kind = "lfu"
	Random Kind = "random"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case LRU, LFU, Random:
		return Kind(s), nil
	}
	return "", &InvalidInputError{Reason: fmt.Sprintf("unknown policy %q", s)}
}

// NewPolicy builds a fresh policy of the given kind.
func NewPolicy(kind Kind) (Policy, error) {
	switch kind {
	case LRU:
		return NewLRUPolicy(), nil
	case LFU:
		return NewLFUPolicy(), nil
	case Random:
		return NewRandomPolicy(), nil
	}
	return nil, &InvalidInputError{Reason: fmt.Sprintf("unknown policy %q", kind)}
}
