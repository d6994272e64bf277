package cache

import (
	"fmt"
	"time"
)

// Entry wraps one stored value with its creation time and optional
// absolute expiration time. A zero Expiration means the entry never
// expires.
type Entry struct {
	Value      interface{}
	CreatedAt  time.Time
	Expiration time.Time
}

// NewEntry creates an entry. ttl <= 0 means no expiration.
func NewEntry(value interface{}, ttl time.Duration) *Entry {
	e := &Entry{Value: value, CreatedAt: time.Now()}
	if ttl > 0 {
		e.Expiration = e.CreatedAt.Add(ttl)
	}
	return e
}

func (e *Entry) IsExpired() bool { return e.expired(time.Now()) }

func (e *Entry) expired(now time.Time) bool {
	return !e.Expiration.IsZero() && now.After(e.Expiration)
}

// TTL returns the remaining time to live. ok is false when the entry has
// no expiration or has already expired.
func (e *Entry) TTL() (ttl time.Duration, ok bool) {
	if e.Expiration.IsZero() || e.IsExpired() {
		return 0, false
	}
	ttl = time.Until(e.Expiration)
	if ttl < 0 {
		ttl = 0
	}
	return ttl, true
}

// SetExpiration overwrites the absolute expiration time, discarding any
// previous TTL.
func (e *Entry) SetExpiration(at time.Time) {
	e.Expiration = at
}

// Update replaces the value and re-derives the expiration from the new
// ttl. The old expiration is discarded, not extended.
func (e *Entry) Update(value interface{}, ttl time.Duration) {
	e.Value = value
	e.CreatedAt = time.Now()
	if ttl > 0 {
		e.Expiration = e.CreatedAt.Add(ttl)
	} else {
		e.Expiration = time.Time{}
	}
}

func (e *Entry) GoString() string {
	return fmt.Sprintf("{Value:%v, CreatedAt:%v, Expiration:%v}", e.Value, e.CreatedAt, e.Expiration)
}
