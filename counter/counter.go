// Package counter implements named int64 counters on top of the cache
// entry substrate. Counters share the entry TTL semantics but have no
// capacity bound and no eviction policy.
package counter

import (
	"time"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/log"
)

// Counter holds any number of named counters. It is not safe for
// concurrent use; the caller serializes access.
type Counter struct {
	counters map[string]*cache.Entry
	log      log.Logger
}

func New(l log.Logger) *Counter {
	return &Counter{
		counters: make(map[string]*cache.Entry),
		log:      l,
	}
}

func (c *Counter) Len() int { return len(c.counters) }

// Set creates or resets a counter to zero. ttl <= 0 means no expiration.
func (c *Counter) Set(key string, ttl time.Duration) error {
	if err := cache.CheckKey(key); err != nil {
		return err
	}
	if ttl < 0 {
		return &cache.InvalidInputError{Reason: "ttl must be positive"}
	}
	c.log.Debugf("Set counter %s.", key)
	c.counters[key] = cache.NewEntry(int64(0), ttl)
	return nil
}

func (c *Counter) Get(key string) (int64, error) {
	e, err := c.entry(key)
	if err != nil {
		return 0, err
	}
	return e.Value.(int64), nil
}

// Increment adds one and returns the new value.
func (c *Counter) Increment(key string) (int64, error) {
	return c.add(key, 1)
}

// Decrement subtracts one and returns the new value. Counters may go
// negative.
func (c *Counter) Decrement(key string) (int64, error) {
	return c.add(key, -1)
}

func (c *Counter) add(key string, delta int64) (int64, error) {
	e, err := c.entry(key)
	if err != nil {
		return 0, err
	}
	value := e.Value.(int64) + delta
	e.Value = value
	return value, nil
}

// TTL returns the remaining time to live. ok is false for counters with
// no expiration.
func (c *Counter) TTL(key string) (ttl time.Duration, ok bool, err error) {
	e, err := c.entry(key)
	if err != nil {
		return 0, false, err
	}
	ttl, ok = e.TTL()
	return ttl, ok, nil
}

// Expire overwrites the counter's absolute expiration time.
func (c *Counter) Expire(key string, at time.Time) error {
	if at.IsZero() {
		return &cache.InvalidInputError{Reason: "expiration time must not be zero"}
	}
	e, err := c.entry(key)
	if err != nil {
		return err
	}
	e.SetExpiration(at)
	return nil
}

func (c *Counter) Delete(key string) error {
	if _, err := c.entry(key); err != nil {
		return err
	}
	delete(c.counters, key)
	return nil
}

// Scan purges expired counters and returns the remaining keys. Order is
// unspecified.
func (c *Counter) Scan() []string {
	keys := make([]string, 0, len(c.counters))
	for key, e := range c.counters {
		if e.IsExpired() {
			c.log.Debugf("Counter %s expired.", key)
			delete(c.counters, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (c *Counter) Clear() {
	c.counters = make(map[string]*cache.Entry)
}

// entry looks a counter up, purging it when expired. An expired counter
// is indistinguishable from a missing one.
func (c *Counter) entry(key string) (*cache.Entry, error) {
	if err := cache.CheckKey(key); err != nil {
		return nil, err
	}
	e, ok := c.counters[key]
	if !ok {
		return nil, &cache.KeyNotFoundError{Key: key}
	}
	if e.IsExpired() {
		c.log.Debugf("Counter %s expired.", key)
		delete(c.counters, key)
		return nil, &cache.KeyNotFoundError{Key: key}
	}
	return e, nil
}
