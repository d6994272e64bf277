package cache

import (
	"time"

	"github.com/rahultewari75/cache/log"
)

type Config struct {
	Capacity int
	Policy   Kind
}

// Cache owns the storage map and the policy instance. The policy never
// outlives the cache and is never shared.
type Cache struct {
	capacity int
	policy   Policy
	storage  map[string]*Entry
	log      log.Logger
}

func New(l log.Logger, conf Config) (*Cache, error) {
	p, err := NewPolicy(conf.Policy)
	if err != nil {
		return nil, err
	}
	return NewWithPolicy(l, conf.Capacity, p)
}

// NewWithPolicy builds a cache around an externally constructed policy.
func NewWithPolicy(l log.Logger, capacity int, p Policy) (*Cache, error) {
	if capacity < 1 {
		return nil, &InvalidInputError{Reason: "cache capacity must be greater than zero"}
	}
	return &Cache{
		capacity: capacity,
		policy:   p,
		storage:  make(map[string]*Entry),
		log:      l,
	}, nil
}

func (c *Cache) Capacity() int { return c.capacity }
func (c *Cache) Len() int      { return len(c.storage) }

// Set stores or updates a value. ttl <= 0 means no expiration. When a
// new key does not fit, the policy chooses a victim which is removed
// from both storage and policy tracking before the insert.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if ttl < 0 {
		return &InvalidInputError{Reason: "ttl must be positive"}
	}
	defer c.checkInvariants()
	c.purgeExpired()

	if e, ok := c.storage[key]; ok {
		c.log.Debugf("Update key %s.", key)
		e.Update(value, ttl)
		c.policy.RecordAccess(key)
		return nil
	}
	if len(c.storage) >= c.capacity {
		victim, err := c.policy.Evict()
		if err != nil {
			return err
		}
		c.log.Debugf("Evict key %s.", victim)
		delete(c.storage, victim)
		c.policy.Remove(victim)
	}
	c.log.Debugf("Add key %s.", key)
	c.storage[key] = NewEntry(value, ttl)
	c.policy.RecordAccess(key)
	return nil
}

// Get returns the stored value. An expired entry is purged from both
// storage and policy and reported as KeyExpiredError once; the next
// lookup reports KeyNotFoundError.
func (c *Cache) Get(key string) (interface{}, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	defer c.checkInvariants()
	e, ok := c.storage[key]
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	if e.IsExpired() {
		expiredAt := e.Expiration
		c.remove(key)
		c.log.Debugf("Key %s expired.", key)
		return nil, &KeyExpiredError{Key: key, ExpiredAt: expiredAt}
	}
	c.policy.RecordAccess(key)
	return e.Value, nil
}

// TTL returns the remaining time to live with the same not-found and
// expired handling as Get. ok is false for entries with no expiration.
func (c *Cache) TTL(key string) (ttl time.Duration, ok bool, err error) {
	if err := CheckKey(key); err != nil {
		return 0, false, err
	}
	defer c.checkInvariants()
	e, present := c.storage[key]
	if !present {
		return 0, false, &KeyNotFoundError{Key: key}
	}
	if e.IsExpired() {
		expiredAt := e.Expiration
		c.remove(key)
		c.log.Debugf("Key %s expired.", key)
		return 0, false, &KeyExpiredError{Key: key, ExpiredAt: expiredAt}
	}
	ttl, ok = e.TTL()
	return ttl, ok, nil
}

// Expire overwrites the entry's absolute expiration time. Policy
// tracking is untouched: expiration is a data property discovered
// lazily, not an access.
func (c *Cache) Expire(key string, at time.Time) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if at.IsZero() {
		return &InvalidInputError{Reason: "expiration time must not be zero"}
	}
	e, ok := c.storage[key]
	if !ok {
		return &KeyNotFoundError{Key: key}
	}
	e.SetExpiration(at)
	return nil
}

// Scan purges expired entries and returns the remaining keys. Order is
// unspecified.
func (c *Cache) Scan() []string {
	defer c.checkInvariants()
	c.purgeExpired()
	keys := make([]string, 0, len(c.storage))
	for key := range c.storage {
		keys = append(keys, key)
	}
	return keys
}

func (c *Cache) Delete(key string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	defer c.checkInvariants()
	if _, ok := c.storage[key]; !ok {
		return &KeyNotFoundError{Key: key}
	}
	c.remove(key)
	return nil
}

func (c *Cache) Clear() {
	defer c.checkInvariants()
	c.storage = make(map[string]*Entry)
	c.policy.Clear()
}

// remove deletes a key from storage and policy together.
func (c *Cache) remove(key string) {
	delete(c.storage, key)
	c.policy.Remove(key)
}

func (c *Cache) purgeExpired() {
	now := time.Now()
	for key, e := range c.storage {
		if e.expired(now) {
			c.log.Debugf("Key %s expired.", key)
			c.remove(key)
		}
	}
}
