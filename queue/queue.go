// Package queue implements named FIFO string queues on top of the cache
// entry substrate. Queues share the entry TTL semantics but have no
// capacity bound and no eviction policy.
package queue

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/internal/list"
	"github.com/rahultewari75/cache/log"
)

// QueueEmptyError reports a dequeue from an existing but empty queue.
// It is distinct from KeyNotFoundError: the queue is there, it just has
// nothing in it.
type QueueEmptyError struct {
	Key string
}

func (e *QueueEmptyError) Error() string {
	return fmt.Sprintf("queue %q is empty", e.Key)
}

func IsEmpty(err error) bool {
	var e *QueueEmptyError
	return errors.As(err, &e)
}

// Queue holds any number of named queues. It is not safe for concurrent
// use; the caller serializes access.
type Queue struct {
	queues map[string]*cache.Entry
	log    log.Logger
}

func New(l log.Logger) *Queue {
	return &Queue{
		queues: make(map[string]*cache.Entry),
		log:    l,
	}
}

func (q *Queue) Len() int { return len(q.queues) }

// Set creates or resets an empty queue. ttl <= 0 means no expiration.
func (q *Queue) Set(key string, ttl time.Duration) error {
	if err := cache.CheckKey(key); err != nil {
		return err
	}
	if ttl < 0 {
		return &cache.InvalidInputError{Reason: "ttl must be positive"}
	}
	q.log.Debugf("Set queue %s.", key)
	q.queues[key] = cache.NewEntry(list.New(), ttl)
	return nil
}

// Get returns the queued items from head to tail without consuming them.
func (q *Queue) Get(key string) ([]string, error) {
	l, err := q.list(key)
	if err != nil {
		return nil, err
	}
	return l.Values(), nil
}

// Enqueue appends an item to the tail and returns the new length.
func (q *Queue) Enqueue(key, item string) (int, error) {
	l, err := q.list(key)
	if err != nil {
		return 0, err
	}
	l.PushBack(item)
	return l.Len(), nil
}

// Dequeue removes and returns the head item. Dequeuing from an existing
// empty queue fails with QueueEmptyError, never with a partial result.
func (q *Queue) Dequeue(key string) (string, error) {
	l, err := q.list(key)
	if err != nil {
		return "", err
	}
	head := l.Front()
	if head == nil {
		return "", &QueueEmptyError{Key: key}
	}
	item := head.Value
	l.Remove(head)
	return item, nil
}

func (q *Queue) Size(key string) (int, error) {
	l, err := q.list(key)
	if err != nil {
		return 0, err
	}
	return l.Len(), nil
}

// TTL returns the remaining time to live. ok is false for queues with no
// expiration.
func (q *Queue) TTL(key string) (ttl time.Duration, ok bool, err error) {
	e, err := q.entry(key)
	if err != nil {
		return 0, false, err
	}
	ttl, ok = e.TTL()
	return ttl, ok, nil
}

// Expire overwrites the queue's absolute expiration time.
func (q *Queue) Expire(key string, at time.Time) error {
	if at.IsZero() {
		return &cache.InvalidInputError{Reason: "expiration time must not be zero"}
	}
	e, err := q.entry(key)
	if err != nil {
		return err
	}
	e.SetExpiration(at)
	return nil
}

func (q *Queue) Delete(key string) error {
	if _, err := q.entry(key); err != nil {
		return err
	}
	delete(q.queues, key)
	return nil
}

// Scan purges expired queues and returns the remaining keys. Order is
// unspecified.
func (q *Queue) Scan() []string {
	keys := make([]string, 0, len(q.queues))
	for key, e := range q.queues {
		if e.IsExpired() {
			q.log.Debugf("Queue %s expired.", key)
			delete(q.queues, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (q *Queue) Clear() {
	q.queues = make(map[string]*cache.Entry)
}

func (q *Queue) list(key string) (*list.List, error) {
	e, err := q.entry(key)
	if err != nil {
		return nil, err
	}
	return e.Value.(*list.List), nil
}

// entry looks a queue up, purging it when expired. An expired queue is
// indistinguishable from a missing one.
func (q *Queue) entry(key string) (*cache.Entry, error) {
	if err := cache.CheckKey(key); err != nil {
		return nil, err
	}
	e, ok := q.queues[key]
	if !ok {
		return nil, &cache.KeyNotFoundError{Key: key}
	}
	if e.IsExpired() {
		q.log.Debugf("Queue %s expired.", key)
		delete(q.queues, key)
		return nil, &cache.KeyNotFoundError{Key: key}
	}
	return e, nil
}
