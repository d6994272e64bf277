package cache

import "github.com/rahultewari75/cache/internal/list"

// lfuPolicy tracks an access frequency per key and groups keys of equal
// frequency into insertion-ordered buckets. Eviction takes the oldest
// key of the minimum frequency bucket, so ties between equally frequent
// keys resolve least-recently-inserted first.
type lfuPolicy struct {
	freqs   map[string]int
	buckets map[int]*lfuBucket
	// minFreq is only meaningful while keys are tracked. It is
	// re-derived, not trusted, after removals can empty its bucket.
	minFreq int
}

// lfuBucket is an insertion-ordered key set: a sentinel list plus a
// key to node map, same O(1) discipline as the LRU order.
type lfuBucket struct {
	order *list.List
	index map[string]*list.Node
}

func newLFUBucket() *lfuBucket {
	return &lfuBucket{
		order: list.New(),
		index: make(map[string]*list.Node),
	}
}

func (b *lfuBucket) add(key string) {
	b.index[key] = b.order.PushBack(key)
}

func (b *lfuBucket) remove(key string) {
	n, ok := b.index[key]
	if !ok {
		return
	}
	b.order.Remove(n)
	delete(b.index, key)
}

func (b *lfuBucket) empty() bool { return b.order.Empty() }

func NewLFUPolicy() Policy { return newLFUPolicy() }

func newLFUPolicy() *lfuPolicy {
	return &lfuPolicy{
		freqs:   make(map[string]int),
		buckets: make(map[int]*lfuBucket),
	}
}

func (p *lfuPolicy) RecordAccess(key string) {
	freq, ok := p.freqs[key]
	if !ok {
		p.freqs[key] = 1
		p.bucket(1).add(key)
		p.minFreq = 1
		return
	}
	p.bucketRemove(freq, key)
	p.freqs[key] = freq + 1
	p.bucket(freq + 1).add(key)
	if freq == p.minFreq && p.buckets[freq] == nil {
		p.minFreq = freq + 1
	}
}

func (p *lfuPolicy) Evict() (string, error) {
	b := p.buckets[p.minFreq]
	if b == nil {
		return "", ErrNoKeys
	}
	return b.order.Front().Value, nil
}

func (p *lfuPolicy) Remove(key string) {
	freq, ok := p.freqs[key]
	if !ok {
		return
	}
	p.bucketRemove(freq, key)
	delete(p.freqs, key)
	if freq == p.minFreq && p.buckets[freq] == nil {
		p.minFreq = p.deriveMinFreq()
	}
}

func (p *lfuPolicy) Clear() {
	p.freqs = make(map[string]int)
	p.buckets = make(map[int]*lfuBucket)
	p.minFreq = 0
}

// bucket returns the bucket for freq, creating it if needed.
func (p *lfuPolicy) bucket(freq int) *lfuBucket {
	b := p.buckets[freq]
	if b == nil {
		b = newLFUBucket()
		p.buckets[freq] = b
	}
	return b
}

// bucketRemove removes key from its bucket and drops the bucket once
// empty, so deriveMinFreq only sees non-empty buckets.
func (p *lfuPolicy) bucketRemove(freq int, key string) {
	b := p.buckets[freq]
	b.remove(key)
	if b.empty() {
		delete(p.buckets, freq)
	}
}

// deriveMinFreq scans remaining buckets. The number of distinct
// frequencies is bounded by the cache capacity.
func (p *lfuPolicy) deriveMinFreq() int {
	min := 0
	for freq := range p.buckets {
		if min == 0 || freq < min {
			min = freq
		}
	}
	return min
}

func (p *lfuPolicy) trackedKeys() []string {
	keys := make([]string, 0, len(p.freqs))
	for key := range p.freqs {
		keys = append(keys, key)
	}
	return keys
}
