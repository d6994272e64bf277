package cache

import (
	"math/rand"
	"time"
)

// randomPolicy keeps tracked keys in a dense slice with a key to index
// map pointing back into it. Eviction draws a uniform index over the
// slice, never the map iteration order, and removal swap-pops: the
// removed slot takes the last element and the slice truncates, keeping
// the back-indices valid and every operation O(1).
type randomPolicy struct {
	keys  []string
	index map[string]int
	rnd   *rand.Rand
}

func NewRandomPolicy() Policy {
	return newRandomPolicy(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newRandomPolicy(rnd *rand.Rand) *randomPolicy {
	return &randomPolicy{
		index: make(map[string]int),
		rnd:   rnd,
	}
}

func (p *randomPolicy) RecordAccess(key string) {
	if _, ok := p.index[key]; ok {
		// Access order does not affect random eviction.
		return
	}
	p.index[key] = len(p.keys)
	p.keys = append(p.keys, key)
}

func (p *randomPolicy) Evict() (string, error) {
	if len(p.keys) == 0 {
		return "", ErrNoKeys
	}
	i := p.rnd.Intn(len(p.keys))
	key := p.keys[i]
	p.swapPop(i)
	return key, nil
}

func (p *randomPolicy) Remove(key string) {
	i, ok := p.index[key]
	if !ok {
		return
	}
	p.swapPop(i)
}

func (p *randomPolicy) Clear() {
	p.keys = nil
	p.index = make(map[string]int)
}

func (p *randomPolicy) swapPop(i int) {
	last := len(p.keys) - 1
	delete(p.index, p.keys[i])
	if i != last {
		p.keys[i] = p.keys[last]
		p.index[p.keys[i]] = i
	}
	p.keys = p.keys[:last]
}

func (p *randomPolicy) trackedKeys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}
