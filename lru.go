package cache

import "github.com/rahultewari75/cache/internal/list"

// lruPolicy keeps an ordered key list, least recently used at the front.
// All operations are O(1): the index map resolves a key to its list node
// and the sentinel list moves nodes without traversal.
type lruPolicy struct {
	order *list.List
	index map[string]*list.Node
}

func NewLRUPolicy() Policy { return newLRUPolicy() }

func newLRUPolicy() *lruPolicy {
	return &lruPolicy{
		order: list.New(),
		index: make(map[string]*list.Node),
	}
}

func (p *lruPolicy) RecordAccess(key string) {
	if n, ok := p.index[key]; ok {
		p.order.MoveToBack(n)
		return
	}
	p.index[key] = p.order.PushBack(key)
}

func (p *lruPolicy) Evict() (string, error) {
	n := p.order.Front()
	if n == nil {
		return "", ErrNoKeys
	}
	return n.Value, nil
}

func (p *lruPolicy) Remove(key string) {
	n, ok := p.index[key]
	if !ok {
		return
	}
	p.order.Remove(n)
	delete(p.index, key)
}

func (p *lruPolicy) Clear() {
	p.order.Clear()
	p.index = make(map[string]*list.Node)
}

func (p *lruPolicy) trackedKeys() []string { return p.order.Values() }
