package cache

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRU policy", func() {
	var p *lruPolicy
	BeforeEach(func() {
		resetTestKeys()
		p = newLRUPolicy()
	})

	It("evict on empty fails", func() {
		_, err := p.Evict()
		Expect(err).To(Equal(ErrNoKeys))
	})

	It("evicts least recently used", func() {
		p.RecordAccess("a")
		p.RecordAccess("b")
		p.RecordAccess("c")
		key, err := p.Evict()
		Expect(err).To(BeNil())
		Expect(key).To(Equal("a"))
	})

	It("access moves key to most recent end", func() {
		p.RecordAccess("a")
		p.RecordAccess("b")
		p.RecordAccess("a")
		key, err := p.Evict()
		Expect(err).To(BeNil())
		Expect(key).To(Equal("b"))
	})

	It("repeated access of most recent key keeps order", func() {
		p.RecordAccess("a")
		p.RecordAccess("b")
		p.RecordAccess("b")
		p.RecordAccess("b")
		Expect(p.trackedKeys()).To(Equal([]string{"a", "b"}))
	})

	It("remove untracked key is no-op", func() {
		p.RecordAccess("a")
		p.Remove("b")
		Expect(p.trackedKeys()).To(Equal([]string{"a"}))
	})

	It("remove detaches tracking", func() {
		p.RecordAccess("a")
		p.RecordAccess("b")
		p.Remove("a")
		Expect(p.trackedKeys()).To(Equal([]string{"b"}))
		key, err := p.Evict()
		Expect(err).To(BeNil())
		Expect(key).To(Equal("b"))
	})

	It("clear resets state", func() {
		p.RecordAccess("a")
		p.RecordAccess("b")
		p.Clear()
		Expect(p.trackedKeys()).To(BeEmpty())
		_, err := p.Evict()
		Expect(err).To(Equal(ErrNoKeys))
	})
})
