package queue

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/rahultewari75/cache"
)

var _ = Describe("Queue", func() {
	var q *Queue
	BeforeEach(func() {
		q = New(testLogger())
	})

	Enqueue := func(key, item string, expectedLen int) {
		n, err := q.Enqueue(key, item)
		Expect(err).To(BeNil())
		Expect(n).To(Equal(expectedLen))
	}
	Dequeue := func(key, expected string) {
		item, err := q.Dequeue(key)
		Expect(err).To(BeNil())
		Expect(item).To(Equal(expected))
	}
	ExpectNotFound := func(err error, key string) {
		Expect(err).To(Equal(&cache.KeyNotFoundError{Key: key}))
	}

	It("starts empty", func() {
		Expect(q.Set("jobs", 0)).To(Succeed())
		size, err := q.Size("jobs")
		Expect(err).To(BeNil())
		Expect(size).To(BeZero())
	})

	It("rejects empty key", func() {
		Expect(cache.IsInvalidInput(q.Set("", 0))).To(BeTrue())
		_, err := q.Enqueue("", "x")
		Expect(cache.IsInvalidInput(err)).To(BeTrue())
	})

	It("rejects negative ttl", func() {
		Expect(cache.IsInvalidInput(q.Set("jobs", -time.Second))).To(BeTrue())
	})

	It("dequeues in fifo order", func() {
		Expect(q.Set("jobs", 0)).To(Succeed())
		Enqueue("jobs", "first", 1)
		Enqueue("jobs", "second", 2)
		Enqueue("jobs", "third", 3)
		Dequeue("jobs", "first")
		Dequeue("jobs", "second")
		Dequeue("jobs", "third")
		_, err := q.Dequeue("jobs")
		Expect(err).To(Equal(&QueueEmptyError{Key: "jobs"}))
		Expect(IsEmpty(err)).To(BeTrue())
	})

	It("empty and missing queues fail differently", func() {
		Expect(q.Set("jobs", 0)).To(Succeed())
		_, err := q.Dequeue("jobs")
		Expect(IsEmpty(err)).To(BeTrue())
		Expect(cache.IsNotFound(err)).To(BeFalse())

		_, err = q.Dequeue("nope")
		ExpectNotFound(err, "nope")
		Expect(IsEmpty(err)).To(BeFalse())
	})

	It("get lists items without consuming", func() {
		Expect(q.Set("jobs", 0)).To(Succeed())
		Enqueue("jobs", "a", 1)
		Enqueue("jobs", "b", 2)
		items, err := q.Get("jobs")
		Expect(err).To(BeNil())
		Expect(items).To(Equal([]string{"a", "b"}))
		size, err := q.Size("jobs")
		Expect(err).To(BeNil())
		Expect(size).To(Equal(2))
	})

	It("set resets an existing queue", func() {
		Expect(q.Set("jobs", 0)).To(Succeed())
		Enqueue("jobs", "a", 1)
		Expect(q.Set("jobs", 0)).To(Succeed())
		size, err := q.Size("jobs")
		Expect(err).To(BeNil())
		Expect(size).To(BeZero())
	})

	It("queues are independent", func() {
		Expect(q.Set("a", 0)).To(Succeed())
		Expect(q.Set("b", 0)).To(Succeed())
		Enqueue("a", "only in a", 1)
		size, err := q.Size("b")
		Expect(err).To(BeNil())
		Expect(size).To(BeZero())
	})

	It("delete removes a queue", func() {
		Expect(q.Set("jobs", 0)).To(Succeed())
		Expect(q.Delete("jobs")).To(Succeed())
		_, err := q.Size("jobs")
		ExpectNotFound(err, "jobs")
		ExpectNotFound(q.Delete("jobs"), "jobs")
	})

	It("scan returns live keys", func() {
		Expect(q.Set("a", 0)).To(Succeed())
		Expect(q.Set("b", 0)).To(Succeed())
		Expect(q.Scan()).To(ConsistOf("a", "b"))
	})

	It("clear removes everything", func() {
		Expect(q.Set("a", 0)).To(Succeed())
		q.Clear()
		Expect(q.Len()).To(BeZero())
		Expect(q.Scan()).To(BeEmpty())
	})

	Context("expiration", func() {
		const ttl = 30 * time.Millisecond

		It("expired queue reads as missing", func() {
			Expect(q.Set("jobs", ttl)).To(Succeed())
			Enqueue("jobs", "a", 1)
			time.Sleep(2 * ttl)
			_, err := q.Dequeue("jobs")
			ExpectNotFound(err, "jobs")
			Expect(q.Len()).To(BeZero(), "expired queue must be purged on discovery")
		})

		It("ttl reports remaining time", func() {
			Expect(q.Set("jobs", time.Hour)).To(Succeed())
			remaining, ok, err := q.TTL("jobs")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			Expect(remaining).To(BeNumerically(">", 59*time.Minute))

			Expect(q.Set("forever", 0)).To(Succeed())
			_, ok, err = q.TTL("forever")
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
		})

		It("expire overrides previous ttl", func() {
			Expect(q.Set("jobs", time.Hour)).To(Succeed())
			Expect(q.Expire("jobs", time.Now().Add(-time.Second))).To(Succeed())
			_, err := q.Size("jobs")
			ExpectNotFound(err, "jobs")
		})

		It("expire rejects zero time", func() {
			Expect(q.Set("jobs", 0)).To(Succeed())
			Expect(cache.IsInvalidInput(q.Expire("jobs", time.Time{}))).To(BeTrue())
		})

		It("scan purges expired queues", func() {
			Expect(q.Set("dead", ttl)).To(Succeed())
			Expect(q.Set("live", 0)).To(Succeed())
			time.Sleep(2 * ttl)
			Expect(q.Scan()).To(ConsistOf("live"))
			Expect(q.Len()).To(Equal(1))
		})
	})
})
