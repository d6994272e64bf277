package server

import (
	"errors"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gbytes"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/counter"
	"github.com/rahultewari75/cache/queue"
)

const ReadTimeout = 0.2

var _ = Describe("Conn", func() {
	var (
		connMeta      *ConnMeta
		out           *Buffer
		in            *io.PipeWriter
		serveFinished chan struct{}
	)
	BeforeEach(func() {
		serveFinished = make(chan struct{})
		out = NewBuffer()
		l := testLogger()
		c, err := cache.New(l, cache.Config{Capacity: 4, Policy: cache.LRU})
		Expect(err).To(BeNil())
		connMeta = &ConnMeta{
			Cache:    &LockedCache{Cache: c},
			Counters: &LockedCounter{Counter: counter.New(l)},
			Queues:   &LockedQueue{Queue: queue.New(l)},
		}
		connMeta.init(l)
		var connReader *io.PipeReader
		connReader, in = io.Pipe()
		rwc := struct {
			io.ReadCloser
			io.Writer
		}{connReader, out}
		conn := newConn(l, connMeta, rwc)
		go func() {
			defer GinkgoRecover()
			conn.serve()
			close(serveFinished)
		}()
	})

	AfterEach(func() {
		in.Close()
		Eventually(serveFinished).Should(BeClosed())
		Expect(out).NotTo(Say(Anything))
	})

	expectSay := func(pattern string) {
		Eventually(out, ReadTimeout).Should(Say(pattern))
	}
	Input := func(s string) {
		io.WriteString(in, s)
	}

	It("reports server error on broken input", func() {
		Input("get ")
		in.CloseWithError(errors.New("test err"))
		expectSay(ServerErrorPattern)
	})

	It("reports client error on get without keys", func() {
		Input("get \r\n")
		expectSay(ClientErrorPattern)
	})

	It("reports unknown command", func() {
		Input("frobnicate key\r\n")
		expectSay(ErrorPattern)
	})

	Context("cache commands", func() {
		It("stores and gets a value", func() {
			Input("set greeting 7 0 5\r\nhello\r\n")
			expectSay(StoredPattern)
			Input("get greeting\r\n")
			expectSay(ValueResponse + ` greeting 7 5` + SeparatorPattern)
			expectSay(`hello` + SeparatorPattern)
			expectSay(EndPattern)
		})

		It("stores with noreply", func() {
			Input("set greeting 0 0 2 noreply\r\nhi\r\n")
			Input("get greeting\r\n")
			expectSay(ValueResponse + ` greeting 0 2` + SeparatorPattern)
			expectSay(`hi` + SeparatorPattern)
			expectSay(EndPattern)
		})

		It("misses are silent", func() {
			Input("get nope\r\n")
			expectSay(EndPattern)
		})

		It("gets several keys at once", func() {
			Input("set a 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("set b 0 0 1\r\ny\r\n")
			expectSay(StoredPattern)
			Input("get a missing b\r\n")
			expectSay(ValueResponse + ` a 0 1` + SeparatorPattern + `x` + SeparatorPattern)
			expectSay(ValueResponse + ` b 0 1` + SeparatorPattern + `y` + SeparatorPattern)
			expectSay(EndPattern)
		})

		It("rejects too large value", func() {
			connMeta.MaxValueSize = 4
			Input("set big 0 0 5\r\nhello\r\n")
			expectSay(ClientErrorPattern)
		})

		It("deletes stored key", func() {
			Input("set doomed 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("delete doomed\r\n")
			expectSay(DeletedPattern)
			Input("delete doomed\r\n")
			expectSay(NotFoundPattern)
		})

		It("touches stored key", func() {
			Input("touch nope 60\r\n")
			expectSay(NotFoundPattern)
			Input("set k 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("touch k 60\r\n")
			expectSay(TouchedPattern)
		})

		It("reports remaining ttl", func() {
			Input("set k 0 60 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("ttl k\r\n")
			expectSay(TTLResponse + ` \d+` + SeparatorPattern)
			Input("set forever 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("ttl forever\r\n")
			expectSay(TTLResponse + ` -1` + SeparatorPattern)
			Input("ttl nope\r\n")
			expectSay(NotFoundPattern)
		})

		It("scans stored keys", func() {
			Input("set a 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("scan\r\n")
			expectSay(KeyResponse + ` a` + SeparatorPattern + EndPattern)
		})

		It("flushes all keys", func() {
			Input("set a 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("flush_all\r\n")
			expectSay(OkPattern)
			Input("get a\r\n")
			expectSay(EndPattern)
		})

		It("reports stats", func() {
			Input("set a 0 0 1\r\nx\r\n")
			expectSay(StoredPattern)
			Input("get a nope\r\n")
			expectSay(EndPattern)
			Input("stats\r\n")
			expectSay(StatResponse + ` counter_ops 0` + SeparatorPattern)
			expectSay(StatResponse + ` get_hits 1` + SeparatorPattern)
			expectSay(StatResponse + ` get_misses 1` + SeparatorPattern)
			expectSay(EndPattern)
		})
	})

	Context("counter commands", func() {
		It("counts up and down", func() {
			Input("cset hits 0\r\n")
			expectSay(StoredPattern)
			Input("incr hits 1\r\n")
			expectSay(`1` + SeparatorPattern)
			Input("incr hits 1\r\n")
			expectSay(`2` + SeparatorPattern)
			Input("decr hits 1\r\n")
			expectSay(`1` + SeparatorPattern)
			Input("cget hits\r\n")
			expectSay(`1` + SeparatorPattern)
		})

		It("rejects non unit delta", func() {
			Input("cset hits 0\r\n")
			expectSay(StoredPattern)
			Input("incr hits 2\r\n")
			expectSay(ClientErrorPattern)
		})

		It("missing counter is not found", func() {
			Input("cget nope\r\n")
			expectSay(NotFoundPattern)
			Input("incr nope 1\r\n")
			expectSay(NotFoundPattern)
		})

		It("deletes and scans counters", func() {
			Input("cset hits 0\r\n")
			expectSay(StoredPattern)
			Input("cscan\r\n")
			expectSay(KeyResponse + ` hits` + SeparatorPattern + EndPattern)
			Input("cdelete hits\r\n")
			expectSay(DeletedPattern)
			Input("cget hits\r\n")
			expectSay(NotFoundPattern)
		})

		It("reports counter ttl and touch", func() {
			Input("cset hits 60\r\n")
			expectSay(StoredPattern)
			Input("cttl hits\r\n")
			expectSay(TTLResponse + ` \d+` + SeparatorPattern)
			Input("ctouch hits 120\r\n")
			expectSay(TouchedPattern)
		})
	})

	Context("queue commands", func() {
		It("round trips items in fifo order", func() {
			Input("qset jobs 0\r\n")
			expectSay(StoredPattern)
			Input("enqueue jobs first\r\n")
			expectSay(SizeResponse + ` 1` + SeparatorPattern)
			Input("enqueue jobs second\r\n")
			expectSay(SizeResponse + ` 2` + SeparatorPattern)
			Input("qsize jobs\r\n")
			expectSay(SizeResponse + ` 2` + SeparatorPattern)
			Input("qlist jobs\r\n")
			expectSay(ValueResponse + ` first` + SeparatorPattern)
			expectSay(ValueResponse + ` second` + SeparatorPattern)
			expectSay(EndPattern)
			Input("dequeue jobs\r\n")
			expectSay(ValueResponse + ` first` + SeparatorPattern)
			Input("dequeue jobs\r\n")
			expectSay(ValueResponse + ` second` + SeparatorPattern)
			Input("dequeue jobs\r\n")
			expectSay(EmptyPattern)
		})

		It("missing queue is not found", func() {
			Input("dequeue nope\r\n")
			expectSay(NotFoundPattern)
			Input("enqueue nope x\r\n")
			expectSay(NotFoundPattern)
			Input("qsize nope\r\n")
			expectSay(NotFoundPattern)
		})

		It("deletes and scans queues", func() {
			Input("qset jobs 0\r\n")
			expectSay(StoredPattern)
			Input("qscan\r\n")
			expectSay(KeyResponse + ` jobs` + SeparatorPattern + EndPattern)
			Input("qdelete jobs\r\n")
			expectSay(DeletedPattern)
			Input("qsize jobs\r\n")
			expectSay(NotFoundPattern)
		})

		It("reports queue ttl and touch", func() {
			Input("qset jobs 60\r\n")
			expectSay(StoredPattern)
			Input("qttl jobs\r\n")
			expectSay(TTLResponse + ` \d+` + SeparatorPattern)
			Input("qtouch jobs 120\r\n")
			expectSay(TouchedPattern)
		})
	})
})
