// Package server speaks a memcached-style text protocol over TCP on top
// of the cache, counter and queue packages. The storage instances are
// single threaded; the locked wrappers here are the only mutual
// exclusion boundary between connections.
package server

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/counter"
	"github.com/rahultewari75/cache/log"
	"github.com/rahultewari75/cache/queue"
)

// LockedCache serializes access to a cache instance. Callers hold the
// lock for the whole command, including multi-call sequences.
type LockedCache struct {
	sync.Mutex
	*cache.Cache
}

type LockedCounter struct {
	sync.Mutex
	*counter.Counter
}

type LockedQueue struct {
	sync.Mutex
	*queue.Queue
}

type Server struct {
	Addr string
	ConnMeta
	Log         log.Logger
	connCounter int64
}

// ConnMeta is data shared between connections.
type ConnMeta struct {
	Cache        *LockedCache
	Counters     *LockedCounter
	Queues       *LockedQueue
	Stats        *Stats
	MaxValueSize int
}

func (s *Server) ListenAndServe() error {
	if s.Addr == "" {
		s.Addr = ":11211"
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Serve(l net.Listener) error {
	s.init()
	var tempDelay time.Duration // How long to sleep on accept failure.
	for {
		c, err := l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); !(ok && ne.Temporary()) {
				return err
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			s.Log.Errorf("Accept error: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		go s.newConn(c).serve()
	}
}

func (s *Server) newConn(c net.Conn) *conn {
	l := s.Log.WithFields(log.Fields{"conn": s.connCounter})
	s.connCounter++
	s.Stats.Connections.Inc(1)
	return newConn(l, &s.ConnMeta, c)
}

func (s *Server) init() {
	if s.Log == nil {
		s.Log = log.NewLogger(log.ErrorLevel, os.Stderr)
	}
	s.ConnMeta.init(s.Log)
}

func (m *ConnMeta) init(l log.Logger) {
	if m.Cache == nil {
		c, err := cache.New(l, cache.Config{Capacity: 1024, Policy: cache.LRU})
		if err != nil {
			panic(err)
		}
		m.Cache = &LockedCache{Cache: c}
	}
	if m.Counters == nil {
		m.Counters = &LockedCounter{Counter: counter.New(l)}
	}
	if m.Queues == nil {
		m.Queues = &LockedQueue{Queue: queue.New(l)}
	}
	if m.Stats == nil {
		m.Stats = NewStats()
	}
	if m.MaxValueSize == 0 {
		m.MaxValueSize = DefaultMaxValueSize
	}
}
