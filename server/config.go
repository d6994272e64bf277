package server

import (
	"io"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/counter"
	"github.com/rahultewari75/cache/log"
	"github.com/rahultewari75/cache/queue"
)

// Config is the parsed server configuration.
type Config struct {
	Addr           string
	LogDestination io.Writer
	LogLevel       log.Level
	MaxValueSize   int
	Cache          cache.Config
}

// NewServer builds a server with its own logger, cache, counter and
// queue instances.
func NewServer(conf Config) (*Server, error) {
	l := log.NewLogger(conf.LogLevel, conf.LogDestination)
	c, err := cache.New(l, conf.Cache)
	if err != nil {
		return nil, err
	}
	return &Server{
		Addr: conf.Addr,
		Log:  l,
		ConnMeta: ConnMeta{
			Cache:        &LockedCache{Cache: c},
			Counters:     &LockedCounter{Counter: counter.New(l)},
			Queues:       &LockedQueue{Queue: queue.New(l)},
			Stats:        NewStats(),
			MaxValueSize: conf.MaxValueSize,
		},
	}, nil
}
