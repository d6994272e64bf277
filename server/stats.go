package server

import (
	"fmt"
	"sort"

	"github.com/rcrowley/go-metrics"
)

// Stats aggregates server-wide operation counters. Counters are
// goroutine safe, so connections update them without extra locking.
type Stats struct {
	registry metrics.Registry

	Connections metrics.Counter
	Commands    metrics.Counter
	GetHits     metrics.Counter
	GetMisses   metrics.Counter
	CounterOps  metrics.Counter
	QueueOps    metrics.Counter
}

func NewStats() *Stats {
	r := metrics.NewRegistry()
	return &Stats{
		registry:    r,
		Connections: metrics.NewRegisteredCounter("total_connections", r),
		Commands:    metrics.NewRegisteredCounter("total_commands", r),
		GetHits:     metrics.NewRegisteredCounter("get_hits", r),
		GetMisses:   metrics.NewRegisteredCounter("get_misses", r),
		CounterOps:  metrics.NewRegisteredCounter("counter_ops", r),
		QueueOps:    metrics.NewRegisteredCounter("queue_ops", r),
	}
}

// Lines renders one "STAT <name> <value>" line per counter, sorted by
// name for deterministic output.
func (s *Stats) Lines() []string {
	var lines []string
	s.registry.Each(func(name string, i interface{}) {
		if c, ok := i.(metrics.Counter); ok {
			lines = append(lines, fmt.Sprintf("%s %s %d", StatResponse, name, c.Count()))
		}
	})
	sort.Strings(lines)
	return lines
}
