//go:build debug

// Gomega should not be dependency in non-debug build.

package cache

import (
	"errors"
	"log"

	"github.com/facebookgo/stackerr"
	. "github.com/onsi/gomega"
)

var _ = func() (_ struct{}) {
	RegisterFailHandler(GomegaFailHandler)
	return
}()

func GomegaFailHandler(message string, callerSkip ...int) {
	skip := callerSkip[0] + 1
	log.Fatal("FATAL: invariants are broken:", stackerr.WrapSkip(errors.New(message), skip))
}

type keyTracker interface {
	trackedKeys() []string
}

func (c *Cache) checkInvariants() {
	Expect(len(c.storage)).To(BeNumerically("<=", c.capacity), "capacity overflow")
	p, ok := c.policy.(keyTracker)
	if !ok {
		// Externally injected policy, nothing to introspect.
		return
	}
	tracked := p.trackedKeys()
	Expect(tracked).To(HaveLen(len(c.storage)), "storage and policy disagree on key count")
	for _, key := range tracked {
		_, ok := c.storage[key]
		Expect(ok).To(BeTrue(), key, "policy tracks key missing from storage")
	}
}
