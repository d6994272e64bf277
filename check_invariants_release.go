//go:build !debug

package cache

func (c *Cache) checkInvariants() {}
