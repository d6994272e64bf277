// Package cache provides an in-memory key-value store with pluggable
// eviction policies (LRU, LFU, Random) and lazy TTL expiration.
//
// The Cache owns a key to Entry map and one Policy instance. After every
// completed operation the set of stored keys and the set of keys tracked
// by the policy are identical, and the number of stored keys never
// exceeds the configured capacity. Expired entries are discovered and
// purged by the operation that touches them, there is no background
// sweep.
//
// The cache itself is not safe for concurrent use. Callers that share an
// instance must serialize all operations with a single lock held for the
// duration of each call, as the server package does.
package cache
