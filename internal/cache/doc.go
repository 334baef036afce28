// Package cache defines the in-memory FileCache that maps a package identity
// (name@version) to the fully extracted archive.FileTable. The Store interface
// is the capacity/eviction extension point: the base implementation keeps
// every table for the process lifetime, while LRU and TTL policies can be
// selected at startup without touching the proxy service. All
// implementations replace whole tables atomically, so concurrent readers
// never observe a half-written value.
package cache
