// Package store holds recent scan records in memory. It provides a
// thread-safe store keyed by scan ID with TTL eviction of finished records;
// running records are never evicted.
package store
