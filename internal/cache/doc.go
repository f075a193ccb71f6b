// Package cache provides the content-addressed on-disk result cache.
//
// Signal data for a given (tree, shot, expression) tuple is immutable once
// recorded, so entries are write-once-read-many with no TTL and no
// eviction. The layout is one directory per (tree, shot) pair under the
// cache root, holding files named by the SHA256 hex digest of the query
// expression:
//
//	<root>/<tree>/<shot>/<sha256(expr)>
//
// File contents are CBOR blobs. Any failure to read or decode an entry is
// reported as ErrMiss so callers fall back to the network; writes go
// through a temp file and rename so readers never see a partial entry.
package cache
