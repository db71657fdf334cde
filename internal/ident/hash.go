// Package ident converts opaque string identifiers into small stable integers
// for downstream consumers that require numeric ids (mobile clients, legacy
// integrations). The mapping must survive restarts, so it is a pure hash with
// a fixed algorithm rather than a lookup table.
package ident

import "hash/fnv"

// Compact hashes an identifier with 32-bit FNV-1a and clears the sign bit so
// the result always fits a positive int32. An empty identifier maps to 0.
func Compact(id string) int32 {
	if id == "" {
		return 0
	}

	h := fnv.New32a()
	// Write on fnv never returns an error.
	_, _ = h.Write([]byte(id))
	return int32(h.Sum32() & 0x7fffffff)
}
