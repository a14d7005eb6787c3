// Package idgen provides pluggable ID generation for lanshare.
//
// The store accepts a Generator, making the ID strategy a startup-time
// decision rather than a compile-time one: production uses prefixed UUIDv7
// (time-sortable, so equal-timestamp items still list in creation order),
// tests substitute a deterministic counter.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Useful for type-scoped identifiers (e.g. "itm_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Items is the default generator for item IDs.
var Items = Prefixed("itm_", UUIDv7())
