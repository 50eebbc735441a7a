// Package destination maps resolved metadata onto a library location: a
// sanitized channel directory and a sanitized, display-formatted base name.
//
// Resolve is pure. Resolver adds per-identifier memoization and idempotent
// directory creation so the coordinator can compute every destination before
// dispatching workers. Workers receive the prepared Info by value.
//
// Base names are cut to MaxBaseNameBytes so that a collision suffix, a
// language tag and an extension still fit the filesystem's name limit.
package destination
