// Package resolver turns a set of video identifiers into metadata, preferring
// the local cache and batching remote lookups so each remote call resolves as
// many identifiers as the API allows for a single unit of quota.
//
// ResolveAll is best effort. Identifiers that cannot be resolved this run
// (remote failure after retries, exhausted quota, or simply unknown to the
// API) are absent from the returned map and listed in Stats.Unresolved.
package resolver
