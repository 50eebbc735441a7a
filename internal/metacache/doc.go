// Package metacache persists resolved video metadata in SQLite so repeat runs
// avoid spending remote API quota.
//
// Entries are keyed by video identifier and stamped with the fetch time. Get
// treats an entry older than the configured TTL exactly like a missing one,
// which forces a fresh fetch. Writes are single-row upserts, so concurrent Get
// and Put calls on one identifier never observe a partial row.
//
// The store uses WAL mode and retries briefly on SQLITE_BUSY so the CLI cache
// commands can run alongside an active organize pass.
package metacache
