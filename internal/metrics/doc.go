// Package metrics records Prometheus instrumentation for a single organizer run.
//
// vidshelf is a one-shot command, so nothing is scraped. Instead a Recorder
// owns a private registry and, when a textfile path is configured, writes it
// in the node_exporter textfile collector format at the end of the run. All
// metrics are prefixed with "vidshelf_".
//
// # Metric Categories
//
// ## Organizer
//   - FilesOrganized: files placed into the library, by kind
//   - FilesFailed: files that could not be organized
//   - FilesDeleted: files removed by retention
//
// ## Resolver
//   - APICalls: remote metadata requests, including retries
//   - CacheHits: identifiers served from the metadata cache
//   - Unresolved: identifiers with no metadata after the run
//   - QuotaRemaining: remote request units left
//
// ## Run
//   - RunDuration: wall time of the last run
//   - LastRunTimestamp: unix time the last run finished
package metrics
