// Package services defines shared utilities consumed by the run coordinator
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and video IDs for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     as fatal (configuration) or isolated (per batch, per file).
//
// Integrations with remote services live in subpackages (youtube, refresh).
package services
