// Package notifications delivers run outcomes via ntfy.
//
// The default implementation publishes to the ntfy topic URL from config and
// degrades to a no-op when no topic is configured. The coordinator sends at
// most one run summary per run and skips it when nothing was organized or
// deleted.
package notifications
