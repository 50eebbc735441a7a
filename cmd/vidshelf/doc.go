// Package main hosts the vidshelf CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the collaborators
// (metadata cache, remote client, notifier, refresh trigger) and hands them to
// the workflow coordinator. Cache and config maintenance commands operate on
// the same configured paths. Keep this package lean: behavior belongs in the
// internal packages.
package main
