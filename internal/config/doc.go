// Package config loads, normalizes, and validates vidshelf configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, imports the legacy flat YAML layout, and
// honours environment fallbacks such as YOUTUBE_API_KEY. The Config type
// centralizes every knob the CLI and run coordinator need so source/library
// directories, cache settings, and retention windows are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
