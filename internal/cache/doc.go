// Package cache drives the image index: a single background loop runs the
// full update cycle (scan folders, enumerate files, extract metadata,
// purge missing entries, commit) on a fixed cadence. The loop is the only
// writer; queries and file-info reads may come from any goroutine.
package cache
