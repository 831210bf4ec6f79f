// Package database implements the persisted image index: folders, files,
// per-file metadata and the reverse-geocode cache, combined into the
// all_data read view. All writes from the update cycle go through a single
// batch transaction; read queries may run concurrently thanks to WAL mode.
package database
