// Package metrics defines the Prometheus collectors used across the
// application. All collectors are registered at init time via promauto.
package metrics
