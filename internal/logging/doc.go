// Package logging provides a small leveled logging wrapper around the
// standard library logger. The level is read once from the LOG_LEVEL and
// DEBUG environment variables.
package logging
