// Package startup handles configuration loading and validation at process
// start. Configuration comes from environment variables, optionally seeded
// from a .env file in the working directory.
package startup
