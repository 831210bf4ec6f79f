// Package control exposes the cache's operations over HTTP for the
// remote-control client. Commands are dispatched through a fixed
// registered table (name to typed getter/setter/action); unknown names
// are rejected. This is a trusted-LAN surface: filter expressions pass
// through to the query engine as operator input.
package control
