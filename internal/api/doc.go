// Package api holds the request shapes shared by the MCP tools and the
// HTTP API.
//
// Field sets use pointers so one type serves both create and partial
// update: New builds an entity from the fields that are set, Apply
// overwrites only those fields on an existing one. Enum strings are
// normalized the way the store normalizes them, so unknown values fall
// back to the "other" variant instead of failing.
package api
