// Package service is the entry point to the context engine.
//
// A Service fetches owner context through a store.Store, hands it to the
// pure engine packages (extraction, validation, conflict, ranking) and
// records every mutation on an audit.Sink. The MCP, HTTP and CLI surfaces
// all go through it.
//
// Read paths fail the whole call on any store error rather than returning
// a partial view. Audit failures are logged and never fail the mutation
// they describe.
package service
