// Package services assembles the contextiq service graph from
// configuration.
//
// Build opens the store, compiles the pattern library, prepares the secret
// scrubber and audit sinks, and returns a Registry with accessors for each
// piece. Both cmd/contextiq and cmd/ciq start here.
package services
