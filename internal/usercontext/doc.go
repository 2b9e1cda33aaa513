// Package usercontext defines the context items owned by a user: decisions,
// goals, preferences, known issues and contextual todos.
//
// Every item carries an opaque id, an owner, a scope and timestamps.
// Categorical fields are string-backed tagged variants with an Other
// fallback, so unknown values survive a round trip through storage without
// breaking exhaustive switches.
//
// Range rules:
//   - confidence scores live in [0.0, 1.0]
//   - priorities live in [1, 5], 1 is highest
//   - applied_count and frequency_observed never decrease
//
// Builder helpers (WithConfidence, WithPriority) clamp into range. Values
// supplied by callers through create/update paths are checked with
// ValidateConfidence and ValidatePriority and rejected with ErrInvalidRange.
package usercontext
