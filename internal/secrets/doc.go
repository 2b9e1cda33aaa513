// Package secrets redacts credentials from extracted context before it is
// shown or stored.
//
// Two detectors run over the same text: a small set of local regexp rules
// and, when enabled, the gitleaks default rule catalogue. Findings report
// rule ids and positions only; the matched value never leaves Scrub.
package secrets
