// Package extraction turns free-form text into unconfirmed context item
// candidates using a weighted pattern catalogue.
//
// # Architecture
//
// The main components are:
//   - Library: an immutable, compiled catalogue of Patterns grouped by
//     Category. Construction fails on the first malformed pattern.
//   - Extractor: applies a Library to text and returns a Result holding
//     decision, goal, preference and issue candidates.
//   - TagScanner: Aho-Corasick scan of a tag vocabulary for preferences.
//
// # Usage
//
//	lib := extraction.MustDefaultLibrary()
//	ex, err := extraction.NewExtractor(lib)
//	if err != nil {
//	    return err
//	}
//	res := ex.Extract("We decided to use async processing because it improves throughput")
//	for _, d := range res.Decisions {
//	    fmt.Printf("%s (%.2f, %s)\n", *d.Text, d.Confidence, d.Category)
//	}
//
// # Scoring
//
// A candidate's confidence starts at its pattern weight. After matching, a
// second pass adds the frequency boost for every extra case-insensitive
// occurrence of the payload in the input, capped at 1.0.
//
// Kind-specific fields (category, priority, severity, tags, symptoms,
// workaround) are inferred from the whole input, not only the captured span.
// Candidates are never deduplicated and are never persisted by this package.
package extraction
