// Package subject reduces short context texts to a comparable subject: a set
// of content tokens plus a polarity flag. The validator and the conflict
// detector both decide relevance and contradiction through this package.
//
// Contradiction rule:
//   - when one text names a term and the other names its opposite
//     (sync/async, enable/disable, ...) the texts contradict if they share
//     polarity and talk about the same thing;
//   - otherwise the texts contradict when their polarities differ and their
//     token sets overlap.
package subject

import (
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

var english = stopwords.MustGet("en")

// negationCues flip the polarity of a text.
var negationCues = map[string]struct{}{
	"no": {}, "not": {}, "never": {}, "avoid": {}, "without": {}, "stop": {},
	"don't": {}, "dont": {}, "doesn't": {}, "shouldn't": {}, "mustn't": {},
	"can't": {}, "cannot": {}, "won't": {}, "prohibit": {}, "prohibited": {},
	"forbid": {}, "forbidden": {}, "refuse": {}, "against": {}, "nothing": {},
}

// fillers carry intent but no subject.
var fillers = map[string]struct{}{
	"always": {}, "must": {}, "should": {}, "use": {}, "using": {}, "used": {},
	"uses": {}, "prefer": {}, "preferred": {}, "prefers": {}, "want": {},
	"like": {}, "please": {}, "let's": {}, "lets": {}, "decided": {},
	"decide": {}, "going": {}, "will": {}, "need": {}, "needs": {},
	"make": {}, "sure": {}, "ever": {}, "instead": {}, "only": {},
}

// canonical folds spelling variants onto one token.
var canonical = map[string]string{
	"synchronous":    "sync",
	"synchronously":  "sync",
	"asynchronous":   "async",
	"asynchronously": "async",
	"enabled":        "enable",
	"disabled":       "disable",
	"allowed":        "allow",
	"denied":         "deny",
	"automated":      "automatic",
	"automatically":  "automatic",
	"manually":       "manual",
	"tabs":           "tab",
	"spaces":         "space",
}

// opposites pairs terms that cannot both hold for the same subject.
var opposites = map[string]string{
	"sync":      "async",
	"async":     "sync",
	"enable":    "disable",
	"disable":   "enable",
	"allow":     "deny",
	"deny":      "allow",
	"include":   "exclude",
	"exclude":   "include",
	"tab":       "space",
	"space":     "tab",
	"manual":    "automatic",
	"automatic": "manual",
	"mutable":   "immutable",
	"immutable": "mutable",
	"monorepo":  "polyrepo",
	"polyrepo":  "monorepo",
}

// invariant words end in "s" but are not plurals.
var invariant = map[string]struct{}{
	"postgres": {}, "kubernetes": {}, "jenkins": {}, "windows": {}, "macos": {},
	"ios": {}, "aws": {}, "dns": {}, "https": {}, "series": {}, "news": {},
	"status": {}, "ses": {}, "sns": {}, "sqs": {}, "rds": {}, "ecs": {}, "eks": {},
	"gcs": {}, "nfs": {}, "cms": {},
}

// Analysis is the reduced form of a text.
type Analysis struct {
	Tokens  []string
	Negated bool
	set     map[string]struct{}
}

// Analyze lowercases, splits, drops stopwords and fillers, and records
// whether a negation cue was present.
func Analyze(text string) Analysis {
	a := Analysis{set: make(map[string]struct{})}
	for _, raw := range split(text) {
		if _, ok := negationCues[raw]; ok {
			a.Negated = true
			continue
		}
		if _, ok := fillers[raw]; ok {
			continue
		}
		tok := normalize(raw)
		if tok == "" {
			continue
		}
		// every single letter is a stopword, but "C" or "R" can be the subject
		if len(tok) > 1 && english.Contains(tok) {
			continue
		}
		a.add(tok)
	}
	sort.Strings(a.Tokens)
	return a
}

// AnalyzeWith analyzes primary and adds the content tokens of extra. Only
// primary sets the polarity; negation cues in extra are dropped.
func AnalyzeWith(primary string, extra ...string) Analysis {
	a := Analyze(primary)
	for _, e := range extra {
		for _, tok := range Analyze(e).Tokens {
			a.add(tok)
		}
	}
	sort.Strings(a.Tokens)
	return a
}

func (a *Analysis) add(tok string) {
	if _, seen := a.set[tok]; seen {
		return
	}
	a.set[tok] = struct{}{}
	a.Tokens = append(a.Tokens, tok)
}

// Has reports whether tok is part of the subject.
func (a Analysis) Has(tok string) bool {
	_, ok := a.set[tok]
	return ok
}

// Empty reports whether no content tokens survived.
func (a Analysis) Empty() bool { return len(a.Tokens) == 0 }

// Shared returns the sorted tokens present in both analyses.
func Shared(a, b Analysis) []string {
	var out []string
	for _, tok := range a.Tokens {
		if b.Has(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// Overlaps reports whether the analyses share a token.
func Overlaps(a, b Analysis) bool {
	for _, tok := range a.Tokens {
		if b.Has(tok) {
			return true
		}
	}
	return false
}

// Contradicts applies the contradiction rule to two analyses.
func Contradicts(a, b Analysis) bool {
	if paired, related := opposed(a, b); paired {
		return related && a.Negated == b.Negated
	}
	return a.Negated != b.Negated && Overlaps(a, b)
}

// ContradictsText analyzes both texts and applies Contradicts.
func ContradictsText(a, b string) bool {
	return Contradicts(Analyze(a), Analyze(b))
}

// opposed reports whether a and b name opposite terms, and whether the rest
// of their subjects relate them.
func opposed(a, b Analysis) (paired, related bool) {
	pairTokens := make(map[string]struct{})
	for _, tok := range a.Tokens {
		if opp, ok := opposites[tok]; ok && b.Has(opp) && !b.Has(tok) && !a.Has(opp) {
			paired = true
			pairTokens[tok] = struct{}{}
			pairTokens[opp] = struct{}{}
		}
	}
	if !paired {
		return false, false
	}
	for _, tok := range Shared(a, b) {
		if _, ok := pairTokens[tok]; !ok {
			return true, true
		}
	}
	return true, len(a.Tokens) == 1 || len(b.Tokens) == 1
}

func split(text string) []string {
	lower := strings.ToLower(strings.NewReplacer("’", "'", "‘", "'").Replace(text))
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
}

func normalize(tok string) string {
	tok = strings.Trim(strings.TrimSuffix(tok, "'s"), "'")
	if c, ok := canonical[tok]; ok {
		return c
	}
	if _, ok := opposites[tok]; ok {
		return tok
	}
	if len(tok) == 1 {
		// "a" and "i" are almost always the article and the pronoun
		if tok == "a" || tok == "i" || !unicode.IsLetter(rune(tok[0])) {
			return ""
		}
		return tok
	}
	if _, ok := invariant[tok]; ok {
		return tok
	}
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !hasAnySuffix(tok, "ss", "us", "is") {
		tok = strings.TrimSuffix(tok, "s")
	}
	return tok
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
