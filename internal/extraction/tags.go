package extraction

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// DefaultTagVocabulary maps preference tags to the keywords that indicate them.
var DefaultTagVocabulary = map[string][]string{
	// Languages
	"golang":     {"golang", "go mod", "go test", "gofmt"},
	"python":     {"python", "pip", "pytest", "django", "flask"},
	"typescript": {"typescript", "tsx", "tsc"},
	"javascript": {"javascript", "npm", "yarn", "node"},
	"rust":       {"rust", "cargo", "rustc"},
	"java":       {"java", "maven", "gradle"},

	// Infrastructure
	"kubernetes": {"kubernetes", "kubectl", "k8s", "helm"},
	"terraform":  {"terraform", "tfstate"},
	"docker":     {"docker", "dockerfile", "docker-compose", "container"},
	"cloud":      {"aws", "gcp", "azure", "lambda", "s3"},

	// Activities
	"testing":       {"test", "tests", "testing", "coverage", "mock", "mocks"},
	"documentation": {"docs", "readme", "documentation", "comments"},
	"formatting":    {"tabs", "spaces", "indentation", "formatter", "prettier", "lint", "linter"},
	"security":      {"auth", "secret", "secrets", "credential", "credentials", "encryption"},
	"performance":   {"performance", "latency", "cache", "caching", "async"},
	"git":           {"git", "commit", "commits", "rebase", "branch", "pull request"},

	// Architecture
	"api":      {"api", "endpoint", "rest", "grpc", "graphql"},
	"database": {"database", "sql", "postgres", "postgresql", "mysql", "sqlite", "redis", "mongodb"},
	"frontend": {"frontend", "react", "vue", "angular", "css"},
	"backend":  {"backend", "server", "handler"},
}

// TagScanner finds vocabulary tags in text with a single Aho-Corasick pass.
type TagScanner struct {
	ac       *ahocorasick.Automaton
	tagOf    []string
	keywords []string
}

// NewTagScanner compiles a vocabulary. A nil or empty vocabulary uses
// DefaultTagVocabulary.
func NewTagScanner(vocabulary map[string][]string) (*TagScanner, error) {
	if len(vocabulary) == 0 {
		vocabulary = DefaultTagVocabulary
	}

	tags := make([]string, 0, len(vocabulary))
	for tag := range vocabulary {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	s := &TagScanner{}
	indexed := make(map[string]struct{})
	for _, tag := range tags {
		for _, kw := range vocabulary[tag] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, dup := indexed[kw]; dup {
				continue
			}
			indexed[kw] = struct{}{}
			s.keywords = append(s.keywords, kw)
			s.tagOf = append(s.tagOf, tag)
		}
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(s.keywords).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	s.ac = ac
	return s, nil
}

// Scan returns the sorted, unique tags whose keywords appear in text as
// whole words.
func (s *TagScanner) Scan(text string) []string {
	out := []string{}
	if s == nil || s.ac == nil || text == "" {
		return out
	}

	haystack := []byte(strings.ToLower(text))
	found := make(map[string]struct{})
	for _, m := range s.ac.FindAllOverlapping(haystack) {
		if m.PatternID < 0 || m.PatternID >= len(s.tagOf) {
			continue
		}
		if !wordBounded(haystack, m.Start, m.End) {
			continue
		}
		found[s.tagOf[m.PatternID]] = struct{}{}
	}

	for tag := range found {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func wordBounded(b []byte, start, end int) bool {
	if start < 0 || end > len(b) || start >= end {
		return false
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRune(b[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(b) {
		r, _ := utf8.DecodeRune(b[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
