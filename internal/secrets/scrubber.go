package secrets

import (
	"fmt"
	"sort"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// Scrubber detects and redacts secrets.
type Scrubber interface {
	// Scrub returns content with every detected secret replaced by the
	// redaction string.
	Scrub(content string) *Result
	IsEnabled() bool
}

type scrubber struct {
	config   *Config
	gitleaks *gitleaksConfig.Config
}

type span struct {
	start, end int
}

// New builds a Scrubber. A nil config uses DefaultConfig.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &scrubber{config: cfg}
	if cfg.Enabled && cfg.Gitleaks {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("secrets: load gitleaks rules: %w", err)
		}
		gc := d.Config
		s.gitleaks = &gc
	}
	return s, nil
}

// MustNew is New that panics on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *scrubber) IsEnabled() bool { return s.config.Enabled }

func (s *scrubber) Scrub(content string) *Result {
	result := &Result{
		Scrubbed: content,
		Findings: make([]Finding, 0),
		ByRule:   make(map[string]int),
	}
	if !s.config.Enabled || content == "" {
		return result
	}

	var spans []span
	add := func(f Finding) {
		if s.isAllowed(content[f.StartIndex:f.EndIndex]) {
			return
		}
		result.Findings = append(result.Findings, f)
		result.ByRule[f.RuleID]++
		spans = append(spans, span{f.StartIndex, f.EndIndex})
	}

	for _, rule := range s.config.compiledRules {
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			add(Finding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Severity:    rule.Severity,
				Source:      "local",
				StartIndex:  m[0],
				EndIndex:    m[1],
			})
		}
	}

	if s.gitleaks != nil {
		// a detector accumulates findings, so each call gets its own
		d := detect.NewDetector(*s.gitleaks)
		for _, gf := range d.DetectString(content) {
			if gf.Secret == "" {
				continue
			}
			for _, idx := range occurrences(content, gf.Secret) {
				add(Finding{
					RuleID:      gf.RuleID,
					Description: gf.Description,
					Severity:    "high",
					Source:      "gitleaks",
					StartIndex:  idx,
					EndIndex:    idx + len(gf.Secret),
				})
			}
		}
	}

	result.TotalFindings = len(result.Findings)
	if len(spans) > 0 {
		result.Scrubbed = redact(content, merge(spans), s.config.RedactionString)
	}
	return result
}

func (s *scrubber) isAllowed(match string) bool {
	for _, re := range s.config.compiledAllowList {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

func occurrences(content, needle string) []int {
	var out []int
	for off := 0; off < len(content); {
		i := strings.Index(content[off:], needle)
		if i < 0 {
			break
		}
		out = append(out, off+i)
		off += i + len(needle)
	}
	return out
}

// merge sorts spans and folds overlapping or touching ones together.
func merge(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := []span{spans[0]}
	for _, cur := range spans[1:] {
		last := &out[len(out)-1]
		if cur.start <= last.end {
			if cur.end > last.end {
				last.end = cur.end
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}

func redact(content string, spans []span, marker string) string {
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(content[prev:sp.start])
		b.WriteString(marker)
		prev = sp.end
	}
	b.WriteString(content[prev:])
	return b.String()
}

// Noop never redacts.
type Noop struct{}

func (Noop) Scrub(content string) *Result {
	return &Result{Scrubbed: content, Findings: make([]Finding, 0), ByRule: make(map[string]int)}
}

func (Noop) IsEnabled() bool { return false }

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = Noop{}
)
