package extraction

import (
	"errors"
	"strings"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// DefaultFrequencyBoost is added to a candidate's confidence for every
// extra occurrence of its payload in the input.
const DefaultFrequencyBoost = 0.1

// DecisionCandidate is an unconfirmed decision.
type DecisionCandidate struct {
	Text       *string                      `json:"text,omitempty"`
	Pattern    string                       `json:"pattern"`
	Confidence float64                      `json:"confidence"`
	Category   usercontext.DecisionCategory `json:"category"`
}

// GoalCandidate is an unconfirmed goal.
type GoalCandidate struct {
	Text        *string `json:"text,omitempty"`
	Pattern     string  `json:"pattern"`
	Confidence  float64 `json:"confidence"`
	Priority    int     `json:"priority"`
	HasDeadline bool    `json:"has_deadline"`
	HasSteps    bool    `json:"has_steps"`
}

// PreferenceCandidate is an unconfirmed preference.
type PreferenceCandidate struct {
	Text                *string                    `json:"text,omitempty"`
	Pattern             string                     `json:"pattern"`
	Confidence          float64                    `json:"confidence"`
	Type                usercontext.PreferenceType `json:"type"`
	AppliesToAutomation bool                       `json:"applies_to_automation"`
	Tags                []string                   `json:"tags"`
}

// IssueCandidate is an unconfirmed known issue.
type IssueCandidate struct {
	Text       *string                   `json:"text,omitempty"`
	Pattern    string                    `json:"pattern"`
	Confidence float64                   `json:"confidence"`
	Severity   usercontext.Severity      `json:"severity"`
	Category   usercontext.IssueCategory `json:"category"`
	Symptoms   []string                  `json:"symptoms"`
	Workaround *string                   `json:"workaround,omitempty"`
}

// Result holds the candidates of one Extract call, in pattern order then
// match order. The slices are never nil.
type Result struct {
	Decisions   []DecisionCandidate   `json:"decisions"`
	Goals       []GoalCandidate       `json:"goals"`
	Preferences []PreferenceCandidate `json:"preferences"`
	Issues      []IssueCandidate      `json:"issues"`
}

// Len returns the total number of candidates.
func (r Result) Len() int {
	return len(r.Decisions) + len(r.Goals) + len(r.Preferences) + len(r.Issues)
}

func emptyResult() Result {
	return Result{
		Decisions:   []DecisionCandidate{},
		Goals:       []GoalCandidate{},
		Preferences: []PreferenceCandidate{},
		Issues:      []IssueCandidate{},
	}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFrequencyBoost sets the confidence added per repeated payload.
// Negative values disable the boost.
func WithFrequencyBoost(step float64) Option {
	return func(e *Extractor) {
		if step < 0 {
			step = 0
		}
		e.boost = step
	}
}

// WithTagScanner replaces the default preference tag vocabulary.
func WithTagScanner(s *TagScanner) Option {
	return func(e *Extractor) {
		if s != nil {
			e.tags = s
		}
	}
}

// Extractor applies a Library to text. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	lib   *Library
	tags  *TagScanner
	boost float64
}

// NewExtractor builds an Extractor over lib.
func NewExtractor(lib *Library, opts ...Option) (*Extractor, error) {
	if lib == nil {
		return nil, errors.New("extraction: library is required")
	}
	e := &Extractor{lib: lib, boost: DefaultFrequencyBoost}
	for _, opt := range opts {
		opt(e)
	}
	if e.tags == nil {
		tags, err := NewTagScanner(nil)
		if err != nil {
			return nil, err
		}
		e.tags = tags
	}
	return e, nil
}

// hit is one pattern match before kind-specific inference.
type hit struct {
	pattern    string
	payload    *string
	confidence float64
}

// Extract finds candidates in text. It never fails; text without matches
// yields an empty Result.
func (e *Extractor) Extract(text string) Result {
	res := emptyResult()
	if strings.TrimSpace(text) == "" {
		return res
	}

	hits := make(map[Category][]hit, len(Categories))
	for _, c := range Categories {
		hits[c] = e.match(c, text)
	}

	lower := strings.ToLower(text)
	for _, c := range Categories {
		hits[c] = e.applyFrequency(hits[c], lower)
	}

	if hs := hits[CategoryDecision]; len(hs) > 0 {
		category := InferDecisionCategory(text)
		for _, h := range hs {
			res.Decisions = append(res.Decisions, DecisionCandidate{
				Text: h.payload, Pattern: h.pattern, Confidence: h.confidence, Category: category,
			})
		}
	}

	if hs := hits[CategoryGoal]; len(hs) > 0 {
		priority, deadline, steps := InferGoalPriority(text), HasDeadline(text), HasSteps(text)
		for _, h := range hs {
			res.Goals = append(res.Goals, GoalCandidate{
				Text: h.payload, Pattern: h.pattern, Confidence: h.confidence,
				Priority: priority, HasDeadline: deadline, HasSteps: steps,
			})
		}
	}

	if hs := hits[CategoryPreference]; len(hs) > 0 {
		prefType, automation, tags := InferPreferenceType(text), AppliesToAutomation(text), e.tags.Scan(text)
		for _, h := range hs {
			res.Preferences = append(res.Preferences, PreferenceCandidate{
				Text: h.payload, Pattern: h.pattern, Confidence: h.confidence,
				Type: prefType, AppliesToAutomation: automation, Tags: append([]string(nil), tags...),
			})
		}
	}

	if hs := hits[CategoryIssue]; len(hs) > 0 {
		severity, category := InferSeverity(text), InferIssueCategory(text)
		symptoms, workaround := Symptoms(text), Workaround(text)
		for _, h := range hs {
			c := IssueCandidate{
				Text: h.payload, Pattern: h.pattern, Confidence: h.confidence,
				Severity: severity, Category: category,
				Symptoms: append([]string{}, symptoms...),
			}
			if workaround != nil {
				w := *workaround
				c.Workaround = &w
			}
			res.Issues = append(res.Issues, c)
		}
	}

	return res
}

// match runs every pattern of the category over text.
func (e *Extractor) match(c Category, text string) []hit {
	var out []hit
	for _, p := range e.lib.byCategory[c] {
		for _, loc := range p.regex.FindAllStringSubmatchIndex(text, -1) {
			h := hit{pattern: p.Name, confidence: p.Weight}
			if len(loc) >= 4 && loc[2] >= 0 {
				if s := strings.TrimSpace(text[loc[2]:loc[3]]); s != "" {
					h.payload = &s
				}
			}
			out = append(out, h)
		}
	}
	return out
}

// applyFrequency is a second pass over finished matches: every extra
// occurrence of a payload in the input raises its confidence by the boost
// step, capped at 1.0.
func (e *Extractor) applyFrequency(hits []hit, lowerText string) []hit {
	if e.boost == 0 {
		return hits
	}
	out := make([]hit, len(hits))
	for i, h := range hits {
		out[i] = h
		if h.payload == nil {
			continue
		}
		extra := strings.Count(lowerText, strings.ToLower(*h.payload)) - 1
		if extra <= 0 {
			continue
		}
		out[i].confidence = usercontext.ClampConfidence(h.confidence + e.boost*float64(extra))
	}
	return out
}
