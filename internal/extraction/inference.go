package extraction

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// keywordRule matches any of its keywords as whole words, case-insensitively.
type keywordRule[T any] struct {
	value T
	re    *regexp.Regexp
}

func newRule[T any](value T, keywords ...string) keywordRule[T] {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(kw), " ", `\s+`)
	}
	return keywordRule[T]{
		value: value,
		re:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// firstMatch returns the value of the first rule that matches text.
func firstMatch[T any](rules []keywordRule[T], text string, fallback T) T {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.value
		}
	}
	return fallback
}

var decisionCategoryRules = []keywordRule[usercontext.DecisionCategory]{
	newRule(usercontext.CategorySecurity,
		"security", "secure", "auth", "authentication", "authorization", "encrypt", "encryption",
		"secret", "secrets", "credential", "credentials", "vulnerability", "tls", "permission", "permissions"),
	newRule(usercontext.CategoryPerformance,
		"performance", "throughput", "latency", "fast", "faster", "slow", "slower", "async",
		"cache", "caching", "optimize", "optimization", "concurrency", "parallel", "memory", "scalability"),
	newRule(usercontext.CategoryArchitecture,
		"architecture", "architectural", "design", "pattern", "microservice", "microservices",
		"monolith", "layer", "layers", "module", "modules", "event-driven", "schema", "interface"),
	newRule(usercontext.CategoryToolChoice,
		"tool", "tools", "library", "libraries", "framework", "database", "package", "sdk",
		"choose", "chose", "pick", "switch to", "migrate to"),
	newRule(usercontext.CategoryConstraint,
		"must", "never", "always", "only", "limit", "constraint", "required", "cannot", "forbidden"),
	newRule(usercontext.CategoryWorkflow,
		"workflow", "process", "review", "deploy", "deployment", "release", "ci", "pipeline",
		"branch", "commit", "merge"),
}

// InferDecisionCategory classifies text; the first matching rule wins.
func InferDecisionCategory(text string) usercontext.DecisionCategory {
	return firstMatch(decisionCategoryRules, text, usercontext.CategoryOther)
}

var (
	deadlineExpr = regexp.MustCompile(`(?i)\b(?:` +
		`\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}/\d{1,2}(?:/\d{2,4})?` +
		`|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}` +
		`|by\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|tonight|end\s+of\s+(?:day|week|month|quarter|year))` +
		`|next\s+(?:week|month|quarter|sprint)` +
		`|q[1-4]|deadline|due|eod|eow)\b`)

	stepsExpr = regexp.MustCompile(`(?im)(?:\b(?:first(?:ly)?|second(?:ly)?|third(?:ly)?|then|finally|afterwards|step\s+\d+)\b|^\s*(?:\d+[.)]|[-*•])\s+\S)`)
)

var goalPriorityRules = []keywordRule[int]{
	newRule(1, "urgent", "urgently", "critical", "asap", "immediately", "blocker"),
	newRule(4, "low priority", "nice to have", "someday", "eventually", "when possible"),
	newRule(2, "important", "high priority", "soon"),
}

// HasDeadline reports whether text carries a date-like token.
func HasDeadline(text string) bool { return deadlineExpr.MatchString(text) }

// HasSteps reports whether text carries ordinal or enumeration tokens.
func HasSteps(text string) bool { return stepsExpr.MatchString(text) }

// InferGoalPriority maps urgency words to a priority in [1,5].
func InferGoalPriority(text string) int {
	return firstMatch(goalPriorityRules, text, usercontext.DefaultPriority)
}

var preferenceTypeRules = []keywordRule[usercontext.PreferenceType]{
	newRule(usercontext.PreferenceTool,
		"tool", "editor", "ide", "cli", "linter", "formatter", "vim", "neovim", "emacs", "vscode", "git", "docker", "make"),
	newRule(usercontext.PreferenceFramework,
		"framework", "library", "react", "vue", "angular", "django", "flask", "rails", "spring", "express", "echo", "gin"),
	newRule(usercontext.PreferencePattern,
		"pattern", "style", "convention", "conventions", "naming", "idiom", "idiomatic",
		"tabs", "spaces", "indentation", "approach"),
	newRule(usercontext.PreferenceConstraint,
		"never", "always", "must", "avoid", "don't", "do not", "only", "forbid"),
}

var manualExpr = regexp.MustCompile(`(?i)\b(?:manually|manual|by\s+hand)\b`)

// InferPreferenceType classifies a preference; the first matching rule wins.
func InferPreferenceType(text string) usercontext.PreferenceType {
	return firstMatch(preferenceTypeRules, text, usercontext.PreferenceOther)
}

// AppliesToAutomation is false when the text asks for manual handling.
func AppliesToAutomation(text string) bool { return !manualExpr.MatchString(text) }

var severityRules = []keywordRule[usercontext.Severity]{
	newRule(usercontext.SeverityCritical,
		"critical", "outage", "data loss", "production down", "catastrophic", "security breach", "sev1"),
	newRule(usercontext.SeverityHigh,
		"high", "severe", "major", "blocking", "blocker", "crash", "crashes", "crashing"),
	newRule(usercontext.SeverityMedium, "medium", "moderate", "intermittent", "sometimes"),
	newRule(usercontext.SeverityLow, "low", "minor", "cosmetic", "trivial", "typo"),
}

var issueCategoryRules = []keywordRule[usercontext.IssueCategory]{
	newRule(usercontext.IssuePerformance,
		"slow", "latency", "timeout", "timeouts", "memory", "cpu", "performance", "leak"),
	newRule(usercontext.IssueDeployment,
		"deploy", "deployment", "release", "kubernetes", "docker", "ci", "pipeline", "build"),
	newRule(usercontext.IssueData,
		"data", "database", "migration", "schema", "corrupt", "corruption", "sql"),
	newRule(usercontext.IssueIntegration,
		"integration", "api", "webhook", "third-party", "oauth", "sdk", "upstream"),
	newRule(usercontext.IssueWorkflow, "workflow", "process", "review", "handoff"),
}

// InferSeverity maps severity words to a Severity, medium when none match.
func InferSeverity(text string) usercontext.Severity {
	return firstMatch(severityRules, text, usercontext.SeverityMedium)
}

// InferIssueCategory classifies an issue; the first matching rule wins.
func InferIssueCategory(text string) usercontext.IssueCategory {
	return firstMatch(issueCategoryRules, text, usercontext.IssueOther)
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

	failureExpr = regexp.MustCompile(`(?i)\b(?:errors?|fail|fails|failed|failing|failure|crash|crashes|crashed|crashing|broken|breaks|timeouts?|timed\s+out|times\s+out|exceptions?|panics?|hangs?|hanging)\b`)

	remedyExpr = regexp.MustCompile(`(?i)\b(?:workaround|work\s+around|as\s+a\s+fix|temporarily|temporary\s+fix|restart|restarting|retry|retrying|roll\s*back|rolling\s+back|fixed\s+by|resolved\s+by)\b`)

	remedyLabel = regexp.MustCompile(`(?i)^(?:the\s+)?(?:workaround|temporary\s+fix|fix)\s*(?:is|:|-)\s*`)
)

func sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Symptoms returns every sentence that names a failure.
func Symptoms(text string) []string {
	out := []string{}
	for _, s := range sentences(text) {
		if failureExpr.MatchString(s) && !remedyExpr.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}

// Workaround returns the first sentence that names a remedy, without a
// leading "workaround:" label.
func Workaround(text string) *string {
	for _, s := range sentences(text) {
		if !remedyExpr.MatchString(s) {
			continue
		}
		w := strings.TrimSpace(remedyLabel.ReplaceAllString(s, ""))
		if w == "" {
			continue
		}
		return &w
	}
	return nil
}
