package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	ex, err := NewExtractor(MustDefaultLibrary(), opts...)
	require.NoError(t, err)
	return ex
}

func TestExtract_DecisionScenario(t *testing.T) {
	ex := newTestExtractor(t)
	res := ex.Extract("We decided to use async processing because it improves throughput")

	require.Len(t, res.Decisions, 1)
	d := res.Decisions[0]
	require.NotNil(t, d.Text)
	assert.NotEmpty(t, *d.Text)
	assert.Equal(t, "decided_to", d.Pattern)
	assert.GreaterOrEqual(t, d.Confidence, MustDefaultLibrary().BaseWeight(CategoryDecision))
	assert.Contains(t,
		[]usercontext.DecisionCategory{usercontext.CategoryPerformance, usercontext.CategoryArchitecture},
		d.Category)

	assert.Empty(t, res.Goals)
	assert.Empty(t, res.Preferences)
	assert.Empty(t, res.Issues)
}

func TestExtract_EmptyInput(t *testing.T) {
	ex := newTestExtractor(t)
	for _, in := range []string{"", "   ", "\n\n", "nothing interesting here"} {
		res := ex.Extract(in)
		assert.NotNil(t, res.Decisions)
		assert.NotNil(t, res.Goals)
		assert.NotNil(t, res.Preferences)
		assert.NotNil(t, res.Issues)
		assert.Zero(t, res.Len())
	}
}

func TestExtract_FrequencyBoost(t *testing.T) {
	text := "Let's use postgres. I said postgres and I mean postgres"

	res := newTestExtractor(t).Extract(text)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "postgres", *res.Decisions[0].Text)
	assert.InDelta(t, 1.0, res.Decisions[0].Confidence, 1e-9, "0.85 + 2*0.1 is capped")

	res = newTestExtractor(t, WithFrequencyBoost(0.05)).Extract(text)
	assert.InDelta(t, 0.95, res.Decisions[0].Confidence, 1e-9)

	res = newTestExtractor(t, WithFrequencyBoost(-1)).Extract(text)
	assert.InDelta(t, 0.85, res.Decisions[0].Confidence, 1e-9)
}

func TestExtract_NoDeduplication(t *testing.T) {
	res := newTestExtractor(t).Extract("Let's use redis. Let's use redis.")
	require.Len(t, res.Decisions, 2)
	for _, d := range res.Decisions {
		assert.Equal(t, "redis", *d.Text)
		assert.InDelta(t, 0.95, d.Confidence, 1e-9)
	}
}

func TestExtract_MissingCaptureYieldsNilPayload(t *testing.T) {
	lib, err := NewLibrary([]Pattern{
		{Name: "remember", Category: CategoryDecision, Expr: `(?i)\bremember(\s+this)?`, Weight: 0.5},
	})
	require.NoError(t, err)
	ex, err := NewExtractor(lib)
	require.NoError(t, err)

	res := ex.Extract("Remember!")
	require.Len(t, res.Decisions, 1)
	assert.Nil(t, res.Decisions[0].Text)
	assert.Equal(t, 0.5, res.Decisions[0].Confidence)
}

func TestExtract_Goal(t *testing.T) {
	res := newTestExtractor(t).Extract(
		"Our goal is to ship the billing API by Friday. First write the schema, then add tests. This is urgent.")

	require.NotEmpty(t, res.Goals)
	g := res.Goals[0]
	assert.Equal(t, "goal_is", g.Pattern)
	assert.Equal(t, "ship the billing API by Friday", *g.Text)
	assert.True(t, g.HasDeadline)
	assert.True(t, g.HasSteps)
	assert.Equal(t, 1, g.Priority)
}

func TestExtract_Preferences(t *testing.T) {
	res := newTestExtractor(t).Extract("I prefer tabs over spaces in Go code, and I always use gofmt.")

	require.Len(t, res.Preferences, 2)
	assert.Equal(t, "i_prefer", res.Preferences[0].Pattern)
	assert.Equal(t, "always_use", res.Preferences[1].Pattern)
	assert.Equal(t, "always use gofmt", *res.Preferences[1].Text)
	for _, p := range res.Preferences {
		assert.Equal(t, usercontext.PreferencePattern, p.Type)
		assert.True(t, p.AppliesToAutomation)
		assert.Equal(t, []string{"formatting", "golang"}, p.Tags)
	}

	manual := newTestExtractor(t).Extract("I prefer to deploy manually")
	require.Len(t, manual.Preferences, 1)
	assert.False(t, manual.Preferences[0].AppliesToAutomation)
}

func TestExtract_Issue(t *testing.T) {
	res := newTestExtractor(t).Extract(
		"Known issue: the payment webhook keeps failing with a timeout error. Workaround: restart the worker pod.")

	require.Len(t, res.Issues, 2)
	assert.Equal(t, "known_issue", res.Issues[0].Pattern)
	assert.Equal(t, "the payment webhook keeps failing with a timeout error", *res.Issues[0].Text)
	assert.Equal(t, "keeps_failing", res.Issues[1].Pattern)
	assert.Equal(t, "payment webhook", *res.Issues[1].Text)

	i := res.Issues[0]
	assert.Equal(t, usercontext.SeverityMedium, i.Severity)
	assert.Equal(t, usercontext.IssuePerformance, i.Category)
	assert.Equal(t, []string{"Known issue: the payment webhook keeps failing with a timeout error"}, i.Symptoms)
	require.NotNil(t, i.Workaround)
	assert.Equal(t, "restart the worker pod", *i.Workaround)
}

func TestExtract_Deterministic(t *testing.T) {
	ex := newTestExtractor(t)
	text := "We decided to use sqlite. I prefer small binaries. Our goal is to ship v1 next week. " +
		"There is a problem with the importer. The importer keeps crashing."
	first := ex.Extract(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ex.Extract(text))
	}
}

func TestExtract_ConfidenceBounds(t *testing.T) {
	ex := newTestExtractor(t, WithFrequencyBoost(0.5))
	res := ex.Extract("Let's use go. go go go go. We decided to use go. I prefer go. Known issue: go go.")
	check := func(c float64) {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
	for _, d := range res.Decisions {
		check(d.Confidence)
	}
	for _, p := range res.Preferences {
		check(p.Confidence)
	}
	for _, i := range res.Issues {
		check(i.Confidence)
	}
}

func TestNewExtractor_RequiresLibrary(t *testing.T) {
	_, err := NewExtractor(nil)
	assert.Error(t, err)
}
