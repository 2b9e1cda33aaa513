package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func TestInferDecisionCategory(t *testing.T) {
	tests := []struct {
		text string
		want usercontext.DecisionCategory
	}{
		{"Rotate the credentials weekly", usercontext.CategorySecurity},
		{"Cache the rendered pages", usercontext.CategoryPerformance},
		{"We split the monolith into modules", usercontext.CategoryArchitecture},
		{"Pick a library for charts", usercontext.CategoryToolChoice},
		{"Releases go out on Tuesdays after review", usercontext.CategoryWorkflow},
		{"Hello there", usercontext.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDecisionCategory(tt.text))
		})
	}
}

func TestInferSeverity(t *testing.T) {
	assert.Equal(t, usercontext.SeverityCritical, InferSeverity("Production outage in checkout"))
	assert.Equal(t, usercontext.SeverityHigh, InferSeverity("The app crashes on start"))
	assert.Equal(t, usercontext.SeverityMedium, InferSeverity("It happens sometimes"))
	assert.Equal(t, usercontext.SeverityLow, InferSeverity("Minor typo in the footer"))
	assert.Equal(t, usercontext.SeverityMedium, InferSeverity("Something is off"))
}

func TestInferGoalPriority(t *testing.T) {
	assert.Equal(t, 1, InferGoalPriority("this is urgent"))
	assert.Equal(t, 2, InferGoalPriority("important for the launch"))
	assert.Equal(t, 4, InferGoalPriority("low priority cleanup"))
	assert.Equal(t, 3, InferGoalPriority("ship it"))
}

func TestHasDeadlineAndSteps(t *testing.T) {
	assert.True(t, HasDeadline("finish by 2026-03-01"))
	assert.True(t, HasDeadline("done by end of week"))
	assert.True(t, HasDeadline("target Q3"))
	assert.False(t, HasDeadline("finish the migration"))

	assert.True(t, HasSteps("first lint, then test"))
	assert.True(t, HasSteps("plan:\n1. design\n2. build"))
	assert.True(t, HasSteps("- write docs"))
	assert.False(t, HasSteps("write docs"))
}

func TestSymptomsAndWorkaround(t *testing.T) {
	text := "Uploads fail with a 502 error. It started on Monday! As a fix, retry the upload."
	assert.Equal(t, []string{"Uploads fail with a 502 error"}, Symptoms(text))

	w := Workaround(text)
	require.NotNil(t, w)
	assert.Equal(t, "As a fix, retry the upload", *w)

	assert.Nil(t, Workaround("nothing to see"))
	assert.Empty(t, Symptoms("all good"))
}

func TestTagScanner(t *testing.T) {
	s, err := NewTagScanner(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"kubernetes"}, s.Scan("Deploy with kubectl to the k8s cluster"))
	assert.Equal(t, []string{"python", "testing"}, s.Scan("Run the tests with pytest"))
	assert.Empty(t, s.Scan("a contest of testimony"))
	assert.Empty(t, s.Scan(""))

	custom, err := NewTagScanner(map[string][]string{"observability": {"otel", "tracing"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"observability"}, custom.Scan("Add OTEL tracing"))
}
