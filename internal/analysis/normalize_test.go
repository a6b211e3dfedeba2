package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/regwatchio/regwatch/internal/monitor"
)

func TestNormalizeFullResult(t *testing.T) {
	t.Parallel()

	content := `{
		"summary": "Reporting threshold lowered from 10M to 5M.",
		"tags": ["reporting", "thresholds"],
		"status": "final",
		"effective_date": "2026-01-01",
		"needs_review": false
	}`
	got := Normalize(content)

	require.Equal(t, "Reporting threshold lowered from 10M to 5M.", got.Summary)
	require.Equal(t, []string{"reporting", "thresholds"}, got.Tags)
	require.Equal(t, monitor.DocStatusFinal, got.DocStatus)
	require.NotNil(t, got.EffectiveDate)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *got.EffectiveDate)
	require.False(t, got.NeedsReview)
	require.False(t, got.Degraded)
}

func TestNormalizeDefaultsEachFieldIndependently(t *testing.T) {
	t.Parallel()

	got := Normalize(`{"tags": ["one", " ", "one"], "status": "FINAL"}`)

	require.Equal(t, PlaceholderSummary, got.Summary)
	require.Equal(t, []string{"one"}, got.Tags)
	require.Equal(t, monitor.DocStatusFinal, got.DocStatus)
	require.Nil(t, got.EffectiveDate)
	require.True(t, got.NeedsReview, "needs_review must default to true")
	require.False(t, got.Degraded)
}

func TestNormalizeBadStatusAndDate(t *testing.T) {
	t.Parallel()

	got := Normalize(`{"summary": "ok", "status": "enacted", "effective_date": "next Tuesday"}`)

	require.Equal(t, monitor.DocStatusUnknown, got.DocStatus)
	require.Nil(t, got.EffectiveDate)
}

func TestNormalizeMalformedJSONDegrades(t *testing.T) {
	t.Parallel()

	got := Normalize("I could not produce JSON, sorry.")

	require.True(t, got.Degraded)
	require.Equal(t, DegradedSummary, got.Summary)
	require.Contains(t, got.Tags, DegradedTag)
	require.Equal(t, monitor.DocStatusUnknown, got.DocStatus)
	require.True(t, got.NeedsReview)
}

func TestNormalizeStripsCodeFence(t *testing.T) {
	t.Parallel()

	got := Normalize("```json\n{\"summary\": \"fenced\"}\n```")

	require.False(t, got.Degraded)
	require.Equal(t, "fenced", got.Summary)
}
