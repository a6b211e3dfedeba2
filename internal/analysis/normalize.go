package analysis

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/regwatchio/regwatch/internal/monitor"
)

// PlaceholderSummary is used when the service returns no usable summary
// but the call itself succeeded.
const PlaceholderSummary = "No summary provided by the analysis service."

// DegradedSummary marks events whose analysis call failed outright.
const DegradedSummary = "Automatic analysis failed; manual review required."

// DegradedTag distinguishes degraded results on the review surface.
const DegradedTag = "analysis-failed"

// rawResult mirrors the JSON shape requested from the analysis service.
// Pointer fields tell "absent" apart from zero values.
type rawResult struct {
	Summary       string   `json:"summary"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
	EffectiveDate *string  `json:"effective_date"`
	NeedsReview   *bool    `json:"needs_review"`
}

// Normalize turns the service's message content into an AnalysisResult,
// defaulting each field independently. Malformed JSON degrades the whole
// result; a well-formed object with bad fields keeps the good ones.
func Normalize(content string) monitor.AnalysisResult {
	var raw rawResult
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return Degraded()
	}

	result := monitor.AnalysisResult{
		Summary:     strings.TrimSpace(raw.Summary),
		Tags:        normalizeTags(raw.Tags),
		DocStatus:   normalizeStatus(raw.Status),
		NeedsReview: true,
	}
	if result.Summary == "" {
		result.Summary = PlaceholderSummary
	}
	if raw.NeedsReview != nil {
		result.NeedsReview = *raw.NeedsReview
	}
	if raw.EffectiveDate != nil {
		if d, err := time.Parse("2006-01-02", strings.TrimSpace(*raw.EffectiveDate)); err == nil {
			result.EffectiveDate = &d
		}
	}
	return result
}

// Degraded is the fixed fallback for an outright service failure. The
// change record must survive even when its annotation does not.
func Degraded() monitor.AnalysisResult {
	return monitor.AnalysisResult{
		Summary:     DegradedSummary,
		Tags:        []string{DegradedTag},
		DocStatus:   monitor.DocStatusUnknown,
		NeedsReview: true,
		Degraded:    true,
	}
}

func normalizeStatus(status string) monitor.DocStatus {
	switch monitor.DocStatus(strings.ToLower(strings.TrimSpace(status))) {
	case monitor.DocStatusDraft:
		return monitor.DocStatusDraft
	case monitor.DocStatusProposal:
		return monitor.DocStatusProposal
	case monitor.DocStatusFinal:
		return monitor.DocStatusFinal
	case monitor.DocStatusGuidance:
		return monitor.DocStatusGuidance
	default:
		return monitor.DocStatusUnknown
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// stripFences removes a surrounding markdown code fence, which chat models
// add even when asked for bare JSON.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
