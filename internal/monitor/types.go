// Package monitor defines core types shared across subsystems.
package monitor

import (
	"time"
)

// FetchOutcome records whether a snapshot's fetch attempt succeeded.
type FetchOutcome string

// Fetch outcome values persisted on snapshot rows.
const (
	FetchSuccess FetchOutcome = "success"
	FetchError   FetchOutcome = "error"
)

// DocStatus classifies the regulatory document after analysis.
type DocStatus string

// Document status values produced by the analysis service.
const (
	DocStatusDraft    DocStatus = "draft"
	DocStatusProposal DocStatus = "proposal"
	DocStatusFinal    DocStatus = "final"
	DocStatusGuidance DocStatus = "guidance"
	DocStatusUnknown  DocStatus = "unknown"
)

// Source is a monitored document endpoint. The pipeline reads sources but
// never creates or deletes them; lifecycle belongs to the admin surface.
type Source struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// Snapshot is an immutable record of one fetch attempt for one source.
// Exactly one snapshot exists per attempt, success or failure.
type Snapshot struct {
	ID           string       `json:"id"`
	SourceID     string       `json:"source_id"`
	Content      []byte       `json:"-"`
	Fingerprint  string       `json:"fingerprint"`
	Outcome      FetchOutcome `json:"outcome"`
	HTTPStatus   *int         `json:"http_status,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	BlobURI      string       `json:"blob_uri,omitempty"`
	FetchedAt    time.Time    `json:"fetched_at"`
}

// ChangeEvent records that a fingerprint transition (or first observation)
// was detected and analyzed. Inserted exactly once per detected change; the
// review surface may later set NeedsReview/ReviewedAt, the pipeline never
// mutates an event after insert.
type ChangeEvent struct {
	ID               string     `json:"id"`
	SourceID         string     `json:"source_id"`
	BeforeSnapshotID *string    `json:"before_snapshot_id,omitempty"`
	AfterSnapshotID  string     `json:"after_snapshot_id"`
	Summary          string     `json:"summary"`
	Tags             []string   `json:"tags"`
	DocStatus        DocStatus  `json:"doc_status"`
	EffectiveDate    *time.Time `json:"effective_date,omitempty"`
	NeedsReview      bool       `json:"needs_review"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	DetectedAt       time.Time  `json:"detected_at"`
}

// AnalysisResult is the normalized output of the analysis service. Every
// field has a safe default; Degraded marks results synthesized after a
// service failure so the review surface can tell "explained" from
// "explanation failed".
type AnalysisResult struct {
	Summary       string
	Tags          []string
	DocStatus     DocStatus
	EffectiveDate *time.Time
	NeedsReview   bool
	Degraded      bool
}

// FetchResult is the tagged outcome of a single fetch attempt.
// Exactly one of the three kinds applies.
type FetchResult struct {
	Kind       FetchKind
	Body       []byte
	StatusCode int
	Err        error
}

// FetchKind discriminates FetchResult.
type FetchKind int

// Fetch result kinds.
const (
	// FetchOK means a success-range status was received; Body holds the content.
	FetchOK FetchKind = iota
	// FetchHTTPFailure means a response arrived with a non-success status.
	// The body is untrusted and not carried.
	FetchHTTPFailure
	// FetchTransportFailure means no response was obtained at all.
	FetchTransportFailure
)

// SourceStatus is the per-source outcome reported for a run.
type SourceStatus string

// Per-source run report statuses.
const (
	StatusUnchanged SourceStatus = "unchanged"
	StatusChanged   SourceStatus = "changed"
	StatusError     SourceStatus = "error"
)

// SourceResult is one entry of a run report, in source-processing order.
type SourceResult struct {
	Source     string       `json:"source"`
	Status     SourceStatus `json:"status"`
	Summary    string       `json:"summary,omitempty"`
	Error      string       `json:"error,omitempty"`
	HTTPStatus *int         `json:"httpStatus,omitempty"`
}

// RunReport aggregates one full pass over all active sources.
type RunReport struct {
	Success   bool           `json:"success"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
	Results   []SourceResult `json:"results,omitempty"`
}
