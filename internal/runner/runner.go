// Package runner coordinates one full pipeline pass over all active sources.
package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/regwatchio/regwatch/internal/metrics"
	"github.com/regwatchio/regwatch/internal/monitor"
)

// Config controls Runner behavior.
type Config struct {
	// Concurrency bounds the worker pool. 1 reproduces sequential
	// processing; higher values are safe because per-source pipelines
	// touch disjoint rows.
	Concurrency int
	BlobPrefix  string
	ContentType string
	Topic       string
}

// Runner executes the per-source pipeline for every active source and
// aggregates a run report. All collaborators are constructor-injected.
type Runner struct {
	sources   monitor.SourceStore
	snapshots monitor.SnapshotStore
	events    monitor.EventStore
	fetcher   monitor.Fetcher
	analyzer  monitor.Analyzer
	hasher    monitor.Hasher
	blobStore monitor.BlobStore
	publisher monitor.Publisher
	clock     monitor.Clock
	idGen     monitor.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. blobStore and publisher may be nil; archiving
// and notifications are then skipped.
func New(
	sources monitor.SourceStore,
	snapshots monitor.SnapshotStore,
	events monitor.EventStore,
	fetcher monitor.Fetcher,
	analyzer monitor.Analyzer,
	hasher monitor.Hasher,
	blobStore monitor.BlobStore,
	publisher monitor.Publisher,
	clock monitor.Clock,
	idGen monitor.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if cfg.Topic == "" {
		cfg.Topic = "change-events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Runner{
		sources:   sources,
		snapshots: snapshots,
		events:    events,
		fetcher:   fetcher,
		analyzer:  analyzer,
		hasher:    hasher,
		blobStore: blobStore,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one pass. Per-source failures are isolated at the source
// boundary; only a source-list failure aborts the run. Results keep source
// order regardless of worker scheduling.
func (r *Runner) Run(ctx context.Context) monitor.RunReport {
	start := r.clock.Now()

	sources, err := r.sources.ListActive(ctx)
	if err != nil {
		r.logger.Error("listing active sources failed", zap.Error(err))
		metrics.ObserveRun(false, r.clock.Now().Sub(start))
		return monitor.RunReport{
			Success:   false,
			Timestamp: start,
			Error:     fmt.Sprintf("list active sources: %v", err),
		}
	}

	results := make([]monitor.SourceResult, len(sources))
	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = r.processSource(ctx, sources[idx])
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		metrics.ObserveSourceResult(string(res.Status))
	}
	metrics.ObserveRun(true, r.clock.Now().Sub(start))

	return monitor.RunReport{
		Success:   true,
		Timestamp: start,
		Results:   results,
	}
}

// processSource runs the full pipeline for one source: fetch, fingerprint,
// snapshot, detect, analyze, record. It never panics outward and never
// returns an error; every failure mode folds into the result entry.
func (r *Runner) processSource(ctx context.Context, src monitor.Source) (result monitor.SourceResult) {
	result = monitor.SourceResult{Source: src.Name}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("source pipeline panicked",
				zap.String("source_id", src.ID),
				zap.Any("panic", rec),
			)
			result.Status = monitor.StatusError
			result.Error = fmt.Sprintf("internal error: %v", rec)
		}
	}()

	fetched := r.fetcher.Fetch(ctx, src)
	now := r.clock.Now()

	switch fetched.Kind {
	case monitor.FetchTransportFailure:
		metrics.ObserveFetch("transport_failure")
		return r.recordFetchFailure(ctx, src, now, nil, fetched.Err, result)
	case monitor.FetchHTTPFailure:
		metrics.ObserveFetch("http_failure")
		status := fetched.StatusCode
		result.HTTPStatus = &status
		return r.recordFetchFailure(ctx, src, now, &status,
			fmt.Errorf("unexpected HTTP status %d", status), result)
	}
	metrics.ObserveFetch("success")

	fingerprint, err := r.hasher.Hash(fetched.Body)
	if err != nil {
		result.Status = monitor.StatusError
		result.Error = fmt.Sprintf("fingerprint content: %v", err)
		return result
	}

	// The baseline must be read before the new snapshot is appended, or
	// the fresh row would be its own comparison target.
	baseline, err := r.snapshots.LatestGood(ctx, src.ID)
	if err != nil {
		result.Status = monitor.StatusError
		result.Error = fmt.Sprintf("load baseline snapshot: %v", err)
		return result
	}

	snap, err := r.appendSuccessSnapshot(ctx, src, fetched, fingerprint, now)
	if err != nil {
		result.Status = monitor.StatusError
		result.Error = err.Error()
		return result
	}

	decision := monitor.Detect(baseline, fingerprint)
	if decision.Kind == monitor.Unchanged {
		result.Status = monitor.StatusUnchanged
		return result
	}

	event, err := r.recordChange(ctx, src, decision, snap, now)
	if err != nil {
		result.Status = monitor.StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = monitor.StatusChanged
	result.Summary = event.Summary
	return result
}

// recordFetchFailure appends an error-outcome snapshot. The failure is
// recorded, not discarded: exactly one snapshot exists per attempt.
func (r *Runner) recordFetchFailure(
	ctx context.Context,
	src monitor.Source,
	now time.Time,
	httpStatus *int,
	cause error,
	result monitor.SourceResult,
) monitor.SourceResult {
	result.Status = monitor.StatusError
	result.Error = cause.Error()

	snapID, err := r.idGen.NewID()
	if err != nil {
		result.Error = fmt.Sprintf("%s (generate snapshot id: %v)", result.Error, err)
		return result
	}
	snap := monitor.Snapshot{
		ID:           snapID,
		SourceID:     src.ID,
		Outcome:      monitor.FetchError,
		HTTPStatus:   httpStatus,
		ErrorMessage: cause.Error(),
		FetchedAt:    now,
	}
	if err := r.snapshots.Insert(ctx, snap); err != nil {
		r.logger.Error("error snapshot insert failed",
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		result.Error = fmt.Sprintf("%s (record snapshot: %v)", result.Error, err)
	}
	return result
}

// appendSuccessSnapshot archives the raw content (best effort) and inserts
// the success snapshot row. An insert failure is fatal to this source's
// run; an archive failure is not, since the row holds the durable copy.
func (r *Runner) appendSuccessSnapshot(
	ctx context.Context,
	src monitor.Source,
	fetched monitor.FetchResult,
	fingerprint string,
	now time.Time,
) (monitor.Snapshot, error) {
	snapID, err := r.idGen.NewID()
	if err != nil {
		return monitor.Snapshot{}, fmt.Errorf("generate snapshot id: %w", err)
	}

	blobURI := ""
	if r.blobStore != nil {
		path := r.blobPath(src.ID, fingerprint)
		uri, err := r.blobStore.PutObject(ctx, path, r.cfg.ContentType, fetched.Body)
		if err != nil {
			r.logger.Warn("content archive failed",
				zap.String("source_id", src.ID),
				zap.String("path", path),
				zap.Error(err),
			)
		} else {
			blobURI = uri
		}
	}

	status := fetched.StatusCode
	snap := monitor.Snapshot{
		ID:          snapID,
		SourceID:    src.ID,
		Content:     fetched.Body,
		Fingerprint: fingerprint,
		Outcome:     monitor.FetchSuccess,
		HTTPStatus:  &status,
		BlobURI:     blobURI,
		FetchedAt:   now,
	}
	if err := r.snapshots.Insert(ctx, snap); err != nil {
		return monitor.Snapshot{}, fmt.Errorf("record snapshot: %w", err)
	}
	return snap, nil
}

// recordChange invokes the analyzer and inserts exactly one change event
// linking the before/after snapshots. The analyzer never fails; an event
// insert failure is fatal to this source's run.
func (r *Runner) recordChange(
	ctx context.Context,
	src monitor.Source,
	decision monitor.Decision,
	after monitor.Snapshot,
	now time.Time,
) (monitor.ChangeEvent, error) {
	var (
		beforeID    *string
		prevContent []byte
	)
	if decision.Before != nil {
		id := decision.Before.ID
		beforeID = &id
		prevContent = decision.Before.Content
	}

	analyzed := r.analyzer.Analyze(ctx, src, prevContent, after.Content)
	if analyzed.Degraded {
		metrics.ObserveAnalysisDegraded()
	}

	eventID, err := r.idGen.NewID()
	if err != nil {
		return monitor.ChangeEvent{}, fmt.Errorf("generate event id: %w", err)
	}
	event := monitor.ChangeEvent{
		ID:               eventID,
		SourceID:         src.ID,
		BeforeSnapshotID: beforeID,
		AfterSnapshotID:  after.ID,
		Summary:          analyzed.Summary,
		Tags:             analyzed.Tags,
		DocStatus:        analyzed.DocStatus,
		EffectiveDate:    analyzed.EffectiveDate,
		NeedsReview:      analyzed.NeedsReview,
		DetectedAt:       now,
	}
	if err := r.events.Insert(ctx, event); err != nil {
		return monitor.ChangeEvent{}, fmt.Errorf("record change event: %w", err)
	}
	metrics.ObserveChangeEvent()

	if r.publisher != nil {
		if _, err := r.publisher.Publish(ctx, r.cfg.Topic, event); err != nil {
			r.logger.Warn("change event publish failed",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return event, nil
}

func (r *Runner) blobPath(sourceID, fingerprint string) string {
	prefix := strings.Trim(r.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", sourceID, fingerprint)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, sourceID, fingerprint)
}
