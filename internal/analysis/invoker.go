package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/regwatchio/regwatch/internal/monitor"
)

const systemPrompt = `You are a regulatory change analyst. Compare the previous and current ` +
	`versions of a monitored regulatory document and respond with a single JSON object ` +
	`with these fields: "summary" (plain-language description of what changed and why it ` +
	`matters), "tags" (array of short topic labels), "status" (one of "draft", "proposal", ` +
	`"final", "guidance", "unknown"), "effective_date" (YYYY-MM-DD or null), and ` +
	`"needs_review" (true unless the change is clearly immaterial).`

// Default content bounds for the analysis request, in characters.
const (
	DefaultMaxCurrentChars  = 12000
	DefaultMaxPreviousChars = 4000
)

// completer is the slice of Client the invoker depends on.
type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// InvokerConfig bounds the content sent to the analysis service.
type InvokerConfig struct {
	MaxCurrentChars  int
	MaxPreviousChars int
}

// Invoker implements monitor.Analyzer over a chat completion client.
type Invoker struct {
	client completer
	cfg    InvokerConfig
	logger *zap.Logger
}

// NewInvoker constructs an Invoker.
func NewInvoker(client completer, cfg InvokerConfig, logger *zap.Logger) *Invoker {
	if cfg.MaxCurrentChars <= 0 {
		cfg.MaxCurrentChars = DefaultMaxCurrentChars
	}
	if cfg.MaxPreviousChars <= 0 {
		cfg.MaxPreviousChars = DefaultMaxPreviousChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{client: client, cfg: cfg, logger: logger}
}

// Analyze sends the bounded before/after pair to the service and returns a
// normalized result. It never fails: any service error degrades to the
// fixed flagged-for-review result, because losing the annotation is
// acceptable and losing the fact-of-change is not.
func (i *Invoker) Analyze(ctx context.Context, src monitor.Source, previous, current []byte) monitor.AnalysisResult {
	prompt := i.buildPrompt(src, previous, current)
	content, err := i.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		i.logger.Warn("analysis call failed, degrading result",
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return Degraded()
	}
	return Normalize(content)
}

// buildPrompt assembles the user message. Truncation keeps the prefix:
// regulatory changes are assumed front-loaded in document structure.
func (i *Invoker) buildPrompt(src monitor.Source, previous, current []byte) string {
	prev := truncate(string(previous), i.cfg.MaxPreviousChars)
	curr := truncate(string(current), i.cfg.MaxCurrentChars)
	if prev == "" {
		prev = "(no previous version: this is the first observation of the document)"
	}
	return fmt.Sprintf(
		"Source: %s\nCategory: %s\nURL: %s\n\n--- PREVIOUS VERSION (may be truncated) ---\n%s\n\n--- CURRENT VERSION (may be truncated) ---\n%s",
		src.Name, src.Category, src.URL, prev, curr,
	)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
