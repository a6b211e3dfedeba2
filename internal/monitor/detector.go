package monitor

// DecisionKind classifies the change-detection outcome for one fetch.
type DecisionKind int

// Decision kinds.
const (
	// FirstObservation means there is no prior content to compare against.
	// Treated as a change: the baseline record is still worth analyzing.
	FirstObservation DecisionKind = iota
	// Unchanged means the new fingerprint equals the baseline's.
	Unchanged
	// Changed means the fingerprints differ.
	Changed
)

// Decision is the output of Detect. Before is the comparison baseline and
// is nil exactly when Kind is FirstObservation.
type Decision struct {
	Kind   DecisionKind
	Before *Snapshot
}

// Detect compares a new fingerprint against the last known good snapshot.
// Pure and total: no I/O, no error path. An error-outcome or
// fingerprint-less baseline counts as no baseline at all, so a failed
// fetch in the history never makes the next success read as changed.
func Detect(lastGood *Snapshot, fingerprint string) Decision {
	if lastGood == nil || lastGood.Outcome != FetchSuccess || lastGood.Fingerprint == "" {
		return Decision{Kind: FirstObservation}
	}
	if lastGood.Fingerprint == fingerprint {
		return Decision{Kind: Unchanged, Before: lastGood}
	}
	return Decision{Kind: Changed, Before: lastGood}
}
