package trace

// RunSummary aggregates statistics from a RunTrace plus final-run metrics
// supplied by the engine (diversity/uncertainty are not derivable from the
// per-attempt counts alone).
type RunSummary struct {
	RunID         string
	Attempts      int
	FinalLevel    string
	Selected      int
	TotalSampled  int
	TotalDropped  int     // hard-constraint drops across all attempts
	TotalFlagged  int     // safety + novelty flags across all attempts
	DiversityMin  float64 // min pairwise distance within the final batch
	HasDiversity  bool    // false when fewer than two members were selected
	UncertainFrac float64 // share of scored candidates with high sigma
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace, diversityMin float64, hasDiversity bool, uncertainFrac float64) *RunSummary {
	summary := &RunSummary{
		DiversityMin:  diversityMin,
		HasDiversity:  hasDiversity,
		UncertainFrac: uncertainFrac,
	}
	if rt == nil {
		return summary
	}

	summary.RunID = rt.RunID
	summary.Attempts = len(rt.Attempts)
	for _, a := range rt.Attempts {
		summary.TotalSampled += a.PoolSize
		summary.TotalDropped += a.ConstraintRemoved
		summary.TotalFlagged += a.SafetyFlagged + a.NoveltyFlagged
	}
	if n := len(rt.Attempts); n > 0 {
		last := rt.Attempts[n-1]
		summary.FinalLevel = last.Level
		summary.Selected = last.Selected
	}
	return summary
}
