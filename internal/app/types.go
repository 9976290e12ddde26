package app

import "time"

// FileResult summarizes one input file.
type FileResult struct {
	Path      string
	Output    string
	Processed int64
	Matched   int
	Skipped   bool
	Err       error
}

// Result summarizes a run. Cancelled runs still carry the outputs written
// for the chunks processed before cancellation.
type Result struct {
	RunID        string
	Files        []FileResult
	MergedOutput string
	MergedRows   int
	Processed    int64
	Matched      int64
	Elapsed      time.Duration
	Cancelled    bool
}

// Outputs lists every path written, per-file outputs first.
func (r *Result) Outputs() []string {
	var out []string
	for _, f := range r.Files {
		if f.Output != "" {
			out = append(out, f.Output)
		}
	}
	if r.MergedOutput != "" {
		out = append(out, r.MergedOutput)
	}
	return out
}
