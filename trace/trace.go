package trace

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
)

// Result is the outcome of running every §4.F pass over one lowered
// program: the rewritten code plus the per-tensor traces the passes used
// to get there (callers consult traces to decide host buffer allocation).
type Result struct {
	Code   llir.LLCode
	Traces map[hlir.TensorRefID]*TensorTrace
}

// Optimize runs passes 1 through 5 over code in order: visit analysis,
// candidate collection, substitution inlining, cleanup, and algebraic
// simplification. hostResident names tensors already materialized on the
// host (forced non-virtual regardless of visit count).
func Optimize(settings Settings, hostResident map[hlir.TensorRefID]bool, code llir.LLCode) *Result {
	analysis := NewAnalysis(settings, hostResident)
	analysis.Visit(code)

	candidates := CollectCandidates(settings, analysis.Traces, code)
	code = Inline(candidates, code)
	if settings.InlineConstants {
		code = ConstantFold(analysis.Traces, code)
	}

	removeIDs := make(map[hlir.TensorRefID]bool, len(candidates))
	for id := range candidates {
		removeIDs[id] = true
	}
	for id, tt := range analysis.Traces {
		if tt.Scalar != nil {
			removeIDs[id] = true
		}
	}
	code = Prune(removeIDs, code)

	code = Simplify(settings, code)

	return &Result{Code: code, Traces: analysis.Traces}
}
