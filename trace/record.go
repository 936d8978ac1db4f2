package trace

import (
	"fmt"
	"strings"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/symbol"
)

// IndexKey is a stable, comparable rendering of an index tuple, used to
// key the assignments-set and accesses-map (§3 "Traced tensor record").
type IndexKey string

func formatIdcs(idcs []symbol.AxisIndex) IndexKey {
	parts := make([]string, len(idcs))
	for i, idx := range idcs {
		parts[i] = formatAxisIndex(idx)
	}
	return IndexKey(strings.Join(parts, ","))
}

func formatAxisIndex(idx symbol.AxisIndex) string {
	switch v := idx.(type) {
	case symbol.FixedIdx:
		return fmt.Sprintf("#%d", v.I)
	case symbol.Iterator:
		return v.Sym.String()
	case symbol.DynamicRecipient:
		return "recv:" + v.Sym.String()
	case symbol.FrozenRecipient:
		return "frozen:" + v.Sym.String()
	case symbol.DynamicProvider:
		inner := make([]string, len(v.Idcs))
		for i, in := range v.Idcs {
			inner[i] = formatAxisIndex(in)
		}
		return "provider(" + strings.Join(inner, ";") + ")"
	default:
		return "?"
	}
}

// AccessKind distinguishes a read that precedes any write at that index
// (Recurrent, e.g. reading an accumulator's previous value) from an
// ordinary repeated visit.
type AccessKind int

const (
	Recurrent AccessKind = iota
	Visited
)

// AccessRecord is one accesses-map entry: Visits(n) | Recurrent.
type AccessRecord struct {
	Kind   AccessKind
	Visits int
}

// TensorTrace is the per-tensor analysis record Pass 1 builds (§3
// "Traced tensor record").
type TensorTrace struct {
	Tensor hlir.TensorRef

	Assignments map[IndexKey]bool
	Accesses    map[IndexKey]*AccessRecord

	NonVirtual         bool
	NonDeviceOnly      bool
	Scalar             *float64
	ZeroInitialized    bool
	ZeroedOut          bool
	ReadBeforeWrite    bool
	ReadOnly           bool
	LastWriteNonUpdate bool
	IsDynamicSlice     bool
	IsReplicable       bool

	RHSSet map[string]llir.LLExpr
}

func newTensorTrace(t hlir.TensorRef) *TensorTrace {
	return &TensorTrace{
		Tensor:       t,
		Assignments:  make(map[IndexKey]bool),
		Accesses:     make(map[IndexKey]*AccessRecord),
		IsReplicable: true, // §4.F pass 1: replicable unless disqualified
		RHSSet:       make(map[string]llir.LLExpr),
	}
}

// MaxVisitCount returns the highest visit count recorded against any single
// index, the figure MaxVisits demotion compares against.
func (tt *TensorTrace) MaxVisitCount() int {
	max := 0
	for _, rec := range tt.Accesses {
		if rec.Kind == Visited && rec.Visits > max {
			max = rec.Visits
		}
	}
	return max
}
