package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/symbol"
)

// NameOrGenerate returns name unchanged, or a fresh uuid-based debug name
// when the caller passed none — Compile's name parameter is optional
// (§4.G "compile(context, name?, ...)").
func NameOrGenerate(name string) string {
	if name != "" {
		return name
	}
	return "kernel-" + uuid.NewString()
}

// WriteDebugFiles writes the three per-kernel debug artifacts
// output_debug_files_in_run_directory enables (§6): <name>.hlc (HL IR
// s-expression), <name>-unoptimized.llc, <name>.llc. No GPU-specific
// artifacts (.cu/.ptx/.cu_log) are written: backend/gpu writes no debug
// files of its own.
func WriteDebugFiles(dir, name string, hl hlir.Code, unoptimized, optimized llir.LLCode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backend: debug dir %s: %w", dir, err)
	}
	writes := []struct {
		suffix string
		body   string
	}{
		{".hlc", SprintHL(hl)},
		{"-unoptimized.llc", SprintLL(unoptimized)},
		{".llc", SprintLL(optimized)},
	}
	for _, w := range writes {
		path := filepath.Join(dir, name+w.suffix)
		if err := os.WriteFile(path, []byte(w.body), 0o644); err != nil {
			return fmt.Errorf("backend: writing %s: %w", path, err)
		}
	}
	return nil
}

// SprintHL renders an hlir.Code tree as an s-expression, the format
// .hlc debug files carry.
func SprintHL(code hlir.Code) string {
	var b strings.Builder
	sprintHL(&b, code, 0)
	return b.String()
}

func sprintHL(b *strings.Builder, code hlir.Code, indent int) {
	pad := strings.Repeat("  ", indent)
	switch n := code.(type) {
	case hlir.Composition:
		fmt.Fprintf(b, "%s(%s\n", pad, n.Kind)
		for _, c := range n.Children {
			sprintHL(b, c, indent+1)
		}
		fmt.Fprintf(b, "%s)\n", pad)
	case hlir.AccumBinop:
		fmt.Fprintf(b, "%s(accum-binop %s %s zero_out=%v %s %s %s)\n", pad, n.Accum, n.Op, n.ZeroOut, n.LHS, n.RHS1, n.RHS2)
	case hlir.AccumUnop:
		fmt.Fprintf(b, "%s(accum-unop %s %s zero_out=%v %s %s)\n", pad, n.Accum, n.Op, n.ZeroOut, n.LHS, n.RHS)
	case hlir.Fetch:
		fmt.Fprintf(b, "%s(fetch %s %v)\n", pad, n.Target, n.Op)
	case hlir.BlockComment:
		fmt.Fprintf(b, "%s; %s\n", pad, n.Msg)
		sprintHL(b, n.Body, indent)
	case hlir.Noop:
		fmt.Fprintf(b, "%s(noop)\n", pad)
	default:
		fmt.Fprintf(b, "%s(unknown %T)\n", pad, n)
	}
}

// SprintLL renders an llir.LLCode tree as an s-expression, the format
// .llc debug files carry.
func SprintLL(code llir.LLCode) string {
	var b strings.Builder
	sprintLL(&b, code, 0)
	return b.String()
}

func sprintLL(b *strings.Builder, code llir.LLCode, indent int) {
	pad := strings.Repeat("  ", indent)
	switch n := code.(type) {
	case llir.Comment:
		fmt.Fprintf(b, "%s; %s\n", pad, n.Msg)
	case llir.Lines:
		for _, item := range n.Items {
			sprintLL(b, item, indent)
		}
	case llir.ForLoop:
		fmt.Fprintf(b, "%s(for %s %d..%d\n", pad, n.Index, n.From, n.To)
		sprintLL(b, n.Body, indent+1)
		fmt.Fprintf(b, "%s)\n", pad)
	case llir.ZeroOut:
		fmt.Fprintf(b, "%s(zero-out %s)\n", pad, n.Ptr)
	case llir.Set:
		fmt.Fprintf(b, "%s(set %s[%s] %s)\n", pad, n.Ptr, formatLLIdcs(n.Idcs), sprintExpr(n.Expr))
	case llir.SetLocal:
		fmt.Fprintf(b, "%s(set-local %d %s)\n", pad, n.Scope, sprintExpr(n.Expr))
	case llir.DynamicIndices:
		fmt.Fprintf(b, "%s(dynamic-indices %s\n", pad, n.Tensor)
		sprintLL(b, n.Body, indent+1)
		fmt.Fprintf(b, "%s)\n", pad)
	case llir.Rebalance:
		fmt.Fprintf(b, "%s(rebalance %q\n", pad, n.Label)
		for _, c := range n.Children {
			sprintLL(b, c, indent+1)
		}
		fmt.Fprintf(b, "%s)\n", pad)
	case llir.StagedCompilation:
		fmt.Fprintf(b, "%s(staged-compilation)\n", pad)
	default:
		fmt.Fprintf(b, "%s(unknown %T)\n", pad, n)
	}
}

func sprintExpr(e llir.LLExpr) string {
	switch n := e.(type) {
	case llir.Constant:
		return fmt.Sprintf("%v", n.Value)
	case llir.Get:
		return fmt.Sprintf("%s[%s]", n.Ptr, formatLLIdcs(n.Idcs))
	case llir.GetLocal:
		return fmt.Sprintf("local(%d)", n.Scope)
	case llir.GetGlobal:
		return fmt.Sprintf("global(%s)", n.Name)
	case llir.LocalScope:
		return fmt.Sprintf("(scope %d %s)", n.ID, SprintLL(n.Body))
	case llir.Binop:
		return fmt.Sprintf("(%s %s %s)", n.Op, sprintExpr(n.A), sprintExpr(n.B))
	case llir.Unop:
		return fmt.Sprintf("(%s %s)", n.Op, sprintExpr(n.A))
	default:
		return fmt.Sprintf("(unknown %T)", n)
	}
}

// formatLLIdcs renders an index tuple for debug output. Most
// symbol.AxisIndex variants carry no String() method, so this type-switches
// explicitly rather than relying on fmt's default formatting.
func formatLLIdcs(idcs []symbol.AxisIndex) string {
	parts := make([]string, len(idcs))
	for i, idx := range idcs {
		parts[i] = formatAxisIndex(idx)
	}
	return strings.Join(parts, ",")
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
