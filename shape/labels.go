package shape

import (
	"strings"
	"unicode"
)

// tokenizeAxes splits a single row's axis-label spec into tokens. Multi-char
// mode (identifiers separated by whitespace, commas, or parens) applies
// whenever the spec contains any of ",()"-whitespace (§4.C "single-character
// mode unless any of `,()`-whitespace appears"); otherwise each rune is its
// own single-character token, except a literal "..." ellipsis, which is
// always kept whole.
func tokenizeAxes(spec string) []string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	if strings.ContainsAny(spec, ",()") || strings.ContainsFunc(spec, unicode.IsSpace) {
		return strings.FieldsFunc(spec, func(r rune) bool {
			return r == ',' || r == '(' || r == ')' || unicode.IsSpace(r)
		})
	}
	var tokens []string
	for i := 0; i < len(spec); {
		if strings.HasPrefix(spec[i:], "...") {
			tokens = append(tokens, "...")
			i += 3
			continue
		}
		tokens = append(tokens, string(spec[i]))
		i++
	}
	return tokens
}

// LabelEnv threads dim-variable sharing across a single axis-label-spec
// parse: the same label token mints the same dim-variable wherever it
// recurs, including across rows and across einsum operands.
type LabelEnv struct {
	env    *Env
	labels map[string]Dim
}

// NewLabelEnv starts a fresh label-sharing scope against env.
func NewLabelEnv(env *Env) *LabelEnv {
	return &LabelEnv{env: env, labels: make(map[string]Dim)}
}

func (le *LabelEnv) dimFor(token string) Dim {
	if token == "_" {
		return le.env.NewDimVar("", false)
	}
	if d, ok := le.labels[token]; ok {
		return d
	}
	d := le.env.NewDimVar(token, false)
	le.labels[token] = d
	return d
}

// rowFromTokens builds a Row from tokenized axis labels. A leading "..."
// token becomes the row's terminator, a fresh broadcast-protected
// row-variable anchoring any axes a counterpart row supplies that this one
// doesn't name; every other token becomes a dim-variable at its position.
// An ellipsis anywhere but first is rejected — only the leading-ellipsis
// convention is supported.
func (le *LabelEnv) rowFromTokens(tokens []string) (*Row, error) {
	var dims []Dim
	var term RowTerminator = FixedTerm{}
	for i, tok := range tokens {
		if tok == "..." {
			if i != 0 {
				return nil, newShapeError("axis labels", "ellipsis must lead the row")
			}
			rv := le.env.NewRowVar(true)
			term = rv.Terminator
			continue
		}
		dims = append(dims, le.dimFor(tok))
	}
	return &Row{Dims: dims, Terminator: term, Constraint: Unconstrained{}}, nil
}

// ParseShapeLabels parses a full shape axis-label spec of the form
// "batch|input->output" (either side of "|" or "->" may be empty) into three
// rows that share dim-variables by label across all three (§4.C "axis-label
// spec parsing").
func ParseShapeLabels(env *Env, spec string) (batch, input, output *Row, err error) {
	le := NewLabelEnv(env)

	inputPart := spec
	outputPart := ""
	if idx := strings.Index(spec, "->"); idx >= 0 {
		inputPart = spec[:idx]
		outputPart = spec[idx+2:]
	}
	batchPart := ""
	if idx := strings.Index(inputPart, "|"); idx >= 0 {
		batchPart = inputPart[:idx]
		inputPart = inputPart[idx+1:]
	}

	if batch, err = le.rowFromTokens(tokenizeAxes(batchPart)); err != nil {
		return nil, nil, nil, err
	}
	if input, err = le.rowFromTokens(tokenizeAxes(inputPart)); err != nil {
		return nil, nil, nil, err
	}
	if output, err = le.rowFromTokens(tokenizeAxes(outputPart)); err != nil {
		return nil, nil, nil, err
	}
	return batch, input, output, nil
}

// ParseEinsum parses an einsum-style spec "operand1;operand2;...=>result"
// into per-operand and result index rows sharing dim-variables by label
// across every operand and the result. It only builds the rows: a
// single-operand spec like "ij=>ji" reads as a permutation and a
// multi-operand one as an Einsum contraction, but no Permute or Einsum
// logic is derived from them here.
func ParseEinsum(env *Env, spec string) (operands []*Row, result *Row, err error) {
	le := NewLabelEnv(env)
	idx := strings.Index(spec, "=>")
	if idx < 0 {
		return nil, nil, newShapeError("einsum", "missing => result separator")
	}
	lhs, rhs := spec[:idx], spec[idx+2:]
	for _, part := range strings.Split(lhs, ";") {
		row, err := le.rowFromTokens(tokenizeAxes(part))
		if err != nil {
			return nil, nil, err
		}
		operands = append(operands, row)
	}
	if result, err = le.rowFromTokens(tokenizeAxes(rhs)); err != nil {
		return nil, nil, err
	}
	return operands, result, nil
}

// PrintRow is the canonical re-printer for a single row's axis labels,
// the inverse of tokenizeAxes/rowFromTokens used for debug headers and the
// parse/print round-trip property (SPEC_FULL §3).
func PrintRow(r *Row) string {
	var parts []string
	if _, ok := r.Terminator.(BroadcastableTerm); ok {
		parts = append(parts, "...")
	}
	for _, d := range r.Dims {
		label := labelOf(d)
		if label == "" {
			label = "_"
		}
		parts = append(parts, label)
	}
	return joinAxisParts(parts)
}

func joinAxisParts(parts []string) string {
	multiChar := false
	for _, p := range parts {
		if len(p) > 1 && p != "..." {
			multiChar = true
			break
		}
	}
	if multiChar {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts, "")
}

// PrintShapeLabels reconstructs a "batch|input->output" spec string from
// three rows (the inverse of ParseShapeLabels for the round-trip property).
func PrintShapeLabels(batch, input, output *Row) string {
	b, i, o := PrintRow(batch), PrintRow(input), PrintRow(output)
	s := i
	if b != "" {
		s = b + "|" + i
	}
	if o != "" {
		s += "->" + o
	}
	return s
}
