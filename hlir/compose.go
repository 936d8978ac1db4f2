package hlir

// Sequential folds codes into a single Seq composition. An empty list
// folds to Noop.
func Sequential(codes ...Code) Code {
	codes = dropNoops(codes)
	if len(codes) == 0 {
		return Noop{}
	}
	if len(codes) == 1 {
		return codes[0]
	}
	return Composition{Kind: Seq, Children: codes}
}

// AllParallel folds codes into a single Par composition. An empty list
// folds to Noop.
func AllParallel(codes ...Code) Code {
	codes = dropNoops(codes)
	if len(codes) == 0 {
		return Noop{}
	}
	if len(codes) == 1 {
		return codes[0]
	}
	return Composition{Kind: Par, Children: codes}
}

func dropNoops(codes []Code) []Code {
	out := codes[:0:0]
	for _, c := range codes {
		if _, ok := c.(Noop); ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RemoveUpdates drops every Accum-binop/Accum-unop/Fetch whose LHS/target
// is tensor, recursing through compositions and block comments (used to
// strip initialization-only assignments, §4.D).
func RemoveUpdates(tensor TensorRef, code Code) Code {
	switch n := code.(type) {
	case Composition:
		var kept []Code
		for _, child := range n.Children {
			filtered := RemoveUpdates(tensor, child)
			if _, isNoop := filtered.(Noop); isNoop {
				continue
			}
			kept = append(kept, filtered)
		}
		if len(kept) == 0 {
			return Noop{}
		}
		return Composition{Kind: n.Kind, Children: kept}
	case BlockComment:
		body := RemoveUpdates(tensor, n.Body)
		if _, isNoop := body.(Noop); isNoop {
			return Noop{}
		}
		return BlockComment{Msg: n.Msg, Body: body}
	default:
		if lhs, ok := lhsOf(code); ok && lhs.ID == tensor.ID {
			return Noop{}
		}
		return code
	}
}

// FlatParallel flattens nested Par (and, if forceHints, also ParHint)
// compositions rooted at code into a single ordered list, matching
// `flat-parallel(force_hints)` (§4.D).
func FlatParallel(code Code, forceHints bool) []Code {
	comp, ok := code.(Composition)
	if !ok {
		return []Code{code}
	}
	if comp.Kind != Par && !(forceHints && comp.Kind == ParHint) {
		return []Code{code}
	}
	var out []Code
	for _, child := range comp.Children {
		out = append(out, FlatParallel(child, forceHints)...)
	}
	return out
}
