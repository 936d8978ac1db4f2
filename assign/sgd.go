package assign

import (
	"fmt"

	"github.com/tensorforge/tensorforge/hlir"
)

// SGDConfig holds sgd_one/sgd_update's hyperparameters (§4.I). Mirrors the
// teacher's optim.SGDConfig flat-struct style, extended with the spec's
// weight_decay/nesterov knobs.
type SGDConfig struct {
	LR          float64
	Momentum    float64
	WeightDecay float64
	Nesterov    bool
}

// DefaultSGDConfig returns plain gradient descent with no momentum, decay,
// or Nesterov correction.
func DefaultSGDConfig(lr float64) SGDConfig {
	return SGDConfig{LR: lr}
}

// SGDOne composes one parameter's update IR in textbook order (§4.I):
//
//	pg = grad
//	if weight_decay != 0: pg += weight_decay * p
//	if momentum != 0:
//	    b = momentum * b              (b created on first call, starts at 0)
//	    b = b + pg
//	    pg = nesterov ? pg + momentum*b : b
//	p += (-lr) * pg
//
// Each line above is itself one or two Accum-binop/Accum-unop nodes, since
// the IR's accum operator only combines the old LHS value with one binop
// result (§3 "Accum-binop") — there is no single node that both scales an
// operand and adds another, so momentum's "b = momentum*b + pg" is built
// from an in-place scale (Accum=Arg2) followed by an accumulate (Accum=Add).
//
// b, the per-parameter velocity tensor, is returned so the caller retains
// it (and its backing buffer, across repeated calls with the teacher's
// eager optimizer this would be a map keyed by parameter identity —
// sgd_one instead hands the tensor back once, at IR-construction time).
func SGDOne(p *hlir.Node, cfg SGDConfig) (code hlir.Code, velocity *hlir.TensorRef, err error) {
	if !p.IsParameter() {
		return nil, nil, fmt.Errorf("assign: sgd_one: %s is not a parameter (no gradient, or literal)", p.Value)
	}
	grad := *p.Grad
	pg := hlir.NewTensorRef(p.Value.DebugName+".delta", p.Value.Shape)

	var steps []hlir.Code

	// pg = grad
	steps = append(steps, hlir.AccumUnop{
		Accum: hlir.Arg2, Op: hlir.Identity,
		LHS: pg, RHS: grad,
		Projections: unopProjections(pg, grad, "sgd_one/pg=grad"),
	})

	if cfg.WeightDecay != 0 {
		wd, wdFetch := constant(p.Value.DebugName+".weight_decay", cfg.WeightDecay)
		steps = append(steps, wdFetch)
		// pg += weight_decay * p
		steps = append(steps, hlir.AccumBinop{
			Accum: hlir.Add, Op: hlir.Mul,
			LHS: pg, RHS1: wd, RHS2: p.Value,
			Projections: binopProjections(pg, wd, p.Value, "sgd_one/weight_decay"),
		})
	}

	var b hlir.TensorRef
	if cfg.Momentum != 0 {
		b = hlir.NewTensorRef(p.Value.DebugName+".velocity", p.Value.Shape)
		mom, momFetch := constant(p.Value.DebugName+".momentum", cfg.Momentum)
		steps = append(steps, momFetch)
		// b = b * momentum (in place scale)
		steps = append(steps, hlir.AccumBinop{
			Accum: hlir.Arg2, Op: hlir.Mul,
			LHS: b, RHS1: b, RHS2: mom,
			Projections: binopProjections(b, b, mom, "sgd_one/momentum_scale"),
		})
		// b = b + pg
		steps = append(steps, hlir.AccumBinop{
			Accum: hlir.Add, Op: hlir.Arg1,
			LHS: b, RHS1: pg, RHS2: pg,
			Projections: binopProjections(b, pg, pg, "sgd_one/momentum_accum"),
		})
		if cfg.Nesterov {
			// pg = pg + momentum*b
			steps = append(steps, hlir.AccumBinop{
				Accum: hlir.Add, Op: hlir.Mul,
				LHS: pg, RHS1: mom, RHS2: b,
				Projections: binopProjections(pg, mom, b, "sgd_one/nesterov"),
			})
		} else {
			// pg = b
			steps = append(steps, hlir.AccumUnop{
				Accum: hlir.Arg2, Op: hlir.Identity,
				LHS: pg, RHS: b,
				Projections: unopProjections(pg, b, "sgd_one/pg=velocity"),
			})
		}
	}

	negLR, lrFetch := constant(p.Value.DebugName+".neg_lr", -cfg.LR)
	steps = append(steps, lrFetch)
	// p += (-lr) * pg
	steps = append(steps, hlir.AccumBinop{
		Accum: hlir.Add, Op: hlir.Mul,
		LHS: p.Value, RHS1: negLR, RHS2: pg,
		Projections: binopProjections(p.Value, negLR, pg, "sgd_one/step"),
	})

	code = hlir.BlockComment{Msg: "sgd_one " + p.Value.String(), Body: hlir.Sequential(steps...)}
	if cfg.Momentum != 0 {
		return code, &b, nil
	}
	return code, nil, nil
}

// SGDUpdate sequences SGDOne over every parameter (§4.I "sgd_update(...)
// sequences sgd_one over all parameters"). Parameters with no gradient
// participation are a caller bug (every node in params must already be a
// parameter) rather than silently skipped, since component I never
// observes which tensors a forward pass actually touched — that bookkeeping
// belongs to the external differentiation builder.
func SGDUpdate(params []*hlir.Node, cfg SGDConfig) (hlir.Code, error) {
	var steps []hlir.Code
	for _, p := range params {
		one, _, err := SGDOne(p, cfg)
		if err != nil {
			return nil, err
		}
		steps = append(steps, one)
	}
	return hlir.Sequential(steps...), nil
}
