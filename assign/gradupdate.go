package assign

import (
	"fmt"

	"github.com/tensorforge/tensorforge/hlir"
)

// Forward marks t's value hosted so the host sees the result of running
// its forward code (§4.I "forward(t) ... set the tensor's value to
// hosted").
func Forward(t *hlir.Node) error {
	return t.SetMode(hlir.Hosted)
}

// GradUpdate composes the gradient-update IR block (§4.I `grad_update`):
//
//	[loss fwd, zero_grads, init_grad = 1, bprop]
//
// fwd and bprop are the already-built forward and backward IR blocks — the
// differentiation builder that assembles them from loss's computation
// graph is explicitly out of scope (§1); GradUpdate only performs the
// bookkeeping spec.md assigns to grad_update itself: asserting loss is
// differentiable, marking its value hosted+changed-on-devices, zeroing
// every parameter's gradient, seeding the loss gradient to one, and
// (when forParallel is set) materializing parameters on-device ahead of
// the multi-device scheduler's round-robin setup (§4.H step 2-3 compile
// merge/broadcast kernels against an already-materialized parameter).
func GradUpdate(loss *hlir.Node, fwd, bprop hlir.Code, params []*hlir.Node, forParallel bool) (hlir.Code, error) {
	if !loss.Differentiable() {
		return nil, fmt.Errorf("assign: grad_update: %s is not differentiable (no gradient tensor)", loss.Value)
	}
	if err := loss.SetMode(hlir.HostedChangedOnDevices); err != nil {
		return nil, err
	}

	var zeroGrads []hlir.Code
	for _, p := range params {
		if !p.IsParameter() {
			return nil, fmt.Errorf("assign: grad_update: %s is not a parameter (no gradient, or literal)", p.Value)
		}
		zeroGrads = append(zeroGrads, hlir.Fetch{Target: *p.Grad, Op: hlir.FetchConstant{Value: 0}})
		if forParallel {
			if err := p.SetMode(hlir.OnDevice); err != nil {
				return nil, err
			}
		}
	}

	initGrad := hlir.Fetch{Target: *loss.Grad, Op: hlir.FetchConstant{Value: 1}}

	return hlir.Sequential(
		hlir.BlockComment{Msg: "loss fwd", Body: fwd},
		hlir.BlockComment{Msg: "zero_grads", Body: hlir.Sequential(zeroGrads...)},
		hlir.BlockComment{Msg: "init_grad", Body: initGrad},
		hlir.BlockComment{Msg: "bprop", Body: bprop},
	), nil
}
