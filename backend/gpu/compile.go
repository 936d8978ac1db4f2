package gpu

import (
	"fmt"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/backend/interp"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
)

// compiled wraps one compile()'d kernel, same shape as cpu-jit's: the
// interp closure over the context's host-mirrored buffer table plus the
// kernel's static bindings.
type compiled struct {
	ctx      *context
	bindings backend.Bindings
	run      func(*interp.Env) error
}

type work struct {
	k *compiled
}

func (k *compiled) Context() backend.Context   { return k.ctx }
func (k *compiled) Bindings() backend.Bindings { return k.bindings }
func (k *compiled) Schedule() (backend.Work, error) {
	return &work{k: k}, nil
}

// work runs synchronously against the host mirror, then pushes every
// buffer the kernel touched back onto its device-resident buffer so a
// later merge/broadcast dispatch (and from_host/to_host) observe the
// effect — standing in for the GPU dispatch a real WGSL compute kernel
// compiled from arbitrary LL IR would perform (§9 "Dynamic dispatch":
// generic code generation onto GPU is out of scope for this pack's single
// real GPU compute library; compute correctness is grounded in the shared
// interpreter instead, residency is genuinely on-device).
func (w *work) Run() error {
	if err := w.k.run(interp.NewEnv()); err != nil {
		return err
	}
	return w.k.ctx.syncAllResidentToDevice()
}

func (c *context) syncAllResidentToDevice() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.buffers {
		c.queue.WriteBuffer(r.device, 0, r.host.Raw())
	}
	return nil
}

func (b *Backend) Compile(ctx backend.Context, name string, verbose bool, bindings backend.Bindings, code llir.LLCode) (backend.Compiled, error) {
	c, ok := ctx.(*context)
	if !ok {
		return nil, fmt.Errorf("gpu: foreign context %v", ctx)
	}
	_ = backend.NameOrGenerate(name)
	run, err := interp.CompileStmt(c, code)
	if err != nil {
		return nil, fmt.Errorf("gpu: compiling: %w", err)
	}
	if verbose {
		_ = backend.SprintLL(code)
	}
	return &compiled{ctx: c, bindings: bindings, run: run}, nil
}

func (b *Backend) FromHost(ctx backend.Context, tensor hlir.TensorRef) (bool, error) {
	c, ok := ctx.(*context)
	if !ok {
		return false, fmt.Errorf("gpu: foreign context %v", ctx)
	}
	c.mu.Lock()
	r, present := c.buffers[tensor.ID]
	c.mu.Unlock()
	if !present {
		return false, nil
	}
	c.queue.WriteBuffer(r.device, 0, r.host.Raw())
	return true, nil
}

func (b *Backend) ToHost(ctx backend.Context, tensor hlir.TensorRef) (bool, error) {
	c, ok := ctx.(*context)
	if !ok {
		return false, fmt.Errorf("gpu: foreign context %v", ctx)
	}
	c.mu.Lock()
	r, present := c.buffers[tensor.ID]
	c.mu.Unlock()
	if !present {
		return false, nil
	}
	data, err := readBuffer(c.device, r.device, r.bytes)
	if err != nil {
		return false, fmt.Errorf("gpu: to_host %s: %w", tensor, err)
	}
	copy(r.host.Raw(), data)
	return true, nil
}

