// Package cpu implements the "cpu-jit" backend (§4.G): a compile-once
// kernel backend that interprets already-lowered, already-optimized LL IR
// by composing Go closures over precision.Buffer values, in place of the
// teacher's eager per-op array loops.
package cpu

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/backend/interp"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/precision"
)

func init() {
	backend.Register("cpu-jit", func() backend.Backend { return New() })
}

// device is one simulated CPU worker endpoint (§4.G GLOSSARY "Device").
// The cpu-jit backend exposes one device per logical CPU, since it has no
// hardware device table the way a GPU backend does.
type device struct{ ordinal int }

func (d *device) Ordinal() int     { return d.ordinal }
func (d *device) String() string   { return fmt.Sprintf("cpu-jit:%d", d.ordinal) }

// context owns one device's buffer table: tensors materialize lazily, the
// first time a kernel running on this context touches them (§4.A "host
// buffer" sizing deferred to first use).
type context struct {
	dev     *device
	mu      sync.Mutex
	buffers map[hlir.TensorRefID]*precision.Buffer
}

func (c *context) Device() backend.Device { return c.dev }

func (c *context) bufferFor(t hlir.TensorRef) (*precision.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf, ok := c.buffers[t.ID]; ok {
		return buf, nil
	}
	dims, err := t.Shape.ToDimsAll()
	if err != nil {
		return nil, fmt.Errorf("cpu-jit: allocating %s: %w", t, err)
	}
	// TensorRef carries no precision of its own (§4.A leaves buffer
	// precision to the allocator); cpu-jit defaults every device buffer to
	// Single, the precision the rest of the package treats as ambient
	// default.
	buf, err := precision.Create(precision.Single, dims, nil)
	if err != nil {
		return nil, fmt.Errorf("cpu-jit: allocating %s: %w", t, err)
	}
	c.buffers[t.ID] = buf
	return buf, nil
}

// BufferFor implements interp.Buffers over this context's buffer table.
func (c *context) BufferFor(t hlir.TensorRef) (*precision.Buffer, error) {
	return c.bufferFor(t)
}

// compiled wraps one compile()'d kernel: a stmt closure over the context's
// buffer table and the kernel's static bindings.
type compiled struct {
	ctx      *context
	bindings backend.Bindings
	run      func(*interp.Env) error
}

func (k *compiled) Context() backend.Context   { return k.ctx }
func (k *compiled) Bindings() backend.Bindings { return k.bindings }
func (k *compiled) Schedule() (backend.Work, error) {
	return &work{k: k}, nil
}

// work runs the compiled kernel synchronously on submission — cpu-jit has
// no device queue to enqueue onto, so Run's "submitted" and "completed"
// happen together; Backend.Await is a no-op for this backend.
type work struct{ k *compiled }

func (w *work) Run() error {
	return w.k.run(interp.NewEnv())
}

// Backend is the cpu-jit Backend implementation (§4.G).
type Backend struct {
	mu          sync.Mutex
	initialized bool
	devices     []*device
}

// New constructs an uninitialized cpu-jit backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "cpu-jit" }

func (b *Backend) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	b.devices = make([]*device, n)
	for i := range b.devices {
		b.devices[i] = &device{ordinal: i}
	}
	b.initialized = true
	return nil
}

func (b *Backend) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *Backend) UnsafeCleanup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = nil
	b.initialized = false
	return nil
}

func (b *Backend) Init(d backend.Device) (backend.Context, error) {
	cd, ok := d.(*device)
	if !ok {
		return nil, fmt.Errorf("cpu-jit: device %v not owned by this backend", d)
	}
	return &context{dev: cd, buffers: make(map[hlir.TensorRefID]*precision.Buffer)}, nil
}

func (b *Backend) Finalize(ctx backend.Context) error {
	c, ok := ctx.(*context)
	if !ok {
		return fmt.Errorf("cpu-jit: foreign context %v", ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers = nil
	return nil
}

func (b *Backend) Compile(ctx backend.Context, name string, verbose bool, bindings backend.Bindings, code llir.LLCode) (backend.Compiled, error) {
	c, ok := ctx.(*context)
	if !ok {
		return nil, fmt.Errorf("cpu-jit: foreign context %v", ctx)
	}
	_ = backend.NameOrGenerate(name) // cpu-jit has no artifact naming need beyond debug.WriteDebugFiles, called by the caller
	run, err := interp.CompileStmt(c, code)
	if err != nil {
		return nil, fmt.Errorf("cpu-jit: compiling: %w", err)
	}
	if verbose {
		_ = backend.SprintLL(code) // rendering is the caller's responsibility; verbose here only documents the knob exists
	}
	return &compiled{ctx: c, bindings: bindings, run: run}, nil
}

func (b *Backend) FromHost(ctx backend.Context, tensor hlir.TensorRef) (bool, error) {
	c, ok := ctx.(*context)
	if !ok {
		return false, fmt.Errorf("cpu-jit: foreign context %v", ctx)
	}
	c.mu.Lock()
	_, present := c.buffers[tensor.ID]
	c.mu.Unlock()
	return present, nil
}

func (b *Backend) ToHost(ctx backend.Context, tensor hlir.TensorRef) (bool, error) {
	return b.FromHost(ctx, tensor)
}

// Merge folds src's buffer for tensor into dst's, using accum as the
// combining op — the pairwise step of the scheduler's parallel_merge tree
// (§4.H). It returns a Compiled the caller Schedule()s like any other
// kernel, keeping cross-device merge on the same compile/run contract as
// ordinary kernels.
func (b *Backend) Merge(tensor hlir.TensorRef, dstCtx backend.Context, accum hlir.BinOp, srcCtx backend.Context, nameSuffix string) (backend.Compiled, error) {
	dst, ok := dstCtx.(*context)
	if !ok {
		return nil, fmt.Errorf("cpu-jit: foreign dst context %v", dstCtx)
	}
	src, ok := srcCtx.(*context)
	if !ok {
		return nil, fmt.Errorf("cpu-jit: foreign src context %v", srcCtx)
	}
	run := func(*interp.Env) error {
		srcBuf, err := src.bufferFor(tensor)
		if err != nil {
			return err
		}
		dstBuf, err := dst.bufferFor(tensor)
		if err != nil {
			return err
		}
		n := dstBuf.NumElements()
		if n != srcBuf.NumElements() {
			return fmt.Errorf("cpu-jit: merge %s: element count mismatch (%d dst vs %d src)", tensor, n, srcBuf.NumElements())
		}
		dims := dstBuf.Dims()
		idcs := make([]int, len(dims))
		for flat := 0; flat < n; flat++ {
			unflatten(flat, dims, idcs)
			sv, err := srcBuf.GetAsFloat(idcs)
			if err != nil {
				return err
			}
			dv, err := dstBuf.GetAsFloat(idcs)
			if err != nil {
				return err
			}
			if err := dstBuf.SetFromFloat(idcs, interp.ApplyBinop(accum, dv, sv)); err != nil {
				return err
			}
		}
		return nil
	}
	return &compiled{ctx: dst, run: run}, nil
}

func (b *Backend) Await(device backend.Device) error { return nil }

func (b *Backend) NumDevices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.devices)
}

func (b *Backend) GetDevice(ordinal int) (backend.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ordinal < 0 || ordinal >= len(b.devices) {
		return nil, fmt.Errorf("cpu-jit: device ordinal %d out of range (have %d)", ordinal, len(b.devices))
	}
	return b.devices[ordinal], nil
}

func (b *Backend) GetCtxDevice(ctx backend.Context) backend.Device {
	c, ok := ctx.(*context)
	if !ok {
		return nil
	}
	return c.dev
}

func (b *Backend) ToOrdinal(d backend.Device) int {
	cd, ok := d.(*device)
	if !ok {
		return -1
	}
	return cd.ordinal
}

// unflatten fills idcs (len(dims)) with the row-major multi-index of flat.
func unflatten(flat int, dims, idcs []int) {
	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i] == 0 {
			idcs[i] = 0
			continue
		}
		idcs[i] = flat % dims[i]
		flat /= dims[i]
	}
}

