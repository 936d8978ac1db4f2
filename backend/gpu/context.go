package gpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/precision"
)

// resident pairs a tensor's host-mirrored buffer (the one interp reads and
// writes) with its GPU-resident counterpart.
type resident struct {
	host   *precision.Buffer
	device *wgpu.Buffer
	bytes  uint64
}

// context owns one device's WebGPU device/queue handles, its buffer
// table, and its shader/pipeline cache (§3 GLOSSARY "Context": "a
// compiled-code container tied to a single device; owns device buffers
// and a loaded module").
type context struct {
	dev    *device
	device *wgpu.Device
	queue  *wgpu.Queue
	pool   *BufferPool

	mu      sync.Mutex
	buffers map[hlir.TensorRefID]*resident

	pipelineMu sync.Mutex
	pipelines  map[hlir.BinOp]*mergePipeline
}

func (c *context) Device() backend.Device { return c.dev }

// BufferFor implements interp.Buffers against this context's host
// mirror, the same contract backend/cpu's context satisfies — kernel
// execution never touches *wgpu.Buffer directly, it touches the mirror
// that ensureResident keeps synchronized with it.
func (c *context) BufferFor(t hlir.TensorRef) (*precision.Buffer, error) {
	r, err := c.ensureResident(t)
	if err != nil {
		return nil, err
	}
	return r.host, nil
}

func (c *context) ensureResident(t hlir.TensorRef) (*resident, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.buffers[t.ID]; ok {
		return r, nil
	}

	dims, err := t.Shape.ToDimsAll()
	if err != nil {
		return nil, fmt.Errorf("gpu: allocating %s: %w", t, err)
	}
	host, err := precision.Create(precision.Single, dims, nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: allocating %s: %w", t, err)
	}

	nbytes := uint64(host.NumElements()) * 4
	if nbytes == 0 {
		nbytes = 4
	}
	devBuf := c.pool.Acquire(nbytes, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)

	r := &resident{host: host, device: devBuf, bytes: nbytes}
	c.buffers[t.ID] = r
	return r, nil
}

func (b *Backend) Init(d backend.Device) (backend.Context, error) {
	cd, ok := d.(*device)
	if !ok {
		return nil, fmt.Errorf("gpu: device %v not owned by this backend", d)
	}
	wgpuDev, err := cd.adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: requesting device for %s: %w", cd, err)
	}
	queue := wgpuDev.GetQueue()
	if queue == nil {
		wgpuDev.Release()
		return nil, fmt.Errorf("gpu: %s: failed to get queue", cd)
	}
	c := &context{
		dev:       cd,
		device:    wgpuDev,
		queue:     queue,
		pool:      NewBufferPool(wgpuDev),
		buffers:   make(map[hlir.TensorRefID]*resident),
		pipelines: make(map[hlir.BinOp]*mergePipeline),
	}

	b.mu.Lock()
	if b.contextsByOrdinal == nil {
		b.contextsByOrdinal = make(map[int]*context)
	}
	b.contextsByOrdinal[cd.ordinal] = c
	b.mu.Unlock()

	return c, nil
}

func (b *Backend) Finalize(ctx backend.Context) error {
	c, ok := ctx.(*context)
	if !ok {
		return fmt.Errorf("gpu: foreign context %v", ctx)
	}

	b.mu.Lock()
	if b.contextsByOrdinal != nil && b.contextsByOrdinal[c.dev.ordinal] == c {
		delete(b.contextsByOrdinal, c.dev.ordinal)
	}
	b.mu.Unlock()

	c.mu.Lock()
	for _, r := range c.buffers {
		r.device.Release()
	}
	c.buffers = nil
	c.mu.Unlock()

	c.pipelineMu.Lock()
	for _, p := range c.pipelines {
		p.release()
	}
	c.pipelines = nil
	c.pipelineMu.Unlock()

	c.pool.Clear()
	if c.device != nil {
		c.device.Release()
	}
	return nil
}

// drain forces the device's queue to catch up with every submission made
// ahead of this call, the only synchronization primitive this package's
// wgpu binding exposes beyond a bare Submit: round-trip a trivial buffer
// through the same synchronous MapAsync path readBuffer uses (§4.G
// "await(device) blocks until the device's queue is drained"). Because a
// WebGPU queue processes submissions in order, waiting for this trailing
// copy to map confirms everything queued before it — every kernel Run and
// every Merge dispatch this context issued — has completed.
func (c *context) drain() error {
	marker := createBuffer(c.device, make([]byte, 4), wgpu.BufferUsageCopySrc)
	defer marker.Release()
	if _, err := readBuffer(c.device, marker, 4); err != nil {
		return fmt.Errorf("gpu: await: draining queue: %w", err)
	}
	return nil
}
