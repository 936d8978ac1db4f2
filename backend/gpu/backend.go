// Package gpu implements the "cuda" backend (§4.G, §6 "Backend selection"
// recognizes cpu-jit and cuda): a WebGPU-backed device table adapted from
// the teacher's internal/backend/webgpu package. Kernel execution still
// runs through backend/interp against host-mirrored buffers — the same
// correctness-preserving interpretation cpu-jit uses — while every
// tensor's device buffer is additionally materialized as a real
// *wgpu.Buffer and kept resident on the device, and the pairwise merge
// step (the one place the op set is small and fixed: Add/Arg1/Arg2) runs
// as an actual compiled WGSL compute-shader dispatch through a cached
// pipeline, adapting the teacher's shader/pipeline cache and buffer pool.
package gpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tensorforge/tensorforge/backend"
)

func init() {
	backend.Register("cuda", func() backend.Backend { return New() })
}

// device is one WebGPU adapter exposed as a backend.Device (GLOSSARY
// "Device").
type device struct {
	ordinal int
	adapter *wgpu.Adapter
	info    *wgpu.AdapterInfoGo
}

func (d *device) Ordinal() int   { return d.ordinal }
func (d *device) String() string { return fmt.Sprintf("cuda:%d (%s)", d.ordinal, d.info.Device) }

// Backend is the cuda/WebGPU Backend implementation (§4.G).
type Backend struct {
	mu          sync.Mutex
	initialized bool
	instance    *wgpu.Instance
	devices     []*device

	// contextsByOrdinal tracks each device's live context so Await can
	// reach its queue — Device alone (just an adapter handle) carries no
	// queue, only the context Init produces does.
	contextsByOrdinal map[int]*context
}

// New constructs an uninitialized cuda backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "cuda" }

// Initialize creates the WebGPU instance and enumerates adapters as
// backend devices (adapted from the teacher's webgpu.New, which requests
// a single high-performance adapter; this backend keeps every adapter the
// instance reports so NumDevices reflects real hardware instead of always
// returning 1).
func (b *Backend) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("gpu: failed to create WebGPU instance: %w", err)
	}
	adapters, err := instance.EnumerateAdapters(&wgpu.InstanceEnumerateAdapterOptions{})
	if err != nil || len(adapters) == 0 {
		adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreferenceHighPerformance,
		})
		if adapterErr != nil {
			instance.Release()
			return fmt.Errorf("gpu: no WebGPU adapter available: %w", adapterErr)
		}
		adapters = []*wgpu.Adapter{adapter}
	}

	devices := make([]*device, len(adapters))
	for i, a := range adapters {
		info, infoErr := a.GetInfo()
		if infoErr != nil {
			instance.Release()
			return fmt.Errorf("gpu: failed to get adapter info: %w", infoErr)
		}
		devices[i] = &device{ordinal: i, adapter: a, info: info}
	}

	b.instance = instance
	b.devices = devices
	b.contextsByOrdinal = make(map[int]*context)
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
	for _, d := range b.devices {
		d.adapter.Release()
	}
	b.devices = nil
	b.contextsByOrdinal = nil
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	b.initialized = false
	return nil
}

func (b *Backend) NumDevices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.devices)
}

func (b *Backend) GetDevice(ordinal int) (backend.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ordinal < 0 || ordinal >= len(b.devices) {
		return nil, fmt.Errorf("gpu: device ordinal %d out of range (have %d)", ordinal, len(b.devices))
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

// Await blocks until device's queue has drained every submission queued
// ahead of this call (§4.G "await(device) blocks until the device's queue
// is drained"; §5 "await(device) is the only blocking primitive on the
// main thread"). A device carries no queue of its own — only the context
// Init produced for it does — so Await looks up that context and forces a
// drain through it; a device nothing was ever Init'd against has nothing
// to wait on.
func (b *Backend) Await(d backend.Device) error {
	cd, ok := d.(*device)
	if !ok {
		return fmt.Errorf("gpu: foreign device %v", d)
	}
	b.mu.Lock()
	c := b.contextsByOrdinal[cd.ordinal]
	b.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.drain()
}
