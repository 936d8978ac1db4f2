// Package backend implements the backend interface (component G): the
// contract every compute backend satisfies, and the name registry that
// resolves "cpu-jit"/"cuda" to a concrete implementation.
package backend

import (
	"fmt"
	"sync"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
)

// Device is an opaque hardware endpoint with a worker thread and a
// submission mailbox (GLOSSARY "Device").
type Device interface {
	Ordinal() int
	String() string
}

// Context is a compiled-code container tied to a single device; owns
// device buffers and a loaded module (GLOSSARY "Context").
type Context interface {
	Device() Device
}

// Bindings carries the compiled kernel's static index bindings: named
// mutable integer cells the main thread writes between run()s and the
// kernel reads at launch (§5 "Static index bindings").
type Bindings map[string]*int

// Work is the handle compile/schedule() produces; Run enqueues the kernel
// on the context's device and returns once it has been submitted, not
// once it has completed — pair with Backend.Await.
type Work interface {
	Run() error
}

// Compiled is one compile()'d kernel bound to its own context.
type Compiled interface {
	Context() Context
	Schedule() (Work, error)
	Bindings() Bindings
}

// Backend is the interface every compute backend implements (§4.G).
//
// compile must not race with running work on its context. from_host/
// to_host return false (never an error) for a tensor that is not both
// hosted and present in the context, so callers can iterate over every
// referenced tensor uniformly.
type Backend interface {
	Name() string

	Initialize() error
	IsInitialized() bool
	UnsafeCleanup() error

	Init(device Device) (Context, error)
	Finalize(ctx Context) error

	Compile(ctx Context, name string, verbose bool, bindings Bindings, code llir.LLCode) (Compiled, error)

	FromHost(ctx Context, tensor hlir.TensorRef) (bool, error)
	ToHost(ctx Context, tensor hlir.TensorRef) (bool, error)

	Merge(tensor hlir.TensorRef, dstCtx Context, accum hlir.BinOp, srcCtx Context, nameSuffix string) (Compiled, error)

	Await(device Device) error
	NumDevices() int
	GetDevice(ordinal int) (Device, error)
	GetCtxDevice(ctx Context) Device
	ToOrdinal(device Device) int
}

var (
	registryMu sync.Mutex
	registry   = map[string]func() Backend{}
)

// Register installs a backend constructor under name. Called from the
// backend/cpu and backend/gpu packages' init functions.
func Register(name string, ctor func() Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// New resolves name to a fresh Backend instance. An unknown name is a hard
// construction-time error (§6 "Backend selection").
func New(name string) (Backend, error) {
	registryMu.Lock()
	ctor, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("backend: unknown backend name %q", name)
	}
	return ctor(), nil
}

// Names returns the currently registered backend names, for diagnostics.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
