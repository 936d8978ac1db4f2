package gpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// bufferSize categorizes pooled buffers so a size-appropriate one can be
// reused without a fresh device allocation, adapted directly from the
// teacher's internal/backend/webgpu.BufferPool.
type bufferSize int

const (
	smallBuffer bufferSize = iota
	mediumBuffer
	largeBuffer
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024
	maxPoolSize     = 100
)

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool manages GPU buffer reuse for one context's device, the same
// role it plays in the teacher: tensor residency in this package churns
// through allocate/release far more than the teacher's tensor ops did,
// since every grad_update round materializes a fresh set of device
// mirrors, so pooling matters here too.
type BufferPool struct {
	device *wgpu.Device

	small  []*pooledBuffer
	medium []*pooledBuffer
	large  []*pooledBuffer

	mu sync.Mutex
}

// NewBufferPool creates a buffer pool bound to device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire returns a buffer of at least size bytes satisfying usage,
// reusing a pooled one if available.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	cat := p.categorize(size)
	pool := p.getPool(cat)
	for i, pb := range pool {
		if pb.size >= size && pb.usage&usage == usage {
			p.removeFromPool(cat, i)
			return pb.buffer
		}
	}

	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns buffer to the pool, or releases it immediately if the
// category pool is already full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cat := p.categorize(size)
	pool := p.getPool(cat)
	if len(pool) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.addToPool(cat, &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases every pooled buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pool := range [][]*pooledBuffer{p.small, p.medium, p.large} {
		for _, pb := range pool {
			pb.buffer.Release()
		}
	}
	p.small, p.medium, p.large = nil, nil, nil
}

func (p *BufferPool) categorize(size uint64) bufferSize {
	switch {
	case size < smallThreshold:
		return smallBuffer
	case size < mediumThreshold:
		return mediumBuffer
	default:
		return largeBuffer
	}
}

func (p *BufferPool) getPool(cat bufferSize) []*pooledBuffer {
	switch cat {
	case smallBuffer:
		return p.small
	case mediumBuffer:
		return p.medium
	default:
		return p.large
	}
}

func (p *BufferPool) addToPool(cat bufferSize, pb *pooledBuffer) {
	switch cat {
	case smallBuffer:
		p.small = append(p.small, pb)
	case mediumBuffer:
		p.medium = append(p.medium, pb)
	default:
		p.large = append(p.large, pb)
	}
}

func (p *BufferPool) removeFromPool(cat bufferSize, i int) {
	switch cat {
	case smallBuffer:
		p.small = append(p.small[:i], p.small[i+1:]...)
	case mediumBuffer:
		p.medium = append(p.medium[:i], p.medium[i+1:]...)
	default:
		p.large = append(p.large[:i], p.large[i+1:]...)
	}
}
