package gpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/backend/interp"
	"github.com/tensorforge/tensorforge/hlir"
)

// mergePipeline caches one accum's compiled shader module + compute
// pipeline on a context, adapting the teacher's compileShader/
// getOrCreatePipeline cache (compute.go) keyed by shader name.
type mergePipeline struct {
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

func (p *mergePipeline) release() {
	p.pipeline.Release()
	p.shader.Release()
}

func (c *context) pipelineFor(accum hlir.BinOp) *mergePipeline {
	c.pipelineMu.Lock()
	defer c.pipelineMu.Unlock()
	if p, ok := c.pipelines[accum]; ok {
		return p
	}
	shader := c.device.CreateShaderModuleWGSL(mergeShader(accum))
	pipeline := c.device.CreateComputePipelineSimple(nil, shader, "main")
	p := &mergePipeline{shader: shader, pipeline: pipeline}
	c.pipelines[accum] = p
	return p
}

// createBuffer uploads data into a fresh device buffer, adapted from the
// teacher's createBuffer (compute.go).
func createBuffer(device *wgpu.Device, data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buf := device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := buf.GetMappedRange(0, size)
	dst := unsafe.Slice((*byte)(mapped), size)
	copy(dst, data)
	buf.Unmap()
	return buf
}

// createUniformBuffer uploads a 16-byte-aligned uniform buffer, adapted
// from the teacher's createUniformBuffer (compute.go).
func createUniformBuffer(device *wgpu.Device, data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	aligned := (size + 15) &^ 15
	buf := device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             aligned,
		MappedAtCreation: wgpu.True,
	})
	mapped := buf.GetMappedRange(0, aligned)
	dst := unsafe.Slice((*byte)(mapped), aligned)
	copy(dst, data)
	buf.Unmap()
	return buf
}

// readBuffer reads size bytes back from a device buffer through a
// MAP_READ staging buffer, adapted verbatim from the teacher's
// readBuffer (compute.go).
func readBuffer(device *wgpu.Device, src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	cmd := encoder.Finish(nil)
	device.GetQueue().Submit(cmd)

	if err := staging.MapAsync(device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("gpu: mapping staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, size)
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapped), size))
	staging.Unmap()
	return out, nil
}

// Merge implements the scheduler's pairwise-halving reduction step and
// parameter broadcast (§4.H) as a genuine WebGPU compute dispatch: src's
// host-mirrored value (always current — every kernel Run pushes its
// mirror to its own device immediately after interpreting) is uploaded
// into a scratch buffer physically on dst's device, accum is applied by a
// cached compute pipeline writing dst's resident buffer in place, and the
// result is copied back into dst's host mirror so a subsequent interp
// kernel sees it without a round trip through to_host.
//
// dst and src are necessarily on different wgpu.Device handles — WebGPU
// gives no way to bind two devices' buffers into one dispatch — so the
// transfer is host-mediated at the data level even though the
// accumulation itself runs on dst's device, not on the CPU.
func (b *Backend) Merge(tensor hlir.TensorRef, dstCtx backend.Context, accum hlir.BinOp, srcCtx backend.Context, nameSuffix string) (backend.Compiled, error) {
	dst, ok := dstCtx.(*context)
	if !ok {
		return nil, fmt.Errorf("gpu: foreign dst context %v", dstCtx)
	}
	src, ok := srcCtx.(*context)
	if !ok {
		return nil, fmt.Errorf("gpu: foreign src context %v", srcCtx)
	}

	run := func(*interp.Env) error {
		dstRes, err := dst.ensureResident(tensor)
		if err != nil {
			return err
		}
		srcRes, err := src.ensureResident(tensor)
		if err != nil {
			return err
		}
		n := dstRes.host.NumElements()
		if n != srcRes.host.NumElements() {
			return fmt.Errorf("gpu: merge %s%s: element count mismatch (%d dst vs %d src)", tensor, nameSuffix, n, srcRes.host.NumElements())
		}

		scratch := createBuffer(dst.device, srcRes.host.Raw(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
		defer scratch.Release()

		params := make([]byte, 4)
		putUint32(params, uint32(n))
		uniform := createUniformBuffer(dst.device, params)
		defer uniform.Release()

		mp := dst.pipelineFor(accum)
		layout := mp.pipeline.GetBindGroupLayout(0)
		bindGroup := dst.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
			wgpu.BufferBindingEntry(0, dstRes.device, 0, dstRes.bytes),
			wgpu.BufferBindingEntry(1, scratch, 0, dstRes.bytes),
			wgpu.BufferBindingEntry(2, uniform, 0, 16),
		})
		defer bindGroup.Release()

		encoder := dst.device.CreateCommandEncoder(nil)
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(mp.pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		workgroups := uint32((n + workgroupSize - 1) / workgroupSize)
		pass.DispatchWorkgroups(workgroups, 1, 1)
		pass.End()
		cmd := encoder.Finish(nil)
		dst.queue.Submit(cmd)

		merged, err := readBuffer(dst.device, dstRes.device, dstRes.bytes)
		if err != nil {
			return fmt.Errorf("gpu: merge %s%s: reading back: %w", tensor, nameSuffix, err)
		}
		copy(dstRes.host.Raw(), merged)
		return nil
	}

	return &compiled{ctx: dst, run: run}, nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
