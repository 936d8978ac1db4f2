package gpu

import "github.com/tensorforge/tensorforge/hlir"

// workgroupSize is the default number of threads per workgroup, adapted
// from the teacher's shaders.go.
const workgroupSize = 256

// mergeShader returns the WGSL compute shader implementing accum over
// dst/src (binding 0/1 storage buffers, binding 2 a uniform element
// count), writing dst in place — the merge tree's pairwise step (§4.H)
// only ever needs one of the three binops the IR's closed accum set
// allows, so the shader is picked once per accum rather than generated
// generically, adapted from the teacher's addShader (shaders.go).
func mergeShader(accum hlir.BinOp) string {
	var expr string
	switch accum {
	case hlir.Add:
		expr = "dst[idx] + src[idx]"
	case hlir.Arg2:
		expr = "src[idx]"
	default: // hlir.Arg1: keep dst unchanged.
		expr = "dst[idx]"
	}
	return `
@group(0) @binding(0) var<storage, read_write> dst: array<f32>;
@group(0) @binding(1) var<storage, read> src: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        dst[idx] = ` + expr + `;
    }
}
`
}
