package hlir

import "fmt"

// MemoryMode is the tensor-node storage mode (§3 Tensor node, §4.I
// "grad_update"/"forward" set a value to hosted so the host sees the
// result; parameters-only can stay device-only to save PCIe traffic").
//
// Modes are ordered from most to least restrictive. Once a node's mode is
// set to a terminal value it may only widen (§3 invariant: "once the
// memory mode is set to a terminal value, it may not be lowered to a more
// restrictive one") — SetMode enforces that direction.
type MemoryMode int

const (
	// Virtual tensors are never materialized on host or device (§4.F);
	// this is the default, most restrictive mode.
	Virtual MemoryMode = iota
	// OnDevice tensors are materialized on a context's device but never
	// copied to the host unless a later SetMode widens them.
	OnDevice
	// Hosted tensors have a host buffer and are copied back after a run.
	Hosted
	// HostedChangedOnDevices is Hosted plus the scheduler's acknowledgment
	// that devices may hold a newer value than the host until the next
	// to_host (the mode grad_update gives a loss tensor, §4.I).
	HostedChangedOnDevices
)

func (m MemoryMode) String() string {
	switch m {
	case Virtual:
		return "virtual"
	case OnDevice:
		return "on_device"
	case Hosted:
		return "hosted"
	case HostedChangedOnDevices:
		return "hosted_changed_on_devices"
	default:
		return "unknown-memory-mode"
	}
}

// Node is a tensor's identity plus the component-I bookkeeping spec.md §3
// "Tensor node" and §4.I "grad_update"/"sgd_one" need: its value reference,
// an optional gradient reference, memory mode, and whether it is a literal
// (constant-folded, never a training parameter).
type Node struct {
	Value   TensorRef
	Grad    *TensorRef
	Mode    MemoryMode
	Literal bool
}

// NewNode wraps a value tensor with no gradient (a non-differentiable
// leaf, e.g. an input or a literal).
func NewNode(value TensorRef) *Node {
	return &Node{Value: value, Mode: Virtual}
}

// NewParameter wraps a value tensor with a freshly minted gradient tensor
// of the same shape, the shape a trainable parameter carries.
func NewParameter(value TensorRef) *Node {
	grad := NewTensorRef(value.DebugName+".grad", value.Shape)
	return &Node{Value: value, Grad: &grad, Mode: Virtual}
}

// Differentiable reports whether this node carries a gradient tensor.
func (n *Node) Differentiable() bool { return n.Grad != nil }

// IsParameter reports whether this node is a leaf tensor with a gradient
// that is not a literal (§4.I "collects parameters (leaf tensors with a
// gradient and not literal)").
func (n *Node) IsParameter() bool {
	return n.Differentiable() && !n.Literal
}

// SetMode widens the node's memory mode. Per §3's invariant, a mode may
// only move to an equal-or-less-restrictive value; attempting to narrow a
// terminal mode is a programming-invariant violation (§7).
func (n *Node) SetMode(mode MemoryMode) error {
	if mode < n.Mode {
		return fmt.Errorf("hlir: cannot lower %s's memory mode from %s to %s", n.Value, n.Mode, mode)
	}
	n.Mode = mode
	return nil
}

func (n *Node) String() string { return n.Value.String() }
