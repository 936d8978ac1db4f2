package assign

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/shape"
)

func flatShape(sizes ...int) *shape.Shape {
	dims := make([]shape.Dim, len(sizes))
	for i, s := range sizes {
		dims[i] = shape.NewConcreteDim(s)
	}
	row := shape.NewRow(dims, shape.FixedTerm{})
	empty := shape.NewRow(nil, shape.FixedTerm{})
	return shape.New("t", empty, empty, row)
}

func TestSGDOneRejectsNonParameter(t *testing.T) {
	leaf := hlir.NewNode(hlir.NewTensorRef("x", flatShape(3)))
	_, _, err := SGDOne(leaf, DefaultSGDConfig(0.1))
	require.Error(t, err)
}

func TestSGDOnePlainHasNoVelocity(t *testing.T) {
	p := hlir.NewParameter(hlir.NewTensorRef("w", flatShape(4)))
	code, velocity, err := SGDOne(p, DefaultSGDConfig(0.1))
	require.NoError(t, err)
	require.NotNil(t, code)
	require.Nil(t, velocity)
}

func TestSGDOneMomentumProducesVelocity(t *testing.T) {
	p := hlir.NewParameter(hlir.NewTensorRef("w", flatShape(4)))
	_, velocity, err := SGDOne(p, SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, err)
	require.NotNil(t, velocity)
}

func TestSGDUpdateSequencesAllParameters(t *testing.T) {
	p1 := hlir.NewParameter(hlir.NewTensorRef("w1", flatShape(2)))
	p2 := hlir.NewParameter(hlir.NewTensorRef("w2", flatShape(3)))
	code, err := SGDUpdate([]*hlir.Node{p1, p2}, DefaultSGDConfig(0.01))
	require.NoError(t, err)

	comp, ok := code.(hlir.Composition)
	require.True(t, ok, "expected a Seq composition over both parameters")
	require.Equal(t, hlir.Seq, comp.Kind)
	require.Len(t, comp.Children, 2)
}

func TestGradUpdateRejectsNonDifferentiableLoss(t *testing.T) {
	loss := hlir.NewNode(hlir.NewTensorRef("loss", flatShape(1)))
	_, err := GradUpdate(loss, hlir.Noop{}, hlir.Noop{}, nil, false)
	require.Error(t, err)
}

func TestGradUpdateMarksLossHostedChangedOnDevices(t *testing.T) {
	loss := hlir.NewParameter(hlir.NewTensorRef("loss", flatShape(1)))
	w := hlir.NewParameter(hlir.NewTensorRef("w", flatShape(4)))

	code, err := GradUpdate(loss, hlir.Noop{}, hlir.Noop{}, []*hlir.Node{w}, true)
	require.NoError(t, err)
	require.NotNil(t, code)
	require.Equal(t, hlir.HostedChangedOnDevices, loss.Mode)
	require.Equal(t, hlir.OnDevice, w.Mode)
}

func TestNodeSetModeRejectsNarrowing(t *testing.T) {
	n := hlir.NewNode(hlir.NewTensorRef("x", flatShape(1)))
	require.NoError(t, n.SetMode(hlir.Hosted))
	require.Error(t, n.SetMode(hlir.Virtual))
}
