package interp_test

import (
	"math"
	"testing"

	"github.com/matryer/is"
	"github.com/steppen0mad/Pulse/internal/interp"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

func push(b *interp.Buffer, tick uint32, x float32) {
	b.Push(protocol.PlayerState{
		PlayerID: 7,
		Tick:     tick,
		Position: protocol.Vec3{X: x},
	})
}

func TestSampleBetweenStates(t *testing.T) {
	is := is.New(t)

	b := &interp.Buffer{}
	push(b, 100, 0)
	push(b, 110, 10)
	push(b, 120, 20)

	out, ok := b.Sample(105)
	is.True(ok)
	is.True(math.Abs(float64(out.Position.X)-5) < 1)
	is.Equal(out.PlayerID, uint32(7))
	is.Equal(out.Tick, uint32(105))
}

func TestSampleStaysOnSegment(t *testing.T) {
	is := is.New(t)

	b := &interp.Buffer{}
	push(b, 100, 0)
	push(b, 110, 10)

	for tick := uint32(100); tick <= 110; tick++ {
		out, ok := b.Sample(tick)
		is.True(ok)
		is.True(out.Position.X >= 0 && out.Position.X <= 10)
	}
}

func TestSampleAtFreshestReturnsNewest(t *testing.T) {
	is := is.New(t)

	b := &interp.Buffer{}
	push(b, 100, 0)
	push(b, 110, 10)

	// at or past the newest sample there is nothing to lerp toward
	out, ok := b.Sample(110)
	is.True(ok)
	is.Equal(out.Position.X, float32(10))

	out, ok = b.Sample(500)
	is.True(ok)
	is.Equal(out.Position.X, float32(10))
}

func TestSampleNotRenderable(t *testing.T) {
	is := is.New(t)

	b := &interp.Buffer{}
	_, ok := b.Sample(100)
	is.True(!ok)

	push(b, 100, 0)
	_, ok = b.Sample(100)
	is.True(!ok)

	// all samples newer than the render tick
	push(b, 110, 10)
	_, ok = b.Sample(50)
	is.True(!ok)
}

func TestSampleLerpsLookDirection(t *testing.T) {
	is := is.New(t)

	b := &interp.Buffer{}
	b.Push(protocol.PlayerState{Tick: 100, Yaw: 0, Pitch: 0})
	b.Push(protocol.PlayerState{Tick: 110, Yaw: 10, Pitch: -20})

	out, ok := b.Sample(105)
	is.True(ok)
	is.True(math.Abs(float64(out.Yaw)-5) < 1e-3)
	is.True(math.Abs(float64(out.Pitch)+10) < 1e-3)
}

func TestBufferOverwritesOldest(t *testing.T) {
	is := is.New(t)

	b := &interp.Buffer{}
	total := uint32(protocol.StateBufferSize + 16)
	for tick := uint32(1); tick <= total; tick++ {
		push(b, tick, float32(tick))
	}

	is.Equal(b.Len(), protocol.StateBufferSize)

	// the oldest surviving sample is total-StateBufferSize+1, anything
	// older is gone
	_, ok := b.Sample(5)
	is.True(!ok)

	out, ok := b.Sample(total - 3)
	is.True(ok)
	is.Equal(out.Position.X, float32(total-3))
}
