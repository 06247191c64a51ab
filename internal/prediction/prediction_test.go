package prediction_test

import (
	"math"
	"testing"

	"github.com/matryer/is"
	"github.com/steppen0mad/Pulse/internal/movement"
	"github.com/steppen0mad/Pulse/internal/prediction"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

func TestHistoryAcknowledge(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	for seq := uint32(1); seq <= 10; seq++ {
		h.Add(protocol.PlayerInput{Sequence: seq}, protocol.PlayerState{})
	}

	h.AcknowledgeUpTo(5)

	unacked := h.Unacknowledged()
	is.Equal(len(unacked), 5)
	for i, input := range unacked {
		is.Equal(input.Sequence, uint32(6+i))
	}
}

func TestHistoryOverwritesOldest(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	total := protocol.InputBufferSize + 10
	for seq := 1; seq <= total; seq++ {
		h.Add(protocol.PlayerInput{Sequence: uint32(seq)}, protocol.PlayerState{})
	}

	is.Equal(h.Len(), protocol.InputBufferSize)
	unacked := h.Unacknowledged()
	is.Equal(unacked[0].Sequence, uint32(11))
	is.Equal(unacked[len(unacked)-1].Sequence, uint32(total))
}

func TestHistoryClear(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	h.Add(protocol.PlayerInput{Sequence: 1}, protocol.PlayerState{})
	h.Clear()
	is.Equal(h.Len(), 0)
	is.Equal(len(h.Unacknowledged()), 0)
}

func TestReconcileEqualsReplay(t *testing.T) {
	is := is.New(t)

	// seed a history of unacked inputs, then confirm reconciliation
	// lands exactly on replaying them atop the server state
	h := &prediction.History{}
	state := protocol.PlayerState{Position: protocol.SpawnPosition}
	for seq := uint32(1); seq <= 6; seq++ {
		input := protocol.PlayerInput{
			Sequence:  seq,
			Keys:      protocol.KeyW,
			Yaw:       -90,
			DeltaTime: 1.0 / 60.0,
		}
		movement.Apply(&state, input)
		h.Add(input, state)
	}

	// server processed up to 3 and diverged far enough to snap
	server := protocol.PlayerState{
		Position:           protocol.SpawnPosition.Add(protocol.Vec3{X: 5}),
		LastProcessedInput: 3,
	}

	want := server
	for _, input := range []uint32{4, 5, 6} {
		movement.Apply(&want, protocol.PlayerInput{
			Sequence:  input,
			Keys:      protocol.KeyW,
			Yaw:       -90,
			DeltaTime: 1.0 / 60.0,
		})
	}

	local := state
	prediction.Reconcile(&local, server, h)

	is.Equal(h.Len(), 3)
	is.Equal(local.Position, want.Position)
	is.Equal(local.LastProcessedInput, uint32(3))
}

func TestReconcileWithinJitterLeavesPosition(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	local := protocol.PlayerState{Position: protocol.Vec3{X: 1, Y: 2, Z: 3}}
	server := local
	server.Position.X += 0.001

	prediction.Reconcile(&local, server, h)
	is.Equal(local.Position, protocol.Vec3{X: 1, Y: 2, Z: 3})
}

func TestReconcileBlendsSmallError(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	local := protocol.PlayerState{}
	server := protocol.PlayerState{Position: protocol.Vec3{X: 0.5}}

	prediction.Reconcile(&local, server, h)

	// moved 10% of the way toward the replayed position
	is.True(math.Abs(float64(local.Position.X-0.05)) < 1e-5)
}

func TestReconcileSnapsLargeError(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	local := protocol.PlayerState{}
	server := protocol.PlayerState{Position: protocol.Vec3{X: 3, Y: 0, Z: 4}}

	prediction.Reconcile(&local, server, h)
	is.Equal(local.Position, protocol.Vec3{X: 3, Y: 0, Z: 4})
}

func TestReconcileLeavesLookDirection(t *testing.T) {
	is := is.New(t)

	h := &prediction.History{}
	local := protocol.PlayerState{Yaw: 10, Pitch: 20}
	server := protocol.PlayerState{
		Position: protocol.Vec3{X: 5},
		Yaw:      99,
		Pitch:    -99,
	}

	prediction.Reconcile(&local, server, h)
	is.Equal(local.Yaw, float32(10))
	is.Equal(local.Pitch, float32(20))
}
