package prediction

import (
	"github.com/steppen0mad/Pulse/internal/movement"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

// Correction thresholds on the distance between the replayed server
// state and the current prediction. Below NoCorrection the divergence
// is float jitter; up to SnapThreshold the position eases over toward
// the replayed state at BlendFactor per reconcile (~10 snapshots);
// beyond that it snaps.
const (
	NoCorrectionThreshold float32 = 0.01
	SnapThreshold         float32 = 1.0
	BlendFactor           float32 = 0.1
)

// Reconcile folds an authoritative state for the local player into the
// prediction. It acknowledges inputs the server has processed, replays
// the rest through the movement kernel, and corrects local.Position
// toward the result. Yaw and pitch stay untouched: the renderer owns
// the look direction and every outgoing input carries a fresh one.
func Reconcile(local *protocol.PlayerState, server protocol.PlayerState, history *History) {
	history.AcknowledgeUpTo(server.LastProcessedInput)

	replayed := server
	for _, input := range history.Unacknowledged() {
		movement.Apply(&replayed, input)
	}

	err := replayed.Position.Dist(local.Position)
	switch {
	case err < NoCorrectionThreshold:
		// within prediction jitter
	case err < SnapThreshold:
		delta := replayed.Position.Sub(local.Position).Scale(BlendFactor)
		local.Position = local.Position.Add(delta)
	default:
		local.Position = replayed.Position
	}
	local.LastProcessedInput = server.LastProcessedInput
}
