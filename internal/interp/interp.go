// Package interp smooths remote players. Authoritative states arrive in
// 20Hz bursts; rendering them raw would teleport peers twenty times a
// second. Instead each remote player owns a ring of timestamped states
// and is drawn a fixed number of ticks in the past, where the buffer
// has samples on both sides of the render tick.
package interp

import "github.com/steppen0mad/Pulse/internal/protocol"

// Buffer is a fixed-capacity overwrite ring of authoritative states
// for a single player, in the order received.
type Buffer struct {
	states [protocol.StateBufferSize]protocol.PlayerState
	count  uint32
}

func (b *Buffer) Push(state protocol.PlayerState) {
	b.states[b.count%protocol.StateBufferSize] = state
	b.count++
}

func (b *Buffer) Len() int {
	if b.count < protocol.StateBufferSize {
		return int(b.count)
	}
	return protocol.StateBufferSize
}

// Sample returns the state interpolated at renderTick. The scan walks
// from the newest sample backwards to the first state at-or-before the
// render tick, then lerps toward the sample that followed it. Yaw is
// lerped without wrapping; callers keep yaw continuous (crossing the
// +-180 boundary sweeps the long arc).
//
// ok is false while the buffer has fewer than two samples or only
// samples newer than renderTick.
func (b *Buffer) Sample(renderTick uint32) (out protocol.PlayerState, ok bool) {
	if b.count < 2 {
		return protocol.PlayerState{}, false
	}

	stored := uint32(b.Len())
	for i := uint32(0); i < stored; i++ {
		before := b.states[(b.count-1-i)%protocol.StateBufferSize]
		if before.Tick > renderTick {
			continue
		}

		if i == 0 {
			// target is at or past the freshest sample
			return before, true
		}

		after := b.states[(b.count-i)%protocol.StateBufferSize]
		if after.Tick == before.Tick {
			return after, true
		}
		t := float32(renderTick-before.Tick) / float32(after.Tick-before.Tick)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}

		out = protocol.PlayerState{
			PlayerID:           before.PlayerID,
			Tick:               renderTick,
			Position:           protocol.Lerp(before.Position, after.Position, t),
			Yaw:                before.Yaw + (after.Yaw-before.Yaw)*t,
			Pitch:              before.Pitch + (after.Pitch-before.Pitch)*t,
			LastProcessedInput: after.LastProcessedInput,
		}
		return out, true
	}

	return protocol.PlayerState{}, false
}
