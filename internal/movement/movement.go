// Package movement is the kinematic kernel shared by host and client.
// Prediction only works if replaying an input on the client produces
// exactly the bytes the host produced, so both sides must route every
// state mutation through Apply and nothing else.
package movement

import (
	"math"

	"github.com/steppen0mad/Pulse/internal/protocol"
)

// Speed in world units per second.
const Speed float32 = 5.0

// Apply advances state by one input. Pure kinematics: no collision, no
// bounds. The caller stamps the resulting tick.
//
// A moves along (sin yaw, -cos yaw) in x/z and D along its opposite,
// both perpendicular to the forward vector (cos yaw, sin yaw); the
// equations are the wire contract and are kept literally.
func Apply(state *protocol.PlayerState, input protocol.PlayerInput) {
	velocity := Speed * input.DeltaTime
	yawRad := float64(input.Yaw) * math.Pi / 180

	sin := float32(math.Sin(yawRad))
	cos := float32(math.Cos(yawRad))

	if input.Keys&protocol.KeyW != 0 {
		state.Position.X += cos * velocity
		state.Position.Z += sin * velocity
	}
	if input.Keys&protocol.KeyS != 0 {
		state.Position.X -= cos * velocity
		state.Position.Z -= sin * velocity
	}
	if input.Keys&protocol.KeyA != 0 {
		state.Position.X += sin * velocity
		state.Position.Z -= cos * velocity
	}
	if input.Keys&protocol.KeyD != 0 {
		state.Position.X -= sin * velocity
		state.Position.Z += cos * velocity
	}
	if input.Keys&protocol.KeyUp != 0 {
		state.Position.Y += velocity
	}
	if input.Keys&protocol.KeyDown != 0 {
		state.Position.Y -= velocity
	}

	state.Yaw = input.Yaw
	state.Pitch = input.Pitch
}
