// Package protocol defines the Pulse wire format: a magic-prefixed
// 23-byte header followed by a type-specific payload, all little-endian,
// carried in UDP datagrams of at most MaxPacketSize bytes.
package protocol

import "time"

const (
	DefaultPort   = 7777
	MaxPacketSize = 1400 // safe MTU
	MaxPlayers    = 16

	TickRate     = 60
	SnapshotRate = 20

	ConnectionTimeout = 10 * time.Second
	HeartbeatInterval = 1 * time.Second

	// InterpolationDelay is how far behind the freshest server state
	// remote players are rendered.
	InterpolationDelay = 100 * time.Millisecond

	InputBufferSize = 64
	StateBufferSize = 128
)

const (
	TickInterval     = 1.0 / TickRate
	SnapshotInterval = 1.0 / SnapshotRate
)

// InterpolationDelayTicks is the render-tick offset: ceil of the delay
// expressed in ticks (6 at the defaults).
const InterpolationDelayTicks = uint32((InterpolationDelay*TickRate + time.Second - 1) / time.Second)

// PacketType tags the payload that follows the header. This is a closed
// enumeration; receivers drop unknown types silently.
type PacketType uint8

const (
	// connection
	ConnectRequest PacketType = 0x01
	ConnectAccept  PacketType = 0x02
	ConnectReject  PacketType = 0x03
	Disconnect     PacketType = 0x04
	Heartbeat      PacketType = 0x05

	// game state
	Input         PacketType = 0x10
	StateUpdate   PacketType = 0x11
	WorldSnapshot PacketType = 0x12

	// events
	EntityCreate   PacketType = 0x20
	EntityDestroy  PacketType = 0x21
	EventBroadcast PacketType = 0x22 // reserved

	// reliability (reserved)
	Ack          PacketType = 0x30
	ReliableData PacketType = 0x31
)

// Key bitfield of PlayerInput.Keys.
const (
	KeyW    uint8 = 1 << 0
	KeyS    uint8 = 1 << 1
	KeyA    uint8 = 1 << 2
	KeyD    uint8 = 1 << 3
	KeyUp   uint8 = 1 << 4
	KeyDown uint8 = 1 << 5
)

// Spawn placement for every new player, host player included.
var (
	SpawnPosition = Vec3{X: 0, Y: 1.7, Z: 5}
)

const (
	SpawnYaw   float32 = -90
	SpawnPitch float32 = 0
)
