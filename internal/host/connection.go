package host

import (
	"net"

	"github.com/cespare/xxhash/v2"
	"github.com/steppen0mad/Pulse/internal/protocol"
	"github.com/steppen0mad/Pulse/internal/reliability"
)

// addrKey collapses an endpoint address into a map key. Peers are
// identified by address equality (ip and port); there is no session
// token.
type addrKey uint64

func makeAddrKey(addr *net.UDPAddr) addrKey {
	return addrKey(xxhash.Sum64String(addr.String()))
}

// Connection is the host's per-peer bookkeeping. It references its
// player state by id only; the players map is the single owner.
type Connection struct {
	PlayerID uint32
	Addr     *net.UDPAddr
	State    protocol.ConnectionState

	Tracker reliability.Tracker

	// seconds on the host clock
	LastReceiveTime float64
	LastSendTime    float64
	RTT             float64

	// inputs waiting for the next simulation tick, in arrival order;
	// overlapping redundant bursts can queue the same sequence twice
	PendingInputs []protocol.PlayerInput
	// highest input sequence already applied to the player state
	LastProcessedInput uint32
}

func newConnection(playerID uint32, addr *net.UDPAddr, now float64) *Connection {
	return &Connection{
		PlayerID:        playerID,
		Addr:            addr,
		State:           protocol.Connected,
		LastReceiveTime: now,
		RTT:             0.1,
	}
}

// queueInput admits an input into the pending queue unless its
// sequence has already been applied. A copy of an input still waiting
// in the queue is admitted; the tick loop re-checks the sequence
// before applying, so a redundant copy arriving twice still mutates
// state exactly once.
func (c *Connection) queueInput(input protocol.PlayerInput) bool {
	if input.Sequence <= c.LastProcessedInput {
		return false
	}
	c.PendingInputs = append(c.PendingInputs, input)
	return true
}
