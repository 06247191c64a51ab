// Package host is the authoritative side of the engine: it owns the
// connection table, every player state, and the fixed-step simulation
// clock. All of it is driven by Update from a single goroutine; nothing
// in here blocks and nothing runs concurrently.
package host

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/phuslu/log"
	"github.com/steppen0mad/Pulse/internal/movement"
	"github.com/steppen0mad/Pulse/internal/protocol"
	"github.com/steppen0mad/Pulse/internal/transport"
)

// LocalPlayerID is the host's own player. It has no connection entry
// and its input bypasses the queue.
const LocalPlayerID uint32 = 0

type Host struct {
	transport *transport.Transport
	logger    *log.Logger

	running   bool
	startTime time.Time

	currentTick         uint32
	nextPlayerID        uint32
	tickAccumulator     float64
	snapshotAccumulator float64

	connections map[uint32]*Connection
	byAddr      map[addrKey]uint32
	players     map[uint32]*protocol.PlayerState
	entities    []protocol.EntityState

	// fired synchronously from inside Update; do not block in these
	OnPlayerConnected    func(playerID uint32)
	OnPlayerDisconnected func(playerID uint32)
}

// NewHost constructs a stopped host. A nil logger is silenced, which
// keeps test output readable.
func NewHost(logger *log.Logger) *Host {
	if logger == nil {
		tmp := log.DefaultLogger
		logger = &tmp
		logger.Writer = &log.IOWriter{Writer: io.Discard}
	}

	return &Host{
		logger:       logger,
		nextPlayerID: 1,
		connections:  make(map[uint32]*Connection),
		byAddr:       make(map[addrKey]uint32),
		players:      make(map[uint32]*protocol.PlayerState),
		entities:     staticWorld(),
	}
}

// staticWorld is the fixed set of entities the host owns from startup.
func staticWorld() []protocol.EntityState {
	return []protocol.EntityState{
		{EntityID: 1, EntityType: protocol.EntityTypeCube, Position: protocol.Vec3{X: 0, Y: 1, Z: 0}},
		{EntityID: 2, EntityType: protocol.EntityTypeCube, Position: protocol.Vec3{X: 5, Y: 1, Z: 3}},
		{EntityID: 3, EntityType: protocol.EntityTypeCube, Position: protocol.Vec3{X: -3, Y: 0.5, Z: -5}},
	}
}

// Start binds the wildcard interface on port and resets the
// simulation clock.
func (h *Host) Start(port uint16) error {
	return h.StartAddr(fmt.Sprintf("0.0.0.0:%d", port))
}

// StartAddr binds an explicit address:port string.
func (h *Host) StartAddr(address string) error {
	tr, err := transport.Listen("udp4", address)
	if err != nil {
		return fmt.Errorf("could not start host: %w", err)
	}

	h.transport = tr
	h.running = true
	h.currentTick = 0
	h.tickAccumulator = 0
	h.snapshotAccumulator = 0
	h.startTime = time.Now()

	h.logger.Info().Msgf("host started on %s", tr.LocalAddr())
	return nil
}

// Addr is the bound address; handy when Start was given port 0.
func (h *Host) Addr() *net.UDPAddr {
	return h.transport.LocalAddr()
}

// Stop notifies every peer, releases the socket and clears all state.
func (h *Host) Stop() {
	if !h.running {
		return
	}

	for _, conn := range h.connections {
		h.sendEmpty(conn, protocol.Disconnect)
	}
	_ = h.transport.Close()

	h.connections = make(map[uint32]*Connection)
	h.byAddr = make(map[addrKey]uint32)
	h.players = make(map[uint32]*protocol.PlayerState)
	h.running = false

	h.logger.Info().Msg("host stopped")
}

// Update drives one frame: drain the socket, evict silent peers,
// advance the fixed-step simulation, then emit periodic snapshots and
// heartbeats. It must be called regularly; wall-clock drift is
// absorbed by the accumulators.
func (h *Host) Update(dt float64) {
	if !h.running {
		return
	}

	now := h.now()

	h.receivePackets(now)
	h.checkTimeouts(now)

	h.tickAccumulator += dt
	for h.tickAccumulator >= protocol.TickInterval {
		h.processTick()
		h.tickAccumulator -= protocol.TickInterval
	}

	h.snapshotAccumulator += dt
	if h.snapshotAccumulator >= protocol.SnapshotInterval {
		h.sendStateUpdates(now)
		h.snapshotAccumulator -= protocol.SnapshotInterval
	}

	for _, conn := range h.connections {
		if conn.State == protocol.Connected && now-conn.LastSendTime >= protocol.HeartbeatInterval.Seconds() {
			h.sendEmpty(conn, protocol.Heartbeat)
			conn.LastSendTime = now
		}
	}
}

// Run drives Update at the tick cadence until ctx is cancelled, then
// stops the host. Convenience for headless drivers; a game loop calls
// Update itself.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / protocol.TickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return nil
		case now := <-ticker.C:
			h.Update(now.Sub(last).Seconds())
			last = now
		}
	}
}

// LocalPlayer returns the host's own player state, creating it at the
// spawn on first use.
func (h *Host) LocalPlayer() *protocol.PlayerState {
	state, ok := h.players[LocalPlayerID]
	if !ok {
		state = &protocol.PlayerState{
			PlayerID: LocalPlayerID,
			Position: protocol.SpawnPosition,
			Yaw:      protocol.SpawnYaw,
			Pitch:    protocol.SpawnPitch,
		}
		h.players[LocalPlayerID] = state
	}
	return state
}

// ProcessLocalInput applies the host player's input immediately, the
// same kernel as everyone else but outside the input queue.
func (h *Host) ProcessLocalInput(input protocol.PlayerInput) {
	state := h.LocalPlayer()
	movement.Apply(state, input)
	state.Tick = h.currentTick
}

// Players is the authoritative roster, keyed by player id. The map is
// owned by the host and only valid to read between Update calls.
func (h *Host) Players() map[uint32]*protocol.PlayerState {
	return h.players
}

func (h *Host) CurrentTick() uint32 { return h.currentTick }
func (h *Host) IsRunning() bool     { return h.running }
func (h *Host) PlayerCount() int    { return len(h.players) }

func (h *Host) now() float64 {
	return time.Since(h.startTime).Seconds()
}

func (h *Host) receivePackets(now float64) {
	for _, dg := range h.transport.ReceiveAll() {
		buf := protocol.BufferFrom(dg.Payload)
		header := buf.ReadHeader()
		if !header.IsValid() {
			continue
		}
		h.handlePacket(header, buf, dg.Addr, now)
	}
}

func (h *Host) handlePacket(header protocol.PacketHeader, buf *protocol.Buffer, fromAddr *net.UDPAddr, now float64) {
	conn := h.findConnection(fromAddr)

	switch header.Type {
	case protocol.ConnectRequest:
		h.handleConnectRequest(fromAddr, now)

	case protocol.Disconnect:
		if conn != nil {
			h.logger.Info().Msgf("player %d disconnected", conn.PlayerID)
			h.removePlayer(conn.PlayerID)
		}

	case protocol.Heartbeat, protocol.Ack:
		if conn != nil {
			conn.LastReceiveTime = now
			conn.Tracker.OnReceive(header.Sequence)
		}

	case protocol.Input:
		if conn != nil && conn.State == protocol.Connected {
			conn.LastReceiveTime = now
			conn.Tracker.OnReceive(header.Sequence)
			h.handleInput(conn, buf, header.PayloadSize)
		}

	default:
		// unknown or client-bound type on the host port, drop
	}
}

func (h *Host) findConnection(addr *net.UDPAddr) *Connection {
	id, ok := h.byAddr[makeAddrKey(addr)]
	if !ok {
		return nil
	}
	return h.connections[id]
}

func (h *Host) handleConnectRequest(fromAddr *net.UDPAddr, now float64) {
	// a re-sent request from a connected peer means our accept was
	// lost; answer it again
	if existing := h.findConnection(fromAddr); existing != nil && existing.State == protocol.Connected {
		h.sendConnectAccept(existing, now)
		return
	}

	if len(h.players) >= protocol.MaxPlayers {
		h.logger.Warn().Msgf("rejecting %s: server full", fromAddr)
		h.sendConnectReject(fromAddr)
		return
	}

	playerID := h.nextPlayerID
	h.nextPlayerID++

	conn := newConnection(playerID, fromAddr, now)
	h.connections[playerID] = conn
	h.byAddr[makeAddrKey(fromAddr)] = playerID

	h.players[playerID] = &protocol.PlayerState{
		PlayerID: playerID,
		Position: protocol.SpawnPosition,
		Yaw:      protocol.SpawnYaw,
		Pitch:    protocol.SpawnPitch,
	}

	h.logger.Info().Msgf("player %d connected from %s", playerID, fromAddr)

	h.sendConnectAccept(conn, now)
	h.sendWorldSnapshot(conn, now)
	h.broadcastEntityCreate(playerID, now)

	if h.OnPlayerConnected != nil {
		h.OnPlayerConnected(playerID)
	}
}

func (h *Host) handleInput(conn *Connection, buf *protocol.Buffer, payloadSize uint16) {
	// the payload is a redundant burst: up to the sender's last five
	// unacknowledged inputs. A size that is not a multiple of the
	// input record leaves a remainder the tolerant reader zero-fills;
	// zero sequences fall to the duplicate filter.
	inputCount := int(payloadSize) / protocol.PlayerInputWireSize
	for i := 0; i < inputCount; i++ {
		conn.queueInput(buf.ReadPlayerInput())
	}
}

// processTick advances the simulation by exactly one tick, applying
// each pending input whose sequence is above the last one applied, so
// applied sequences strictly ascend and queued copies are skipped.
func (h *Host) processTick() {
	h.currentTick++

	for id, conn := range h.connections {
		for _, input := range conn.PendingInputs {
			if input.Sequence <= conn.LastProcessedInput {
				continue
			}
			if state, ok := h.players[id]; ok {
				movement.Apply(state, input)
				state.Tick = h.currentTick
				state.LastProcessedInput = input.Sequence
			}
			conn.LastProcessedInput = input.Sequence
		}
		conn.PendingInputs = conn.PendingInputs[:0]
	}
}

func (h *Host) checkTimeouts(now float64) {
	var timedOut []uint32
	for id, conn := range h.connections {
		if now-conn.LastReceiveTime > protocol.ConnectionTimeout.Seconds() {
			h.logger.Info().Msgf("player %d timed out", id)
			timedOut = append(timedOut, id)
		}
	}
	for _, id := range timedOut {
		h.removePlayer(id)
	}
}

// removePlayer tears down a connection and its player state and tells
// the remaining peers.
func (h *Host) removePlayer(playerID uint32) {
	conn, ok := h.connections[playerID]
	if !ok {
		return
	}

	delete(h.byAddr, makeAddrKey(conn.Addr))
	delete(h.connections, playerID)
	delete(h.players, playerID)

	h.broadcastEntityDestroy(playerID, h.now())

	if h.OnPlayerDisconnected != nil {
		h.OnPlayerDisconnected(playerID)
	}
}
