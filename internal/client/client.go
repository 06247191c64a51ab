// Package client is the predicted side of the engine. The local player
// moves the instant an input is issued; the host's corrective state is
// folded back in by replaying unacknowledged inputs, and remote players
// are rendered a few ticks in the past out of per-player interpolation
// buffers.
package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/phuslu/log"
	"github.com/steppen0mad/Pulse/internal/interp"
	"github.com/steppen0mad/Pulse/internal/movement"
	"github.com/steppen0mad/Pulse/internal/prediction"
	"github.com/steppen0mad/Pulse/internal/protocol"
	"github.com/steppen0mad/Pulse/internal/reliability"
	"github.com/steppen0mad/Pulse/internal/transport"
)

// connectRetransmitInterval paces CONNECT_REQUEST while CONNECTING.
const connectRetransmitInterval = 1.0 // seconds

type Client struct {
	transport *transport.Transport
	logger    *log.Logger

	state         protocol.ConnectionState
	playerID      uint32
	serverTick    uint32
	inputSequence uint32

	tracker   reliability.Tracker
	startTime time.Time

	// seconds on the client clock
	lastSendTime     float64
	lastReceiveTime  float64
	connectStartTime float64
	rtt              float64

	localState      protocol.PlayerState
	lastServerState protocol.PlayerState
	history         prediction.History

	remotePlayers map[uint32]protocol.PlayerState
	interpBuffers map[uint32]*interp.Buffer

	// fired synchronously from inside Update (Disconnect included);
	// do not block in these
	OnConnected       func(playerID uint32)
	OnDisconnected    func()
	OnEntityCreated   func(entityID uint32, entityType uint8, position protocol.Vec3)
	OnEntityDestroyed func(entityID uint32)
}

// NewClient constructs a disconnected client. A nil logger is silenced.
func NewClient(logger *log.Logger) *Client {
	if logger == nil {
		tmp := log.DefaultLogger
		logger = &tmp
		logger.Writer = &log.IOWriter{Writer: io.Discard}
	}

	return &Client{
		logger:        logger,
		state:         protocol.Disconnected,
		rtt:           0.1,
		remotePlayers: make(map[uint32]protocol.PlayerState),
		interpBuffers: make(map[uint32]*interp.Buffer),
	}
}

// Connect dials the host and starts the CONNECTING handshake. The
// request is retransmitted every second from Update until the host
// answers or ConnectionTimeout elapses.
func (c *Client) Connect(host string, port uint16) error {
	return c.ConnectAddr(fmt.Sprintf("%s:%d", host, port))
}

// ConnectAddr dials an explicit address:port string.
func (c *Client) ConnectAddr(address string) error {
	if c.state != protocol.Disconnected {
		return fmt.Errorf("already %s", c.state)
	}

	tr, err := transport.Dial("udp4", address)
	if err != nil {
		return fmt.Errorf("could not connect: %w", err)
	}

	c.transport = tr
	c.state = protocol.Connecting
	c.startTime = time.Now()
	c.connectStartTime = 0
	c.tracker = reliability.Tracker{}
	c.inputSequence = 0

	c.logger.Info().Msgf("connecting to %s", address)
	c.sendConnectRequest(c.now())
	return nil
}

// Disconnect is synchronous: one DISCONNECT datagram, socket released,
// buffers cleared, OnDisconnected fired exactly once. The host's
// timeout covers the case where the datagram is lost.
func (c *Client) Disconnect() {
	if c.state == protocol.Disconnected {
		return
	}

	c.state = protocol.Disconnecting
	c.sendEmpty(protocol.Disconnect, c.now())
	c.state = protocol.Disconnected

	_ = c.transport.Close()
	c.transport = nil

	c.remotePlayers = make(map[uint32]protocol.PlayerState)
	c.interpBuffers = make(map[uint32]*interp.Buffer)
	c.history.Clear()

	c.logger.Info().Msg("disconnected")

	if c.OnDisconnected != nil {
		c.OnDisconnected()
	}
}

// Update drives one frame: drain the socket, then run the per-state
// timers (connect retransmit and timeout, server silence timeout,
// heartbeat).
func (c *Client) Update(dt float64) {
	if c.state == protocol.Disconnected {
		return
	}

	now := c.now()
	c.receivePackets(now)

	switch c.state {
	case protocol.Connecting:
		if now-c.connectStartTime > protocol.ConnectionTimeout.Seconds() {
			c.logger.Warn().Msg("connect timed out")
			c.Disconnect()
			return
		}
		if now-c.lastSendTime > connectRetransmitInterval {
			c.sendConnectRequest(now)
		}

	case protocol.Connected:
		if now-c.lastReceiveTime > protocol.ConnectionTimeout.Seconds() {
			c.logger.Warn().Msg("server timed out")
			c.Disconnect()
			return
		}
		if now-c.lastSendTime > protocol.HeartbeatInterval.Seconds() {
			c.sendEmpty(protocol.Heartbeat, now)
		}
	}
}

// Run drives Update at the tick cadence until ctx is cancelled, then
// disconnects. Convenience for headless drivers; a render loop calls
// Update itself.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / protocol.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return nil
		case <-ticker.C:
			c.Update(protocol.TickInterval)
		}
	}
}

// SendInput stamps, predicts and transmits one frame of input. The
// packet carries up to the last five unacknowledged inputs (newest
// last), so an input reaches the host as long as one of the
// datagrams carrying it survives. Not connected is a silent no-op.
func (c *Client) SendInput(raw protocol.PlayerInput) {
	if c.state != protocol.Connected {
		return
	}

	c.inputSequence++
	input := raw
	input.Sequence = c.inputSequence
	input.Tick = c.serverTick

	predicted := c.localState
	movement.Apply(&predicted, input)
	predicted.Tick = c.serverTick

	c.history.Add(input, predicted)
	c.localState = predicted

	payload := &protocol.Buffer{}
	unacked := c.history.Unacknowledged()
	const redundancy = 5
	if len(unacked) > redundancy {
		unacked = unacked[len(unacked)-redundancy:]
	}
	for _, u := range unacked {
		payload.WritePlayerInput(u)
	}

	c.sendPayload(protocol.Input, payload, c.now())
}

// LocalState is the predicted local player. The pointer is deliberate:
// the renderer owns yaw and pitch and writes them here between frames.
func (c *Client) LocalState() *protocol.PlayerState {
	return &c.localState
}

// InterpolatedRemotePlayers samples every remote player at the delayed
// render tick. Peers whose buffers are not renderable yet fall back to
// their last known authoritative state.
func (c *Client) InterpolatedRemotePlayers() map[uint32]protocol.PlayerState {
	result := make(map[uint32]protocol.PlayerState, len(c.interpBuffers))

	var renderTick uint32
	if c.serverTick > protocol.InterpolationDelayTicks {
		renderTick = c.serverTick - protocol.InterpolationDelayTicks
	}

	for id, buffer := range c.interpBuffers {
		if id == c.playerID {
			continue
		}
		if state, ok := buffer.Sample(renderTick); ok {
			result[id] = state
		} else if state, ok := c.remotePlayers[id]; ok {
			result[id] = state
		}
	}

	return result
}

func (c *Client) IsConnected() bool  { return c.state == protocol.Connected }
func (c *Client) IsConnecting() bool { return c.state == protocol.Connecting }
func (c *Client) PlayerID() uint32   { return c.playerID }
func (c *Client) ServerTick() uint32 { return c.serverTick }
func (c *Client) Rtt() float64       { return c.rtt }

// PlayerCount counts the known remote players plus ourselves.
func (c *Client) PlayerCount() int {
	return len(c.remotePlayers) + 1
}

func (c *Client) now() float64 {
	return time.Since(c.startTime).Seconds()
}
