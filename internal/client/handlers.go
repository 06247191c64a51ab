package client

import (
	"fmt"

	"github.com/steppen0mad/Pulse/internal/interp"
	"github.com/steppen0mad/Pulse/internal/prediction"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

func (c *Client) receivePackets(now float64) {
	for _, dg := range c.transport.ReceiveAll() {
		buf := protocol.BufferFrom(dg.Payload)
		header := buf.ReadHeader()
		if !header.IsValid() {
			continue
		}

		c.lastReceiveTime = now
		c.tracker.OnReceive(header.Sequence)
		c.handlePacket(header, buf)

		// a handler may have torn the connection down
		if c.state == protocol.Disconnected {
			return
		}
	}
}

func (c *Client) handlePacket(header protocol.PacketHeader, buf *protocol.Buffer) {
	switch header.Type {
	case protocol.ConnectAccept:
		c.handleConnectAccept(buf)

	case protocol.ConnectReject:
		c.logger.Warn().Msg("connection rejected")
		c.Disconnect()

	case protocol.Disconnect:
		c.logger.Info().Msg("server closed the connection")
		c.Disconnect()

	case protocol.Heartbeat:
		// receive time and acks already recorded

	case protocol.StateUpdate:
		c.handleStateUpdate(buf, header)

	case protocol.WorldSnapshot:
		c.handleWorldSnapshot(buf)

	case protocol.EntityCreate:
		c.handleEntityCreate(buf)

	case protocol.EntityDestroy:
		c.handleEntityDestroy(buf)

	default:
		// unknown or host-bound type, drop
	}
}

func (c *Client) handleConnectAccept(buf *protocol.Buffer) {
	if c.state != protocol.Connecting {
		// duplicate accept after we are already in; the host answers
		// every re-sent request
		return
	}

	c.playerID = buf.ReadU32()
	c.serverTick = buf.ReadU32()
	c.state = protocol.Connected

	c.localState = protocol.PlayerState{
		PlayerID: c.playerID,
		Tick:     c.serverTick,
		Position: protocol.SpawnPosition,
		Yaw:      protocol.SpawnYaw,
		Pitch:    protocol.SpawnPitch,
	}
	c.lastServerState = c.localState

	c.logger.Info().Msgf("connected as player %d at tick %d", c.playerID, c.serverTick)

	if c.OnConnected != nil {
		c.OnConnected(c.playerID)
	}
}

func (c *Client) handleStateUpdate(buf *protocol.Buffer, header protocol.PacketHeader) {
	if c.state != protocol.Connected {
		return
	}

	c.serverTick = header.Tick

	playerCount := buf.ReadU8()
	for i := 0; i < int(playerCount); i++ {
		state := buf.ReadPlayerState()
		if state.PlayerID == c.playerID {
			c.lastServerState = state
			prediction.Reconcile(&c.localState, state, &c.history)
		} else {
			c.trackRemote(state)
		}
	}
}

func (c *Client) handleWorldSnapshot(buf *protocol.Buffer) {
	playerCount := buf.ReadU8()
	for i := 0; i < int(playerCount); i++ {
		state := buf.ReadPlayerState()
		if state.PlayerID == c.playerID {
			c.localState = state
			c.lastServerState = state
		} else {
			c.trackRemote(state)
		}
	}

	entityCount := buf.ReadU8()
	for i := 0; i < int(entityCount); i++ {
		entity := buf.ReadEntityState()
		if c.OnEntityCreated != nil {
			c.OnEntityCreated(entity.EntityID, entity.EntityType, entity.Position)
		}
	}

	c.logger.Debug().Msgf("world snapshot: %d players, %d entities", playerCount, entityCount)
}

func (c *Client) handleEntityCreate(buf *protocol.Buffer) {
	entityID := buf.ReadU32()
	entityType := buf.ReadU8()
	position := buf.ReadVec3()

	if entityType == protocol.EntityTypePlayer {
		c.remotePlayers[entityID] = protocol.PlayerState{
			PlayerID: entityID,
			Position: position,
		}
	}

	c.logger.Debug().Msgf("entity %d created (type %d)", entityID, entityType)

	if c.OnEntityCreated != nil {
		c.OnEntityCreated(entityID, entityType, position)
	}
}

func (c *Client) handleEntityDestroy(buf *protocol.Buffer) {
	entityID := buf.ReadU32()

	delete(c.remotePlayers, entityID)
	delete(c.interpBuffers, entityID)

	c.logger.Debug().Msgf("entity %d destroyed", entityID)

	if c.OnEntityDestroyed != nil {
		c.OnEntityDestroyed(entityID)
	}
}

// trackRemote records an authoritative state for a remote player: the
// last-known map for fallback rendering and the interpolation ring for
// the delayed sample path.
func (c *Client) trackRemote(state protocol.PlayerState) {
	c.remotePlayers[state.PlayerID] = state

	buffer, ok := c.interpBuffers[state.PlayerID]
	if !ok {
		buffer = &interp.Buffer{}
		c.interpBuffers[state.PlayerID] = buffer
	}
	buffer.Push(state)
}

func (c *Client) sendPayload(t protocol.PacketType, payload *protocol.Buffer, now float64) {
	header := protocol.NewHeader(t)
	header.Sequence = c.tracker.NextSequence()
	header.Tick = c.serverTick
	c.tracker.Stamp(&header)

	packet := &protocol.Buffer{}
	if payload != nil {
		// the input burst caps at five records; anything bigger is a
		// programmer error, not a network condition
		if payload.Len() > protocol.MaxPacketSize-protocol.HeaderSize {
			panic(fmt.Sprintf("%#x payload overflows datagram: %d bytes", uint8(t), payload.Len()))
		}
		header.PayloadSize = uint16(payload.Len())
		packet.WriteHeader(header)
		packet.WriteBytes(payload.Bytes())
	} else {
		packet.WriteHeader(header)
	}

	c.lastSendTime = now
	if err := c.transport.Send(packet.Bytes()); err != nil {
		c.logger.Debug().Msgf("could not send %#x: %v", uint8(t), err)
	}
}

func (c *Client) sendEmpty(t protocol.PacketType, now float64) {
	c.sendPayload(t, nil, now)
}

func (c *Client) sendConnectRequest(now float64) {
	c.sendEmpty(protocol.ConnectRequest, now)
}
