package host

import (
	"fmt"
	"net"

	"github.com/hashicorp/go-multierror"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

// sendPayload frames payload behind a stamped header and emits one
// datagram to conn. Loss is acceptable everywhere this is used.
func (h *Host) sendPayload(conn *Connection, t protocol.PacketType, payload *protocol.Buffer, now float64) error {
	header := protocol.NewHeader(t)
	header.Sequence = conn.Tracker.NextSequence()
	header.Tick = h.currentTick
	conn.Tracker.Stamp(&header)

	packet := &protocol.Buffer{}
	if payload != nil {
		// every payload this side produces is bounded by the roster
		// and entity caps; exceeding the datagram is a programmer
		// error, not a network condition
		if payload.Len() > protocol.MaxPacketSize-protocol.HeaderSize {
			panic(fmt.Sprintf("%#x payload overflows datagram: %d bytes for player %d", uint8(t), payload.Len(), conn.PlayerID))
		}
		header.PayloadSize = uint16(payload.Len())
		packet.WriteHeader(header)
		packet.WriteBytes(payload.Bytes())
	} else {
		packet.WriteHeader(header)
	}

	conn.LastSendTime = now
	return h.transport.SendTo(packet.Bytes(), conn.Addr)
}

func (h *Host) sendEmpty(conn *Connection, t protocol.PacketType) {
	if err := h.sendPayload(conn, t, nil, h.now()); err != nil {
		h.logger.Debug().Msgf("could not send %#x to player %d: %v", uint8(t), conn.PlayerID, err)
	}
}

func (h *Host) sendConnectAccept(conn *Connection, now float64) {
	payload := &protocol.Buffer{}
	payload.WriteU32(conn.PlayerID)
	payload.WriteU32(h.currentTick)

	if err := h.sendPayload(conn, protocol.ConnectAccept, payload, now); err != nil {
		h.logger.Error().Msgf("could not send connect accept to player %d: %v", conn.PlayerID, err)
	}
}

// sendConnectReject answers a request the table has no room for. The
// peer has no connection entry, so the header goes out unsequenced,
// with sequence and ack fields left at zero.
func (h *Host) sendConnectReject(addr *net.UDPAddr) {
	packet := &protocol.Buffer{}
	packet.WriteHeader(protocol.NewHeader(protocol.ConnectReject))

	if err := h.transport.SendTo(packet.Bytes(), addr); err != nil {
		h.logger.Debug().Msgf("could not send connect reject to %s: %v", addr, err)
	}
}

// sendStateUpdates broadcasts the full player roster to every connected
// peer. Snapshots are not delta-encoded: with at most 16 players a
// snapshot is at most 536 bytes, about 10.7kB/s per connection at
// 20Hz, and a lost snapshot heals itself when the next one lands.
func (h *Host) sendStateUpdates(now float64) {
	payload := &protocol.Buffer{}
	payload.WriteU8(uint8(len(h.players)))
	for _, state := range h.players {
		payload.WritePlayerState(*state)
	}

	var errs error
	for _, conn := range h.connections {
		if conn.State != protocol.Connected {
			continue
		}
		if err := h.sendPayload(conn, protocol.StateUpdate, payload, now); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		h.logger.Debug().Msgf("state update broadcast: %v", errs)
	}
}

// sendWorldSnapshot hands a fresh peer the complete world: the player
// roster plus the host's static entities.
func (h *Host) sendWorldSnapshot(conn *Connection, now float64) {
	payload := &protocol.Buffer{}

	payload.WriteU8(uint8(len(h.players)))
	for _, state := range h.players {
		payload.WritePlayerState(*state)
	}

	payload.WriteU8(uint8(len(h.entities)))
	for _, entity := range h.entities {
		payload.WriteEntityState(entity)
	}

	if err := h.sendPayload(conn, protocol.WorldSnapshot, payload, now); err != nil {
		h.logger.Error().Msgf("could not send world snapshot to player %d: %v", conn.PlayerID, err)
	}
}

// broadcastEntityCreate announces a new player entity to every other
// connected peer.
func (h *Host) broadcastEntityCreate(playerID uint32, now float64) {
	state, ok := h.players[playerID]
	if !ok {
		return
	}

	payload := &protocol.Buffer{}
	payload.WriteU32(playerID)
	payload.WriteU8(protocol.EntityTypePlayer)
	payload.WriteVec3(state.Position)

	var errs error
	for id, conn := range h.connections {
		if conn.State != protocol.Connected || id == playerID {
			continue
		}
		if err := h.sendPayload(conn, protocol.EntityCreate, payload, now); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		h.logger.Debug().Msgf("entity create broadcast: %v", errs)
	}
}

func (h *Host) broadcastEntityDestroy(entityID uint32, now float64) {
	payload := &protocol.Buffer{}
	payload.WriteU32(entityID)

	var errs error
	for _, conn := range h.connections {
		if conn.State != protocol.Connected {
			continue
		}
		if err := h.sendPayload(conn, protocol.EntityDestroy, payload, now); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		h.logger.Debug().Msgf("entity destroy broadcast: %v", errs)
	}
}
