package host

import (
	"net"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

// white-box tests: peer admission and the simulation step, without a
// real client on the wire

func testAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestConnectRequestCreatesPlayer(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	var connected []uint32
	h.OnPlayerConnected = func(id uint32) { connected = append(connected, id) }

	h.handleConnectRequest(testAddr(40001), h.now())

	is.Equal(connected, []uint32{1})
	is.Equal(h.PlayerCount(), 1)

	state := h.players[1]
	is.Equal(state.Position, protocol.SpawnPosition)
	is.Equal(state.Yaw, protocol.SpawnYaw)

	// a duplicate request re-accepts without minting a second player
	h.handleConnectRequest(testAddr(40001), h.now())
	is.Equal(len(connected), 1)
	is.Equal(h.PlayerCount(), 1)

	// a different endpoint is a different player
	h.handleConnectRequest(testAddr(40002), h.now())
	is.Equal(connected, []uint32{1, 2})
}

func TestConnectRequestRejectsWhenFull(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	for i := 0; i < protocol.MaxPlayers; i++ {
		h.handleConnectRequest(testAddr(41000+i), h.now())
	}
	is.Equal(h.PlayerCount(), protocol.MaxPlayers)

	h.handleConnectRequest(testAddr(41999), h.now())
	is.Equal(h.PlayerCount(), protocol.MaxPlayers)
	is.Equal(h.findConnection(testAddr(41999)), (*Connection)(nil))
}

func TestInputIdempotence(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	h.handleConnectRequest(testAddr(40003), h.now())
	conn := h.findConnection(testAddr(40003))

	payload := &protocol.Buffer{}
	payload.WritePlayerInput(protocol.PlayerInput{
		Sequence:  1,
		Keys:      protocol.KeyW,
		Yaw:       0,
		DeltaTime: 0.1,
	})

	h.handleInput(conn, protocol.BufferFrom(payload.Bytes()), uint16(payload.Len()))
	h.processTick()
	first := h.players[conn.PlayerID].Position

	// the same sequence delivered again must not move the player
	h.handleInput(conn, protocol.BufferFrom(payload.Bytes()), uint16(payload.Len()))
	h.processTick()
	is.Equal(h.players[conn.PlayerID].Position, first)
}

func TestInputsApplyInSequenceOrder(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	h.handleConnectRequest(testAddr(40004), h.now())
	conn := h.findConnection(testAddr(40004))

	// a redundant burst carrying sequences 1..3
	payload := &protocol.Buffer{}
	for seq := uint32(1); seq <= 3; seq++ {
		payload.WritePlayerInput(protocol.PlayerInput{
			Sequence:  seq,
			Keys:      protocol.KeyW,
			Yaw:       -90,
			DeltaTime: 1.0 / 60.0,
		})
	}

	h.handleInput(conn, protocol.BufferFrom(payload.Bytes()), uint16(payload.Len()))
	h.processTick()

	is.Equal(conn.LastProcessedInput, uint32(3))
	is.Equal(h.players[conn.PlayerID].LastProcessedInput, uint32(3))
	is.Equal(h.players[conn.PlayerID].Tick, h.currentTick)

	// a late burst overlapping the applied range only contributes the
	// new tail
	payload = &protocol.Buffer{}
	for seq := uint32(2); seq <= 4; seq++ {
		payload.WritePlayerInput(protocol.PlayerInput{
			Sequence:  seq,
			Keys:      protocol.KeyW,
			Yaw:       -90,
			DeltaTime: 1.0 / 60.0,
		})
	}
	h.handleInput(conn, protocol.BufferFrom(payload.Bytes()), uint16(payload.Len()))
	is.Equal(len(conn.PendingInputs), 1)
	h.processTick()
	is.Equal(conn.LastProcessedInput, uint32(4))
}

func TestTruncatedInputBurstDoesNotFault(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	h.handleConnectRequest(testAddr(40005), h.now())
	conn := h.findConnection(testAddr(40005))

	// a payloadSize that is not a multiple of the input record: the
	// trailing partial record is never read
	payload := &protocol.Buffer{}
	payload.WritePlayerInput(protocol.PlayerInput{Sequence: 1, Keys: protocol.KeyW, DeltaTime: 0.1})
	payload.WriteU8(0xFF)

	h.handleInput(conn, protocol.BufferFrom(payload.Bytes()), uint16(payload.Len()))
	is.Equal(len(conn.PendingInputs), 1)

	// an oversized claim runs the reader dry and queues nothing extra
	h.handleInput(conn, protocol.BufferFrom(nil), 0xFFFF)
	is.Equal(len(conn.PendingInputs), 1)
}

func TestTimeoutEvictsSilentPeer(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	h.handleConnectRequest(testAddr(40006), h.now())
	is.Equal(h.PlayerCount(), 1)

	var gone []uint32
	h.OnPlayerDisconnected = func(id uint32) { gone = append(gone, id) }

	// push the clock past the timeout without touching the peer
	h.startTime = h.startTime.Add(-(protocol.ConnectionTimeout + time.Second))
	h.Update(0)

	is.Equal(gone, []uint32{1})
	is.Equal(h.PlayerCount(), 0)
	is.Equal(h.findConnection(testAddr(40006)), (*Connection)(nil))
}

func TestCorruptPacketIsDropped(t *testing.T) {
	is := is.New(t)

	h := NewHost(nil)
	is.NoErr(h.Start(0))
	defer h.Stop()

	// valid header bytes with a ruined magic never reach the dispatcher
	b := &protocol.Buffer{}
	b.WriteHeader(protocol.NewHeader(protocol.ConnectRequest))
	data := make([]byte, b.Len())
	copy(data, b.Bytes())
	data[0] = 'X'

	buf := protocol.BufferFrom(data)
	header := buf.ReadHeader()
	is.True(!header.IsValid())
	is.Equal(h.PlayerCount(), 0)
}
