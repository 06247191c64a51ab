package protocol

// Magic prefix of every Pulse datagram.
var Magic = [4]byte{'P', 'U', 'L', 'S'}

// PacketHeader travels in front of every payload. Sequence is the
// sender's local sequence; Ack and AckBits acknowledge the peer's
// sequences (see internal/reliability). Tick is the sender's current
// tick so that receivers can order state without trusting arrival
// order.
type PacketHeader struct {
	Magic       [4]byte
	Type        PacketType
	Sequence    uint32
	Ack         uint32
	AckBits     uint32
	Tick        uint32
	PayloadSize uint16
}

// NewHeader returns a header carrying the magic and the given type.
func NewHeader(t PacketType) PacketHeader {
	return PacketHeader{Magic: Magic, Type: t}
}

// IsValid reports whether the magic bytes spell PULS. Anything else is
// noise on the port and gets dropped.
func (h PacketHeader) IsValid() bool {
	return h.Magic == Magic
}

func (b *Buffer) WriteHeader(h PacketHeader) {
	b.WriteBytes(h.Magic[:])
	b.WriteU8(uint8(h.Type))
	b.WriteU32(h.Sequence)
	b.WriteU32(h.Ack)
	b.WriteU32(h.AckBits)
	b.WriteU32(h.Tick)
	b.WriteU16(h.PayloadSize)
}

func (b *Buffer) ReadHeader() PacketHeader {
	h := PacketHeader{}
	h.Magic[0] = b.ReadU8()
	h.Magic[1] = b.ReadU8()
	h.Magic[2] = b.ReadU8()
	h.Magic[3] = b.ReadU8()
	h.Type = PacketType(b.ReadU8())
	h.Sequence = b.ReadU32()
	h.Ack = b.ReadU32()
	h.AckBits = b.ReadU32()
	h.Tick = b.ReadU32()
	h.PayloadSize = b.ReadU16()
	return h
}
