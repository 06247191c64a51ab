package protocol

import "github.com/steppen0mad/Pulse/internal/byteorder"

// Buffer is a fixed-capacity serialization cursor over one datagram.
// It is deliberately tolerant: reads that run off the end yield zero
// values and writes that would overflow MaxPacketSize are dropped.
// A corrupted or truncated packet must never crash the receiver; the
// dispatcher discards garbage by other means (magic check, sequence
// filtering).
type Buffer struct {
	data     [MaxPacketSize]byte
	writePos int
	readPos  int
}

// BufferFrom wraps a received datagram for reading. Oversized input is
// truncated to MaxPacketSize.
func BufferFrom(data []byte) *Buffer {
	b := &Buffer{}
	b.writePos = copy(b.data[:], data)
	return b
}

func (b *Buffer) Reset() {
	b.writePos = 0
	b.readPos = 0
}

// Len is the number of bytes written so far.
func (b *Buffer) Len() int {
	return b.writePos
}

// Remaining is the number of unread bytes.
func (b *Buffer) Remaining() int {
	return b.writePos - b.readPos
}

// Bytes returns the written contents. The slice aliases the buffer's
// backing array and is only valid until the next Reset.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.writePos]
}

func (b *Buffer) WriteU8(v uint8) {
	if b.writePos < MaxPacketSize {
		b.data[b.writePos] = v
		b.writePos++
	}
}

func (b *Buffer) WriteU16(v uint16) {
	if b.writePos+2 <= MaxPacketSize {
		byteorder.PutU16(b.data[b.writePos:], v)
		b.writePos += 2
	}
}

func (b *Buffer) WriteU32(v uint32) {
	if b.writePos+4 <= MaxPacketSize {
		byteorder.PutU32(b.data[b.writePos:], v)
		b.writePos += 4
	}
}

func (b *Buffer) WriteF32(v float32) {
	if b.writePos+4 <= MaxPacketSize {
		byteorder.PutF32(b.data[b.writePos:], v)
		b.writePos += 4
	}
}

func (b *Buffer) WriteVec3(v Vec3) {
	b.WriteF32(v.X)
	b.WriteF32(v.Y)
	b.WriteF32(v.Z)
}

func (b *Buffer) WriteBytes(src []byte) {
	if b.writePos+len(src) <= MaxPacketSize {
		copy(b.data[b.writePos:], src)
		b.writePos += len(src)
	}
}

func (b *Buffer) ReadU8() uint8 {
	if b.readPos < b.writePos {
		v := b.data[b.readPos]
		b.readPos++
		return v
	}
	return 0
}

func (b *Buffer) ReadU16() uint16 {
	if b.readPos+2 <= b.writePos {
		v := byteorder.U16(b.data[b.readPos:])
		b.readPos += 2
		return v
	}
	b.readPos = b.writePos
	return 0
}

func (b *Buffer) ReadU32() uint32 {
	if b.readPos+4 <= b.writePos {
		v := byteorder.U32(b.data[b.readPos:])
		b.readPos += 4
		return v
	}
	b.readPos = b.writePos
	return 0
}

func (b *Buffer) ReadF32() float32 {
	if b.readPos+4 <= b.writePos {
		v := byteorder.F32(b.data[b.readPos:])
		b.readPos += 4
		return v
	}
	b.readPos = b.writePos
	return 0
}

func (b *Buffer) ReadVec3() Vec3 {
	x := b.ReadF32()
	y := b.ReadF32()
	z := b.ReadF32()
	return Vec3{X: x, Y: y, Z: z}
}

func (b *Buffer) WritePlayerInput(input PlayerInput) {
	b.WriteU32(input.Sequence)
	b.WriteU32(input.Tick)
	b.WriteU8(input.Keys)
	b.WriteF32(input.Yaw)
	b.WriteF32(input.Pitch)
	b.WriteF32(input.DeltaTime)
}

func (b *Buffer) ReadPlayerInput() PlayerInput {
	input := PlayerInput{}
	input.Sequence = b.ReadU32()
	input.Tick = b.ReadU32()
	input.Keys = b.ReadU8()
	input.Yaw = b.ReadF32()
	input.Pitch = b.ReadF32()
	input.DeltaTime = b.ReadF32()
	return input
}

func (b *Buffer) WritePlayerState(state PlayerState) {
	b.WriteU32(state.PlayerID)
	b.WriteU32(state.Tick)
	b.WriteVec3(state.Position)
	b.WriteF32(state.Yaw)
	b.WriteF32(state.Pitch)
	b.WriteU32(state.LastProcessedInput)
}

func (b *Buffer) ReadPlayerState() PlayerState {
	state := PlayerState{}
	state.PlayerID = b.ReadU32()
	state.Tick = b.ReadU32()
	state.Position = b.ReadVec3()
	state.Yaw = b.ReadF32()
	state.Pitch = b.ReadF32()
	state.LastProcessedInput = b.ReadU32()
	return state
}

func (b *Buffer) WriteEntityState(e EntityState) {
	b.WriteU32(e.EntityID)
	b.WriteU8(e.EntityType)
	b.WriteVec3(e.Position)
	b.WriteVec3(e.Velocity)
	b.WriteF32(e.Yaw)
	b.WriteF32(e.Pitch)
}

func (b *Buffer) ReadEntityState() EntityState {
	e := EntityState{}
	e.EntityID = b.ReadU32()
	e.EntityType = b.ReadU8()
	e.Position = b.ReadVec3()
	e.Velocity = b.ReadVec3()
	e.Yaw = b.ReadF32()
	e.Pitch = b.ReadF32()
	return e
}
