// Package reliability tracks per-connection sequence state. There is no
// resend machinery here: channels that must not lose data protect
// themselves with redundancy (inputs) or with natural repetition
// (snapshots), and the ack/ack-bits pair only exists so a peer can
// observe per-packet loss.
package reliability

import "github.com/steppen0mad/Pulse/internal/protocol"

type Tracker struct {
	// LocalSequence is the sequence of the last packet sent.
	LocalSequence uint32
	// RemoteSequence is the highest sequence received from the peer.
	RemoteSequence uint32
	// AckBits acknowledges RemoteSequence and the 31 sequences below
	// it: bit N set means RemoteSequence-N was received (bit 0 is
	// RemoteSequence itself).
	AckBits uint32
}

// NextSequence allocates the sequence for an outgoing packet.
func (t *Tracker) NextSequence() uint32 {
	t.LocalSequence++
	return t.LocalSequence
}

// OnReceive folds an incoming sequence into the ack state.
func (t *Tracker) OnReceive(sequence uint32) {
	switch {
	case sequence > t.RemoteSequence:
		shift := sequence - t.RemoteSequence
		if shift < 32 {
			t.AckBits = (t.AckBits << shift) | 1
		} else {
			t.AckBits = 1
		}
		t.RemoteSequence = sequence
	case sequence < t.RemoteSequence:
		diff := t.RemoteSequence - sequence
		if diff < 32 {
			t.AckBits |= 1 << diff
		}
	}
	// sequence == RemoteSequence is a duplicate of the newest packet,
	// already acknowledged
}

// Stamp fills the outgoing ack fields of a header.
func (t *Tracker) Stamp(h *protocol.PacketHeader) {
	h.Ack = t.RemoteSequence
	h.AckBits = t.AckBits
}
