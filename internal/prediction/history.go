// Package prediction keeps the client honest: inputs apply locally the
// moment they are issued, and the history ring holds everything the
// host has not acknowledged yet so it can be replayed on top of the
// next authoritative state.
package prediction

import "github.com/steppen0mad/Pulse/internal/protocol"

type entry struct {
	input     protocol.PlayerInput
	predicted protocol.PlayerState
}

// History is a fixed-capacity ring of (input, predicted state) pairs.
// 64 entries is about one second of input at 60Hz. The hot path never
// allocates; overflow overwrites the oldest entry.
type History struct {
	entries [protocol.InputBufferSize]entry
	head    int
	count   int
}

func (h *History) Len() int {
	return h.count
}

func (h *History) Add(input protocol.PlayerInput, predicted protocol.PlayerState) {
	idx := (h.head + h.count) % protocol.InputBufferSize
	h.entries[idx] = entry{input: input, predicted: predicted}
	if h.count < protocol.InputBufferSize {
		h.count++
	} else {
		h.head = (h.head + 1) % protocol.InputBufferSize
	}
}

// AcknowledgeUpTo drops every input with sequence <= sequence. Inputs
// are appended in ascending sequence order, so acknowledged entries
// form a prefix.
func (h *History) AcknowledgeUpTo(sequence uint32) {
	for h.count > 0 && h.entries[h.head].input.Sequence <= sequence {
		h.head = (h.head + 1) % protocol.InputBufferSize
		h.count--
	}
}

// Unacknowledged returns the retained inputs oldest first.
func (h *History) Unacknowledged() []protocol.PlayerInput {
	inputs := make([]protocol.PlayerInput, h.count)
	for i := 0; i < h.count; i++ {
		inputs[i] = h.entries[(h.head+i)%protocol.InputBufferSize].input
	}
	return inputs
}

// Clear resets the ring, e.g. on disconnect.
func (h *History) Clear() {
	h.head = 0
	h.count = 0
}
