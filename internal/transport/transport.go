// Package transport owns the UDP socket. Receives never block for
// long: the engine is driven by a single Update call per frame, so the
// socket is drained with a read deadline one millisecond ahead instead
// of a reader goroutine. Sends are one best-effort datagram each; the
// layers above survive loss by redundancy, not retries.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Datagram is one received packet and who sent it.
type Datagram struct {
	Payload []byte
	Addr    *net.UDPAddr
}

type Transport struct {
	conn *net.UDPConn
	buf  []byte
}

// Listen binds a reusable UDP socket, for the host side. Address
// ":0" picks a free port (useful in tests); see LocalAddr.
func Listen(network, address string) (*Transport, error) {
	lc := net.ListenConfig{Control: reuseAddr}

	pc, err := lc.ListenPacket(context.Background(), network, address)
	if err != nil {
		return nil, fmt.Errorf("could not listen udp: %w", err)
	}

	return &Transport{
		conn: pc.(*net.UDPConn),
		buf:  make([]byte, maxDatagramSize),
	}, nil
}

// Dial produces a connected client socket: sends go to address, and
// the kernel filters receives down to that peer.
func Dial(network, address string) (*Transport, error) {
	addr, err := net.ResolveUDPAddr(network, address)
	if err != nil {
		return nil, fmt.Errorf("could not resolve udp addr: %w", err)
	}

	conn, err := net.DialUDP(network, nil, addr)
	if err != nil {
		return nil, fmt.Errorf("could not dial udp: %w", err)
	}

	return &Transport{
		conn: conn,
		buf:  make([]byte, maxDatagramSize),
	}, nil
}

const maxDatagramSize = 1 << 16

// pollTimeout bounds how long ReceiveAll waits once the socket is empty.
const pollTimeout = time.Millisecond

// LocalAddr is the bound address, useful after a ":0" Listen.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// ReceiveAll drains the socket until it would block and returns every
// pending datagram. Payloads are copies and safe to retain.
func (t *Transport) ReceiveAll() []Datagram {
	var datagrams []Datagram
	for {
		// a deadline just ahead turns the read into a poll; one that
		// has already passed fails before the socket is even read
		_ = t.conn.SetReadDeadline(time.Now().Add(pollTimeout))

		n, addr, err := t.conn.ReadFromUDP(t.buf)
		if err != nil {
			return datagrams
		}

		payload := make([]byte, n)
		copy(payload, t.buf[:n])
		datagrams = append(datagrams, Datagram{Payload: payload, Addr: addr})
	}
}

// SendTo emits one datagram to addr (listening sockets).
func (t *Transport) SendTo(payload []byte, addr *net.UDPAddr) error {
	_, err := t.conn.WriteToUDP(payload, addr)
	return err
}

// Send emits one datagram to the dialed peer (connected sockets).
func (t *Transport) Send(payload []byte) error {
	_, err := t.conn.Write(payload)
	return err
}

func (t *Transport) Close() error {
	return t.conn.Close()
}
