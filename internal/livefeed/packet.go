package livefeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Engine.IO v4 carries Socket.IO v5 packets as text frames. Only the default
// namespace and text (non-binary) events are handled.

type PacketType int

const (
	PacketOpen PacketType = iota
	PacketClose
	PacketPing
	PacketPong
	PacketNoop
	PacketConnect
	PacketDisconnect
	PacketEvent
	PacketConnectError
)

func (t PacketType) String() string {
	switch t {
	case PacketOpen:
		return "open"
	case PacketClose:
		return "close"
	case PacketPing:
		return "ping"
	case PacketPong:
		return "pong"
	case PacketNoop:
		return "noop"
	case PacketConnect:
		return "connect"
	case PacketDisconnect:
		return "disconnect"
	case PacketEvent:
		return "event"
	case PacketConnectError:
		return "connect_error"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyFrame        = errors.New("empty_frame")
	ErrUnsupportedPacket = errors.New("unsupported_packet")
)

var (
	pingFrame    = []byte("2")
	pongFrame    = []byte("3")
	connectFrame = []byte("40")
)

// Packet is one decoded frame. Data holds the open handshake, the connect
// payload, or the first argument of an event.
type Packet struct {
	Type PacketType
	Name string
	Data json.RawMessage
}

// Handshake is the payload of the Engine.IO open packet.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload,omitempty"`
}

func ParsePacket(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return Packet{}, ErrEmptyFrame
	}
	switch frame[0] {
	case '0':
		return Packet{Type: PacketOpen, Data: json.RawMessage(frame[1:])}, nil
	case '1':
		return Packet{Type: PacketClose}, nil
	case '2':
		return Packet{Type: PacketPing}, nil
	case '3':
		return Packet{Type: PacketPong}, nil
	case '6':
		return Packet{Type: PacketNoop}, nil
	case '4':
		return parseSocketPacket(frame[1:])
	}
	return Packet{}, fmt.Errorf("%w: engine type %q", ErrUnsupportedPacket, frame[0])
}

func parseSocketPacket(b []byte) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, ErrEmptyFrame
	}
	kind, rest := b[0], skipNamespaceAndAck(b[1:])
	switch kind {
	case '0':
		return Packet{Type: PacketConnect, Data: json.RawMessage(rest)}, nil
	case '1':
		return Packet{Type: PacketDisconnect}, nil
	case '4':
		return Packet{Type: PacketConnectError, Data: json.RawMessage(rest)}, nil
	case '2':
		var args []json.RawMessage
		if err := json.Unmarshal(rest, &args); err != nil {
			return Packet{}, fmt.Errorf("decode event args: %w", err)
		}
		if len(args) == 0 {
			return Packet{}, fmt.Errorf("%w: event without name", ErrUnsupportedPacket)
		}
		var name string
		if err := json.Unmarshal(args[0], &name); err != nil {
			return Packet{}, fmt.Errorf("decode event name: %w", err)
		}
		p := Packet{Type: PacketEvent, Name: name}
		if len(args) > 1 {
			p.Data = args[1]
		}
		return p, nil
	}
	return Packet{}, fmt.Errorf("%w: socket type %q", ErrUnsupportedPacket, kind)
}

// skipNamespaceAndAck drops a leading "/nsp," and an ack id, if present.
func skipNamespaceAndAck(b []byte) []byte {
	if len(b) > 0 && b[0] == '/' {
		if i := bytes.IndexByte(b, ','); i >= 0 {
			b = b[i+1:]
		} else {
			return nil
		}
	}
	for len(b) > 0 && b[0] >= '0' && b[0] <= '9' {
		b = b[1:]
	}
	return b
}

// EncodeEvent builds a `42["name",data]` frame.
func EncodeEvent(name string, data any) ([]byte, error) {
	args, err := json.Marshal([]any{name, data})
	if err != nil {
		return nil, err
	}
	return append([]byte("42"), args...), nil
}

func EncodeOpen(h Handshake) ([]byte, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return append([]byte("0"), b...), nil
}

func encodeConnectAck(sid string) []byte {
	b, _ := json.Marshal(map[string]string{"sid": sid})
	return append([]byte("40"), b...)
}

// subscribeFrame is what socket.send(JSON.stringify({subscribe: id})) puts on
// the wire: a "message" event whose argument is the JSON text.
func subscribeFrame(instanceID string) ([]byte, error) {
	inner, err := json.Marshal(subscribeRequest{Subscribe: instanceID})
	if err != nil {
		return nil, err
	}
	return EncodeEvent("message", string(inner))
}

type subscribeRequest struct {
	Subscribe string `json:"subscribe"`
}
