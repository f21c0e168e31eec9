// Package binary implements codec.Codec using an explicit little-endian
// wire frame for packets (in the style of the teacher's message.ProtocolHeader
// Encode/Decode pair) and encoding/gob for payload values.
//
// The frame format is:
//
//	byte    Kind
//	8 bytes ExchangeID (little-endian)
//	2 bytes len(ProtocolName) (little-endian) + ProtocolName bytes
//	2 bytes len(MessageType) (little-endian) + MessageType bytes
//	4 bytes len(Payload) (little-endian) + Payload bytes
//
// This is one acceptable codec among many; pkg/codec.Codec is an interface
// specifically so an embedding application can swap in JSON, TLV, or
// protobuf framing without touching the dispatch engine.
package binary

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/backkem/prodigy/pkg/codec"
	"github.com/backkem/prodigy/pkg/packet"
)

// MinFrameSize is the size of a frame with empty names and payload.
const MinFrameSize = 1 + 8 + 2 + 2 + 4

// Codec is the default binary.Codec implementation of codec.Codec.
type Codec struct{}

// New creates a binary Codec.
func New() *Codec {
	return &Codec{}
}

// EncodePacket implements codec.Codec.
func (c *Codec) EncodePacket(p packet.Packet) ([]byte, error) {
	if len(p.ProtocolName) > packet.MaxNameLength {
		return nil, &codec.MalformedPacketError{Reason: "protocol name too long"}
	}
	if len(p.MessageType) > packet.MaxNameLength {
		return nil, &codec.MalformedPacketError{Reason: "message type too long"}
	}
	if len(p.Payload) > packet.MaxPayloadLength {
		return nil, &codec.MalformedPacketError{Reason: "payload too long"}
	}

	size := MinFrameSize + len(p.ProtocolName) + len(p.MessageType) + len(p.Payload)
	buf := make([]byte, size)
	offset := 0

	buf[offset] = byte(p.Kind)
	offset++

	binary.LittleEndian.PutUint64(buf[offset:], p.ExchangeID)
	offset += 8

	offset += putString(buf[offset:], p.ProtocolName)
	offset += putString(buf[offset:], p.MessageType)

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(p.Payload)))
	offset += 4
	offset += copy(buf[offset:], p.Payload)

	return buf[:offset], nil
}

// DecodePacket implements codec.Codec.
func (c *Codec) DecodePacket(data []byte) (packet.Packet, error) {
	if len(data) < MinFrameSize {
		return packet.Packet{}, &codec.MalformedPacketError{Reason: "frame too short"}
	}

	offset := 0
	kind := packet.Kind(data[offset])
	if !kind.IsValid() {
		return packet.Packet{}, &codec.MalformedPacketError{Reason: "invalid kind"}
	}
	offset++

	exchangeID := binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	protocolName, n, err := getString(data[offset:])
	if err != nil {
		return packet.Packet{}, err
	}
	offset += n

	messageType, n, err := getString(data[offset:])
	if err != nil {
		return packet.Packet{}, err
	}
	offset += n

	if len(data[offset:]) < 4 {
		return packet.Packet{}, &codec.MalformedPacketError{Reason: "truncated payload length"}
	}
	payloadLen := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if uint32(len(data[offset:])) < payloadLen {
		return packet.Packet{}, &codec.MalformedPacketError{Reason: "truncated payload"}
	}
	payload := make([]byte, payloadLen)
	copy(payload, data[offset:offset+int(payloadLen)])

	return packet.Packet{
		ExchangeID:   exchangeID,
		Kind:         kind,
		ProtocolName: protocolName,
		MessageType:  messageType,
		Payload:      payload,
	}, nil
}

// EncodePayload implements codec.Codec using encoding/gob.
func (c *Codec) EncodePayload(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, &codec.PayloadDecodeError{Reason: err.Error()}
	}
	return buf.Bytes(), nil
}

// DecodePayload implements codec.Codec using encoding/gob.
func (c *Codec) DecodePayload(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return &codec.PayloadDecodeError{Reason: err.Error()}
	}
	return nil
}

// Verify Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

func putString(buf []byte, s string) int {
	binary.LittleEndian.PutUint16(buf, uint16(len(s)))
	n := copy(buf[2:], s)
	return 2 + n
}

func getString(data []byte) (string, int, error) {
	if len(data) < 2 {
		return "", 0, &codec.MalformedPacketError{Reason: "truncated name length"}
	}
	strLen := binary.LittleEndian.Uint16(data)
	if len(data[2:]) < int(strLen) {
		return "", 0, &codec.MalformedPacketError{Reason: "truncated name"}
	}
	s := string(data[2 : 2+int(strLen)])
	return s, 2 + int(strLen), nil
}
