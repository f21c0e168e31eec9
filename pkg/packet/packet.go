package packet

// MaxNameLength bounds ProtocolName and MessageType. Codec implementations
// enforce it on encode; decoding does not check it.
const MaxNameLength = 255

// MaxPayloadLength bounds Payload, enforced the same way. 64 KiB comfortably
// covers anything a UDP-class transport can deliver in one datagram.
const MaxPayloadLength = 65535

// Packet is the self-describing unit Prodigy peers exchange. It is
// immutable once constructed: handlers and senders build a new Packet for
// every transmission rather than mutating one in place.
type Packet struct {
	// ExchangeID correlates a Response with the Request that triggered it.
	// Generated fresh for every outbound Request; copied verbatim onto the
	// matching Response. It is routing metadata, not identity — see Equal.
	ExchangeID uint64

	// Kind distinguishes Request from Response.
	Kind Kind

	// ProtocolName names the protocol this packet belongs to.
	ProtocolName string

	// MessageType names the handler within the protocol.
	MessageType string

	// Payload is the opaque, codec-defined encoding of the message body.
	// May be empty.
	Payload []byte
}

// New builds a Packet. It does not validate field lengths; Codec
// implementations are expected to enforce wire limits on encode.
func New(kind Kind, exchangeID uint64, protocolName, messageType string, payload []byte) Packet {
	return Packet{
		ExchangeID:   exchangeID,
		Kind:         kind,
		ProtocolName: protocolName,
		MessageType:  messageType,
		Payload:      payload,
	}
}

// Equal compares two packets by identity: (ProtocolName, MessageType,
// Payload). ExchangeID and Kind are excluded on purpose — they are routing
// metadata attached at send time, not part of what the packet "is". Callers
// must not use Equal for correlation; use ExchangeID directly for that.
func (p Packet) Equal(other Packet) bool {
	if p.ProtocolName != other.ProtocolName || p.MessageType != other.MessageType {
		return false
	}
	if len(p.Payload) != len(other.Payload) {
		return false
	}
	for i := range p.Payload {
		if p.Payload[i] != other.Payload[i] {
			return false
		}
	}
	return true
}
