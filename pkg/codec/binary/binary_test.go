package binary

import (
	"testing"

	"github.com/backkem/prodigy/pkg/packet"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		p    packet.Packet
	}{
		{
			name: "request with payload",
			p:    packet.New(packet.KindRequest, 0x0123456789abcdef, "P", "echo", []byte{1, 2, 3}),
		},
		{
			name: "response with empty payload",
			p:    packet.New(packet.KindResponse, 42, "chat", "leave", nil),
		},
		{
			name: "empty protocol and message names",
			p:    packet.New(packet.KindRequest, 0, "", "", []byte("x")),
		},
	}

	c := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := c.EncodePacket(tc.p)
			if err != nil {
				t.Fatalf("EncodePacket: %v", err)
			}
			decoded, err := c.DecodePacket(encoded)
			if err != nil {
				t.Fatalf("DecodePacket: %v", err)
			}
			if decoded.ExchangeID != tc.p.ExchangeID {
				t.Errorf("ExchangeID = %d, want %d", decoded.ExchangeID, tc.p.ExchangeID)
			}
			if decoded.Kind != tc.p.Kind {
				t.Errorf("Kind = %v, want %v", decoded.Kind, tc.p.Kind)
			}
			if !decoded.Equal(tc.p) {
				t.Errorf("decoded packet not Equal to original: %+v vs %+v", decoded, tc.p)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	c := New()
	if _, err := c.DecodePacket([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error decoding truncated frame")
	}
}

func TestPayloadRoundtrip(t *testing.T) {
	c := New()
	type body struct {
		A int
		B string
	}

	in := body{A: 7, B: "hello"}
	encoded, err := c.EncodePayload(in)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	var out body
	if err := c.DecodePayload(encoded, &out); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if out != in {
		t.Errorf("DecodePayload = %+v, want %+v", out, in)
	}
}

func TestPayloadDecodeErrorOnTypeMismatch(t *testing.T) {
	c := New()
	encoded, err := c.EncodePayload("a string")
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	var out int
	if err := c.DecodePayload(encoded, &out); err == nil {
		t.Fatal("expected type mismatch error")
	}
}
