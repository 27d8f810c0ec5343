package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	echoCode       = 0
	echoSequence   = 1 // constant flag, not a counter
	ipv4HeaderLen  = 20
	icmpHeaderLen  = 8
	timestampLen   = 8
	payloadLength  = 192
	fillerByte     = 'Q'
	minReplyLength = ipv4HeaderLen + icmpHeaderLen + timestampLen

	// RequestLength is the size in bytes of an encoded echo request.
	RequestLength = icmpHeaderLen + payloadLength
)

// EchoReply holds the fields of a received echo reply, IP header excluded.
type EchoReply struct {
	Type     ipv4.ICMPType
	Code     int
	Checksum uint16
	ID       uint16
	Seq      uint16

	// Sent is the send timestamp found at the start of the payload, in seconds since the epoch.
	Sent float64

	// message is the ICMP part of the datagram, header and payload.
	message []byte
}

// EncodeEchoRequest builds an echo request carrying id and the send timestamp sent.
// The payload is the timestamp as a native-endian float64 followed by filler up to payloadLength bytes.
func EncodeEchoRequest(id uint16, sent time.Time) []byte {
	b := make([]byte, RequestLength)

	b[0] = byte(ipv4.ICMPTypeEcho)
	b[1] = echoCode
	binary.BigEndian.PutUint16(b[4:6], id)
	binary.BigEndian.PutUint16(b[6:8], echoSequence)

	payload := b[icmpHeaderLen:]
	binary.NativeEndian.PutUint64(payload[:timestampLen], math.Float64bits(unixSeconds(sent)))
	for i := timestampLen; i < len(payload); i++ {
		payload[i] = fillerByte
	}

	// checksum field is still zero here
	binary.BigEndian.PutUint16(b[2:4], Checksum(b))

	return b
}

// ParseEchoReply parses a raw datagram made of a 20-byte IP header, the ICMP header and at least
// the timestamp of the payload. It does not check whether the message is an echo reply.
func ParseEchoReply(reply []byte) (*EchoReply, error) {
	if len(reply) < minReplyLength {
		return nil, newPingError(BadReply,
			fmt.Errorf("reply too short, %d bytes received of min %d", len(reply), minReplyLength))
	}

	header := reply[ipv4HeaderLen : ipv4HeaderLen+icmpHeaderLen]
	tstp := reply[ipv4HeaderLen+icmpHeaderLen : minReplyLength]

	return &EchoReply{
		Type:     ipv4.ICMPType(header[0]),
		Code:     int(header[1]),
		Checksum: binary.BigEndian.Uint16(header[2:4]),
		ID:       binary.BigEndian.Uint16(header[4:6]),
		Seq:      binary.BigEndian.Uint16(header[6:8]),
		Sent:     math.Float64frombits(binary.NativeEndian.Uint64(tstp)),
		message:  reply[ipv4HeaderLen:],
	}, nil
}

// VerifyChecksum reports whether the checksum over the ICMP message is consistent.
func (r *EchoReply) VerifyChecksum() bool {
	return Checksum(r.message) == 0
}

// DecodeEchoReply validates that reply is an echo reply for id and returns its send timestamp.
// The received checksum is not verified, see EchoReply.VerifyChecksum.
func DecodeEchoReply(reply []byte, id uint16) (float64, error) {
	r, err := ParseEchoReply(reply)
	if err != nil {
		return 0, err
	}

	if err := r.validate(id); err != nil {
		return 0, err
	}

	return r.Sent, nil
}

// validate checks type, code and identifier.
func (r *EchoReply) validate(id uint16) error {
	if r.Type != ipv4.ICMPTypeEchoReply || r.Code != echoCode {
		return newPingError(BadReply, fmt.Errorf("not an echo reply, type %d and code %d", int(r.Type), r.Code))
	}
	if r.ID != id {
		return newPingError(BadReply, fmt.Errorf("identifier mismatch, expected %d and got %d", id, r.ID))
	}
	return nil
}

// ICMPError is an ICMP error message, destination unreachable or time exceeded, sent back about
// one of our echo requests.
type ICMPError struct {
	Type ipv4.ICMPType
	Code int
	Seq  int    // seq of the quoted request
	Src  net.IP // sender of the error, nil if its IP header could not be parsed
}

func (e *ICMPError) Error() string {
	if e.Src == nil {
		return fmt.Sprintf("%s, code %d", e.Type, e.Code)
	}
	return fmt.Sprintf("%s from %s, code %d", e.Type, e.Src, e.Code)
}

// parseICMPError returns the ICMP error carried by datagram when it quotes the echo request sent with id.
func parseICMPError(datagram []byte, id uint16) (*ICMPError, bool) {
	if len(datagram) <= ipv4HeaderLen {
		return nil, false
	}

	m, err := icmp.ParseMessage(icmpProtocol, datagram[ipv4HeaderLen:])
	if err != nil {
		return nil, false
	}

	var quoted []byte
	switch body := m.Body.(type) {
	case *icmp.DstUnreach:
		quoted = body.Data
	case *icmp.TimeExceeded:
		quoted = body.Data
	default:
		return nil, false
	}

	// the quoted datagram is our IP header followed by at least the 8 bytes of the ICMP header
	if len(quoted) < ipv4.HeaderLen {
		return nil, false
	}
	hdrlen := int(quoted[0]&0x0f) << 2
	if hdrlen < ipv4.HeaderLen || len(quoted) < hdrlen+icmpHeaderLen {
		return nil, false
	}
	echo := quoted[hdrlen : hdrlen+icmpHeaderLen]
	if ipv4.ICMPType(echo[0]) != ipv4.ICMPTypeEcho || binary.BigEndian.Uint16(echo[4:6]) != id {
		return nil, false
	}

	typ, ok := m.Type.(ipv4.ICMPType)
	if !ok {
		return nil, false
	}

	e := &ICMPError{Type: typ, Code: m.Code, Seq: int(binary.BigEndian.Uint16(echo[6:8]))}
	if h, err := ipv4.ParseHeader(datagram); err == nil {
		e.Src = h.Src
	}
	return e, true
}

// unixSeconds converts t to fractional seconds since the epoch.
func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// secondsToDuration converts a fractional number of seconds to a duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
