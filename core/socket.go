package core

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	icmpProtocol          = 1
	icmpPrivilegedNetwork = "ip4:icmp"
	icmpListenAddress     = "0.0.0.0"
)

// rawConn is the part of a raw ICMP socket used by a Pinger.
type rawConn interface {
	// WriteTo sends the ICMP message b to dst.
	WriteTo(b []byte, dst *net.IPAddr) error
	// ReadFrom reads a whole datagram, IP header included, into b and returns its length.
	ReadFrom(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// ipv4Socket is a raw ICMP socket. Reads go through an ipv4.RawConn so that the IP header is kept.
type ipv4Socket struct {
	raw *ipv4.RawConn
	ttl int
}

// listenRaw opens a raw ICMP socket that sends with the given ttl.
func listenRaw(ttl int) (rawConn, error) {
	conn, err := net.ListenPacket(icmpPrivilegedNetwork, icmpListenAddress)
	if err != nil {
		return nil, fmt.Errorf("could not listen to ICMP packets: %w", err)
	}

	raw, err := ipv4.NewRawConn(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create raw connection: %w", err)
	}

	return &ipv4Socket{raw: raw, ttl: ttl}, nil
}

func (s *ipv4Socket) WriteTo(b []byte, dst *net.IPAddr) error {
	ip := dst.IP.To4()
	if ip == nil {
		return &net.AddrError{Err: "non-IPv4 address", Addr: dst.String()}
	}

	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(b),
		TTL:      s.ttl,
		Protocol: icmpProtocol,
		Dst:      ip,
	}

	return s.raw.WriteTo(h, b, nil)
}

func (s *ipv4Socket) ReadFrom(b []byte) (int, error) {
	h, p, _, err := s.raw.ReadFrom(b)
	if err != nil {
		return 0, err
	}
	return h.Len + len(p), nil
}

func (s *ipv4Socket) SetReadDeadline(t time.Time) error {
	return s.raw.SetReadDeadline(t)
}

// Close releases the socket, the RawConn owns the listened descriptor.
func (s *ipv4Socket) Close() error {
	return s.raw.Close()
}
