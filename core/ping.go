package core

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// recvBufferSize is large enough for the IP header and a whole echo reply.
const recvBufferSize = 1024

// Pinger sends single echo requests. It keeps no state between calls, each Run owns its own socket,
// so a Pinger can be used from several goroutines at once.
type Pinger struct {
	settings *Settings

	// logger is an instance of logrus used to log activities related to this pinger
	logger *log.Logger

	// listen opens the raw socket of a call.
	listen func(ttl int) (rawConn, error)

	// now is the clock used for the send and receive timestamps.
	now func() time.Time
}

// NewPinger creates a new Pinger
func NewPinger(settings *Settings) (*Pinger, error) {
	logger := NewLogger(settings.LoggingLevel)

	logger.Debug("Validating settings")

	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &Pinger{
		settings: settings,
		logger:   logger,
		listen:   listenRaw,
		now:      time.Now,
	}, nil
}

// Ping sends one echo request to dest and returns the round-trip latency, waiting at most timeout.
// A timeout that is not positive means the default of one second, and one beyond ten years is
// capped, so every failure is a *PingError.
// A raw socket is used, so the process needs root or CAP_NET_RAW.
func Ping(dest string, timeout time.Duration) (time.Duration, error) {
	p, err := NewPinger(pingSettings(timeout))
	if err != nil {
		return 0, err
	}

	rt, err := p.Run(dest)
	if err != nil {
		return 0, err
	}

	return rt.Time, nil
}

// pingSettings returns the default settings with timeout brought into the valid range.
func pingSettings(timeout time.Duration) *Settings {
	settings := DefaultSettings()
	if timeout > 0 {
		settings.Timeout = math.Min(timeout.Seconds(), maxTimeout)
	}
	return settings
}

// Run sends exactly one echo request to dest and waits for its reply. Every failure is a *PingError.
func (p *Pinger) Run(dest string) (*RoundTrip, error) {
	start := p.now()

	rt, err := p.run(dest, start)
	if err != nil {
		var perr *PingError
		if !errors.As(err, &perr) {
			perr = newPingError(HostUnreachable, err)
		}
		perr.Dest = dest
		perr.Elapsed = p.now().Sub(start)
		p.logger.Infof("Ping to %s failed: %s", dest, perr)
		return nil, perr
	}

	p.logger.Infof("Ping to %s replied in %s", dest, rt.Time)
	return rt, nil
}

func (p *Pinger) run(dest string, start time.Time) (*RoundTrip, error) {
	p.logger.Infof("Opening raw socket in network %s", icmpPrivilegedNetwork)
	conn, err := p.listen(p.settings.TTL)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, newPingError(PermissionDenied, err)
		}
		return nil, newPingError(HostUnreachable, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			p.logger.Warnf("Could not close raw socket: %s", err)
		}
		p.logger.Debug("Raw socket closed")
	}()

	deadline := start.Add(p.settings.timeoutDuration())
	p.logger.Tracef("Setting read deadline to %s", deadline)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, newPingError(HostUnreachable, fmt.Errorf("error while setting read deadline: %w", err))
	}

	p.logger.Infof("Resolving address %s", dest)
	addr, err := Resolve(dest)
	if err != nil {
		return nil, err
	}
	p.logger.Infof("Address %s resolved to IP Address %s", dest, addr)

	id := p.identifier()
	msg := EncodeEchoRequest(id, p.now())

	p.logger.Infof("Writing ICMP message with id %d to address %s", id, addr)
	p.logger.Tracef("ICMP message %x", msg)
	ip, ok := parseIPv4(addr)
	if !ok {
		return nil, newPingError(HostLookupFailed, fmt.Errorf("%s is not an IPv4 address", addr))
	}

	if err := conn.WriteTo(msg, &net.IPAddr{IP: ip}); err != nil {
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) {
			return nil, newPingError(HostLookupFailed, fmt.Errorf("error while sending echo request: %w", err))
		}
		return nil, newPingError(HostUnreachable, fmt.Errorf("error while sending echo request: %w", err))
	}

	return p.awaitReply(conn, id)
}

// awaitReply reads datagrams until the echo reply for id is found or the read deadline expires.
func (p *Pinger) awaitReply(conn rawConn, id uint16) (*RoundTrip, error) {
	buffer := make([]byte, recvBufferSize)

	for {
		p.logger.Trace("Reading from connection")
		length, err := conn.ReadFrom(buffer)
		if err != nil {
			if isTimeout(err) {
				return nil, newPingError(ReplyTimeout, nil)
			}
			return nil, newPingError(HostUnreachable, fmt.Errorf("error while reading from connection: %w", err))
		}
		receivedTstp := p.now()

		datagram := buffer[:length]
		p.logger.Tracef("Raw packet received: %x", datagram)

		reply, err := p.checkReply(datagram, id)
		if err != nil {
			// an ICMP error about our own request ends the wait in any mode
			if p.settings.FailOnForeign || KindOf(err) == HostUnreachable {
				return nil, err
			}
			p.logger.Debugf("Dropping %s: %s", describeDatagram(datagram), err)
			continue
		}

		rt := &RoundTrip{
			ID:   reply.ID,
			Seq:  int(reply.Seq),
			Len:  length,
			Time: secondsToDuration(unixSeconds(receivedTstp) - reply.Sent),
		}
		if h, err := ipv4.ParseHeader(datagram); err == nil {
			rt.TTL = h.TTL
			rt.Src = h.Src
		}

		return rt, nil
	}
}

// checkReply parses and validates a datagram against the identifier of the call.
func (p *Pinger) checkReply(datagram []byte, id uint16) (*EchoReply, error) {
	if icmpErr, ok := parseICMPError(datagram, id); ok {
		p.logger.Infof("Received %s about our request", icmpErr)
		return nil, newPingError(HostUnreachable, icmpErr)
	}

	reply, err := ParseEchoReply(datagram)
	if err != nil {
		return nil, err
	}

	if err := reply.validate(id); err != nil {
		return nil, err
	}

	if p.settings.VerifyChecksum && !reply.VerifyChecksum() {
		return nil, newPingError(BadReply, fmt.Errorf("checksum 0x%04x does not verify", reply.Checksum))
	}

	return reply, nil
}

// identifier returns the ICMP identifier of a new call.
func (p *Pinger) identifier() uint16 {
	if p.settings.PIDIdentifier {
		return pidIdentifier()
	}
	return randomIdentifier()
}

// isTimeout returns whether err comes from an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var neterr net.Error
	return errors.As(err, &neterr) && neterr.Timeout()
}

// describeDatagram names the ICMP message carried by a datagram, for logging.
func describeDatagram(datagram []byte) string {
	if len(datagram) <= ipv4HeaderLen {
		return fmt.Sprintf("datagram of %d bytes", len(datagram))
	}

	m, err := icmp.ParseMessage(icmpProtocol, datagram[ipv4HeaderLen:])
	if err != nil {
		return fmt.Sprintf("unparsable datagram of %d bytes", len(datagram))
	}

	if echo, ok := m.Body.(*icmp.Echo); ok {
		return fmt.Sprintf("ICMP %v message with id %d and seq %d", m.Type, echo.ID, echo.Seq)
	}
	return fmt.Sprintf("ICMP %v message", m.Type)
}
