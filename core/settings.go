package core

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxTimeout is the largest accepted timeout, in seconds.
const maxTimeout = float64(time.Hour*24*365*10) / float64(time.Second)

// Settings contains all configurable properties of a ping.
type Settings struct {
	// Timeout is the time in seconds to wait for a reply.
	Timeout float64

	// TTL is the set IP Time to Live
	TTL int

	// VerifyChecksum defines if replies whose ICMP checksum does not verify are rejected.
	VerifyChecksum bool

	// FailOnForeign defines if the first datagram received decides the outcome. When false, datagrams that
	// are not our echo reply are dropped and the wait goes on until the timeout.
	FailOnForeign bool

	// PIDIdentifier defines if the process id is used as ICMP identifier instead of a random one per call.
	PIDIdentifier bool

	// LoggingLevel is the logrus level of the ping logger.
	LoggingLevel uint32
}

// DefaultSettings returns the default settings for a ping, change as you wish.
func DefaultSettings() *Settings {
	return &Settings{
		Timeout:        1,
		TTL:            64,
		VerifyChecksum: false,
		FailOnForeign:  false,
		PIDIdentifier:  false,
		LoggingLevel:   uint32(log.WarnLevel),
	}
}

// validate returns an error describing the first invalid setting, if any.
func (s *Settings) validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %f", s.Timeout)
	}
	if s.Timeout > maxTimeout {
		return fmt.Errorf("timeout is too large, got %f", s.Timeout)
	}
	if s.TTL <= 0 || s.TTL > 255 {
		return fmt.Errorf("ttl must be in the range 1..255, got %d", s.TTL)
	}
	return nil
}

// timeoutDuration returns the timeout setting parsed as a duration.
func (s *Settings) timeoutDuration() time.Duration {
	return secondsToDuration(s.Timeout)
}
