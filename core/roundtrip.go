package core

import (
	"net"
	"time"
)

// RoundTrip is the outcome of a successful echo request.
type RoundTrip struct {
	TTL  int           // time-to-live of the reply, 0 if its IP header could not be parsed
	Seq  int           // seq of reply
	ID   uint16        // identifier shared by the request and its reply
	Len  int           // len of reply, IP header included
	Src  net.IP        // src of reply
	Time time.Duration // rtt, measured from the timestamp embedded in the request
}
