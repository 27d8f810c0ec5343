package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mikaelmello/gopong/core"
	"golang.org/x/net/ipv4"
)

func printOnStart(w io.Writer, dest string, addr string) {
	fmt.Fprintf(w, "PING %s (%s) %d bytes of data\n", dest, addr, core.RequestLength)
}

func printOnRoundTrip(w io.Writer, dest string, rt *core.RoundTrip) {
	fmt.Fprintf(w, "%d bytes from %s (%s): icmp_seq=%d ttl=%d time=%s\n",
		rt.Len, dest, rt.Src, rt.Seq, rt.TTL, rt.Time.Truncate(time.Microsecond))
}

func printOnError(w io.Writer, dest string, err error) {
	var perr *core.PingError
	if !errors.As(err, &perr) {
		fmt.Fprintf(w, "ping %s: %s\n", dest, err)
		return
	}

	var icmpErr *core.ICMPError
	if errors.As(err, &icmpErr) {
		printOnICMPError(w, dest, icmpErr)
		return
	}

	switch perr.Kind {
	case core.ReplyTimeout:
		fmt.Fprintf(w, "No reply from %s: timeout expired after %s\n", dest, perr.Elapsed.Truncate(time.Millisecond))
	case core.PermissionDenied:
		fmt.Fprintf(w, "ping %s: raw socket not permitted, run as root or grant CAP_NET_RAW\n", dest)
	default:
		fmt.Fprintf(w, "ping %s: %s (%s)\n", dest, perr.Kind, perr)
	}
}

func printOnICMPError(w io.Writer, dest string, e *core.ICMPError) {
	from := dest
	if e.Src != nil {
		from = e.Src.String()
	}

	switch e.Type {
	case ipv4.ICMPTypeTimeExceeded:
		fmt.Fprintf(w, "From %s: icmp_seq=%d time to live exceeded\n", from, e.Seq)
	default:
		fmt.Fprintf(w, "From %s: icmp_seq=%d %s, code %d\n", from, e.Seq, e.Type, e.Code)
	}
}
