package core

import (
	"math"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"
)

var (
	idMutex sync.Mutex
	idRand  = rand.New(rand.NewSource(time.Now().UTC().UnixNano()))
)

func isIPv4(ip net.IP) bool {
	return ip.To4() != nil
}

// randomIdentifier returns a fresh ICMP identifier for a single call.
func randomIdentifier() uint16 {
	idMutex.Lock()
	defer idMutex.Unlock()
	return uint16(idRand.Intn(math.MaxUint16 + 1))
}

// pidIdentifier returns the process id truncated to the 16 bits of the ICMP identifier.
func pidIdentifier() uint16 {
	return uint16(os.Getpid() & 0xffff)
}
