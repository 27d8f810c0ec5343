package core

// Checksum computes the Internet checksum (RFC 1071) of b.
//
// Full pairs are summed as big-endian 16-bit words. A trailing odd byte is
// added as its own term, without being shifted into the high half of a word.
// The result is meant to be written with binary.BigEndian. An empty buffer has
// a checksum of 0.
func Checksum(b []byte) uint16 {
	if len(b) == 0 {
		return 0
	}

	var sum uint32
	n := len(b)
	i := 0
	for ; n > 1; n -= 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
		i += 2
	}

	if n == 1 {
		sum += uint32(b[i])
	}

	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16

	return ^uint16(sum)
}
