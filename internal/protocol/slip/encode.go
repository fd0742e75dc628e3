package slip

const (
	End    byte = 0xC0
	Esc    byte = 0xDB
	EscEnd byte = 0xDC
	EscEsc byte = 0xDD
)

// Encode returns datagram framed and stuffed for the wire.
func Encode(datagram []byte) []byte {
	return AppendEncode(make([]byte, 0, EncodedLen(datagram)), datagram)
}

// AppendEncode appends the framed form of datagram to dst.
func AppendEncode(dst, datagram []byte) []byte {
	dst = append(dst, End)
	for _, b := range datagram {
		switch b {
		case End:
			dst = append(dst, Esc, EscEnd)
		case Esc:
			dst = append(dst, Esc, EscEsc)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, End)
}

// EncodedLen is the exact number of bytes Encode produces for datagram.
func EncodedLen(datagram []byte) int {
	n := len(datagram) + 2
	for _, b := range datagram {
		if b == End || b == Esc {
			n++
		}
	}
	return n
}
