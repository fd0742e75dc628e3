//go:build !linux

package transport

var baudRates = map[int]uint32{
	9600:   0,
	19200:  0,
	38400:  0,
	57600:  0,
	115200: 0,
	230400: 0,
	460800: 0,
	921600: 0,
}

func OpenSerial(path string, baud int) (*Stream, error) {
	if err := checkBaud(baud); err != nil {
		return nil, err
	}
	return nil, ErrSerialUnsupported
}
