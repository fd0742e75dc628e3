package transport

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrSerialUnsupported = errors.New("transport: serial lines not supported on this platform")
	ErrUnsupportedBaud   = errors.New("transport: unsupported baud rate")
)

const DefaultBaud = 115200

// SupportedBauds lists the rates OpenSerial accepts.
func SupportedBauds() []int {
	out := make([]int, 0, len(baudRates))
	for rate := range baudRates {
		out = append(out, rate)
	}
	sort.Ints(out)
	return out
}

func checkBaud(baud int) error {
	if _, ok := baudRates[baud]; !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
	return nil
}
